package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderRequested OrderStatus = "REQUESTED"
	OrderAccepted  OrderStatus = "ACCEPTED"
	OrderRejected  OrderStatus = "REJECTED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderRejected || s == OrderCancelled || s == OrderDelivered
}

// Order is one buyer's claim against a crop batch. Quantity and price are
// frozen at request time; status only moves through the lifecycle
// REQUESTED -> ACCEPTED -> SHIPPED -> DELIVERED, with REJECTED and CANCELLED
// as early exits.
type Order struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	CropID       uint            `gorm:"not null;index" json:"crop_id"`
	BuyerID      uint            `gorm:"not null;index" json:"buyer_id"`
	SellerID     uint            `gorm:"not null;index" json:"seller_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price_per_unit"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"`
	Status       OrderStatus     `gorm:"type:varchar(20);not null;default:'REQUESTED'" json:"status"`
	AcceptedAt   *time.Time      `json:"accepted_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Crop   CropBatch `gorm:"foreignKey:CropID" json:"crop,omitempty"`
	Buyer  User      `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller User      `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}
