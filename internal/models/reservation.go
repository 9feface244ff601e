package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "HELD"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationCommitted ReservationStatus = "COMMITTED"
)

// Reservation is an internal hold against a batch's available quantity,
// tied 1:1 to an order. Released on reject/cancel, committed to a sale on
// delivery. Not exposed through the API.
type Reservation struct {
	ID         string            `gorm:"type:varchar(36);primarykey" json:"id"`
	CropID     uint              `gorm:"not null;index" json:"crop_id"`
	OrderID    uint              `gorm:"not null;uniqueIndex" json:"order_id"`
	Quantity   decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Status     ReservationStatus `gorm:"type:varchar(20);not null;default:'HELD'" json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}
