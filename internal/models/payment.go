package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment records settlement state for an order. At most one payment per
// order; the actual money movement happens in an external processor, this
// service only tracks the outcome.
type Payment struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	OrderID       uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Method        string          `gorm:"type:varchar(50)" json:"method,omitempty"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	TransactionID string          `gorm:"type:varchar(100);index" json:"transaction_id,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Order Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
