package models

import (
	"time"

	"gorm.io/gorm"
)

type DisputeStatus string
type DisputeReason string

const (
	DisputeOpen        DisputeStatus = "OPEN"
	DisputeUnderReview DisputeStatus = "UNDER_REVIEW"
	DisputeResolved    DisputeStatus = "RESOLVED"
	DisputeClosed      DisputeStatus = "CLOSED"
)

const (
	ReasonNotReceived    DisputeReason = "ITEM_NOT_RECEIVED"
	ReasonNotAsDescribed DisputeReason = "NOT_AS_DESCRIBED"
	ReasonDamaged        DisputeReason = "ARRIVED_DAMAGED"
	ReasonQuantityShort  DisputeReason = "QUANTITY_SHORT"
	ReasonPaymentIssue   DisputeReason = "PAYMENT_ISSUE"
	ReasonOther          DisputeReason = "OTHER"
)

// Dispute is an administrative complaint raised by either order party.
// Disputes never touch the order or inventory state machines.
type Dispute struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	OrderID           uint           `gorm:"not null;index" json:"order_id"`
	ReportedByID      uint           `gorm:"not null;index" json:"reported_by_id"`
	ReportedAgainstID uint           `gorm:"not null;index" json:"reported_against_id"`
	Reason            DisputeReason  `gorm:"type:varchar(50);not null" json:"reason"`
	Description       string         `gorm:"type:text;not null" json:"description"`
	Status            DisputeStatus  `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	Resolution        string         `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedByID      *uint          `gorm:"index" json:"resolved_by_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Order           Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ReportedBy      User  `gorm:"foreignKey:ReportedByID" json:"reported_by,omitempty"`
	ReportedAgainst User  `gorm:"foreignKey:ReportedAgainstID" json:"reported_against,omitempty"`
}

func (Dispute) TableName() string {
	return "disputes"
}
