package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CropStatus string

const (
	CropHarvested      CropStatus = "HARVESTED"
	CropInDistribution CropStatus = "IN_DISTRIBUTION"
	CropAtRetail       CropStatus = "AT_RETAIL"
	CropSold           CropStatus = "SOLD"
	CropSoldOut        CropStatus = "SOLD_OUT"
)

// CropBatch is a registered lot of a crop with a fixed total quantity.
// Quantity fields always satisfy:
//
//	QuantityAvailable + QuantityReserved + QuantitySold == QuantityTotal
//
// Batches are never deleted, only marked sold out. Partial sales split off a
// derived batch owned by the buyer (ParentBatchID links back to the source).
type CropBatch struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	FarmerID       uint   `gorm:"not null;index" json:"farmer_id"`
	CurrentOwnerID uint   `gorm:"not null;index" json:"current_owner_id"`
	CropName       string `gorm:"not null" json:"crop_name"`
	CropType       string `gorm:"type:varchar(50)" json:"crop_type"`
	Unit           string `gorm:"type:varchar(20)" json:"unit"`
	Description    string `gorm:"type:text" json:"description,omitempty"`
	HarvestDate    string `json:"harvest_date,omitempty"`
	Location       string `json:"location,omitempty"`

	QuantityTotal     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_total"`
	QuantityAvailable decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_available"`
	QuantityReserved  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_reserved"`
	QuantitySold      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_sold"`

	PricePerUnit *decimal.Decimal `gorm:"type:decimal(20,4)" json:"price_per_unit,omitempty"`
	Listed       bool             `gorm:"not null;default:false" json:"listed"`
	Status       CropStatus       `gorm:"type:varchar(20);not null;default:'HARVESTED'" json:"status"`

	GenesisHash   string `gorm:"type:varchar(64);not null" json:"genesis_hash"`
	ParentBatchID *uint  `gorm:"index" json:"parent_batch_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CropBatch) TableName() string {
	return "crop_batches"
}

// QuantitiesBalanced reports whether the ledger invariant holds for this batch.
func (c *CropBatch) QuantitiesBalanced() bool {
	return c.QuantityAvailable.Add(c.QuantityReserved).Add(c.QuantitySold).Equal(c.QuantityTotal)
}
