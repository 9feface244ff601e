package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"agrichain/internal/models"
)

// InventoryService owns per-batch quantity accounting. Every mutation of a
// batch's quantity fields goes through here, serialized per batch so that
// available + reserved + sold == total holds at every observable point.
type InventoryService struct {
	db    *gorm.DB
	locks *entityLocks
	chain *TraceabilityService
}

func NewInventoryService(db *gorm.DB, locks *entityLocks, chain *TraceabilityService) *InventoryService {
	return &InventoryService{db: db, locks: locks, chain: chain}
}

type RegisterBatchInput struct {
	CropName    string
	CropType    string
	Unit        string
	Description string
	HarvestDate string
	Location    string
	Quantity    decimal.Decimal
}

// RegisterBatch creates a new batch owned by the farmer and writes the
// genesis HARVESTED record of its trace chain.
func (s *InventoryService) RegisterBatch(farmerID uint, in RegisterBatchInput) (*models.CropBatch, error) {
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidTransition)
	}

	batch := &models.CropBatch{
		FarmerID:          farmerID,
		CurrentOwnerID:    farmerID,
		CropName:          in.CropName,
		CropType:          in.CropType,
		Unit:              in.Unit,
		Description:       in.Description,
		HarvestDate:       in.HarvestDate,
		Location:          in.Location,
		QuantityTotal:     in.Quantity,
		QuantityAvailable: in.Quantity,
		QuantityReserved:  decimal.Zero,
		QuantitySold:      decimal.Zero,
		Status:            models.CropHarvested,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		rec, err := s.chain.appendTx(tx, batch.ID, models.StageHarvested, in.Location,
			fmt.Sprintf("Batch registered: %s %s %s", in.Quantity, in.Unit, in.CropName))
		if err != nil {
			return err
		}
		batch.GenesisHash = rec.RecordHash
		return tx.Save(batch).Error
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ListForSale marks the batch as listed at the given unit price.
func (s *InventoryService) ListForSale(cropID, ownerID uint, pricePerUnit decimal.Decimal) (*models.CropBatch, error) {
	if !pricePerUnit.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidTransition)
	}

	unlockB := s.locks.lock(batchKey(cropID))
	defer unlockB()
	unlockC := s.locks.lock(chainKey(cropID))
	defer unlockC()

	var batch models.CropBatch
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&batch, cropID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if batch.CurrentOwnerID != ownerID {
			return fmt.Errorf("%w: only the owner can list a batch", ErrUnauthorizedRole)
		}
		if !batch.QuantityAvailable.IsPositive() {
			return fmt.Errorf("%w: nothing left to sell", ErrInsufficientStock)
		}

		batch.Listed = true
		batch.PricePerUnit = &pricePerUnit
		if err := tx.Save(&batch).Error; err != nil {
			return err
		}
		_, err := s.chain.appendTx(tx, batch.ID, models.StageListed, batch.Location,
			fmt.Sprintf("Listed at %s per %s", pricePerUnit, batch.Unit))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Unlist withdraws the batch from the marketplace. Existing reservations are
// untouched.
func (s *InventoryService) Unlist(cropID, ownerID uint) (*models.CropBatch, error) {
	unlock := s.locks.lock(batchKey(cropID))
	defer unlock()

	var batch models.CropBatch
	if err := s.db.First(&batch, cropID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if batch.CurrentOwnerID != ownerID {
		return nil, fmt.Errorf("%w: only the owner can unlist a batch", ErrUnauthorizedRole)
	}

	batch.Listed = false
	if err := s.db.Save(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// Reserve atomically places a hold of quantity against the batch for the
// given order. Fails with ErrInsufficientStock when the available quantity
// cannot cover it.
func (s *InventoryService) Reserve(cropID, orderID uint, quantity decimal.Decimal) (*models.Reservation, error) {
	unlock := s.locks.lock(batchKey(cropID))
	defer unlock()

	var res *models.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.reserveTx(tx, cropID, orderID, quantity)
		res = r
		return err
	})
	return res, err
}

// reserveTx is the check-and-decrement core. Caller holds the batch lock.
func (s *InventoryService) reserveTx(tx *gorm.DB, cropID, orderID uint, quantity decimal.Decimal) (*models.Reservation, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidTransition)
	}

	var batch models.CropBatch
	if err := tx.First(&batch, cropID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !batch.Listed {
		return nil, ErrNotListed
	}
	if batch.QuantityAvailable.LessThan(quantity) {
		return nil, ErrInsufficientStock
	}

	batch.QuantityAvailable = batch.QuantityAvailable.Sub(quantity)
	batch.QuantityReserved = batch.QuantityReserved.Add(quantity)
	if err := tx.Save(&batch).Error; err != nil {
		return nil, err
	}

	res := &models.Reservation{
		ID:       uuid.NewString(),
		CropID:   cropID,
		OrderID:  orderID,
		Quantity: quantity,
		Status:   models.ReservationHeld,
	}
	if err := tx.Create(res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// Release reverses a reservation. Releasing an already-released reservation
// is a logged no-op; releasing a committed one fails with ErrAlreadyResolved.
func (s *InventoryService) Release(reservationID string) error {
	res, err := s.getReservation(reservationID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(batchKey(res.CropID))
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.releaseTx(tx, reservationID)
	})
}

// releaseTx adds the held quantity back. Caller holds the batch lock.
func (s *InventoryService) releaseTx(tx *gorm.DB, reservationID string) error {
	var res models.Reservation
	if err := tx.Where("id = ?", reservationID).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	switch res.Status {
	case models.ReservationReleased:
		log.Printf("WARN: reservation %s already released, ignoring", res.ID)
		return nil
	case models.ReservationCommitted:
		return ErrAlreadyResolved
	}

	var batch models.CropBatch
	if err := tx.First(&batch, res.CropID).Error; err != nil {
		return err
	}
	batch.QuantityAvailable = batch.QuantityAvailable.Add(res.Quantity)
	batch.QuantityReserved = batch.QuantityReserved.Sub(res.Quantity)
	if err := tx.Save(&batch).Error; err != nil {
		return err
	}

	now := time.Now()
	res.Status = models.ReservationReleased
	res.ResolvedAt = &now
	return tx.Save(&res).Error
}

// Commit converts a reservation into a permanent sale: the held quantity is
// split off into a derived batch owned by the buyer, the parent's sold
// counter grows and a SOLD record is appended to the parent chain.
func (s *InventoryService) Commit(reservationID string, buyerID uint) (*models.CropBatch, error) {
	res, err := s.getReservation(reservationID)
	if err != nil {
		return nil, err
	}
	var buyer models.User
	if err := s.db.First(&buyer, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	unlockB := s.locks.lock(batchKey(res.CropID))
	defer unlockB()
	unlockC := s.locks.lock(chainKey(res.CropID))
	defer unlockC()

	var derived *models.CropBatch
	err = s.db.Transaction(func(tx *gorm.DB) error {
		d, err := s.commitTx(tx, reservationID, &buyer)
		derived = d
		return err
	})
	return derived, err
}

// commitTx finalizes the ownership transfer. Caller holds the batch and
// chain locks for the parent crop.
func (s *InventoryService) commitTx(tx *gorm.DB, reservationID string, buyer *models.User) (*models.CropBatch, error) {
	var res models.Reservation
	if err := tx.Where("id = ?", reservationID).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if res.Status != models.ReservationHeld {
		return nil, ErrAlreadyResolved
	}

	var parent models.CropBatch
	if err := tx.First(&parent, res.CropID).Error; err != nil {
		return nil, err
	}

	parent.QuantityReserved = parent.QuantityReserved.Sub(res.Quantity)
	parent.QuantitySold = parent.QuantitySold.Add(res.Quantity)
	if parent.QuantityAvailable.IsZero() && parent.QuantityReserved.IsZero() {
		parent.Listed = false
		parent.Status = models.CropSoldOut
	}
	if err := tx.Save(&parent).Error; err != nil {
		return nil, err
	}

	derived := &models.CropBatch{
		FarmerID:          parent.FarmerID, // origin preserved across splits
		CurrentOwnerID:    buyer.ID,
		CropName:          parent.CropName,
		CropType:          parent.CropType,
		Unit:              parent.Unit,
		Description:       parent.Description,
		HarvestDate:       parent.HarvestDate,
		Location:          parent.Location,
		QuantityTotal:     res.Quantity,
		QuantityAvailable: res.Quantity,
		QuantityReserved:  decimal.Zero,
		QuantitySold:      decimal.Zero,
		Status:            derivedBatchStatus(buyer.Role),
		ParentBatchID:     &parent.ID,
	}
	if err := tx.Create(derived).Error; err != nil {
		return nil, err
	}

	rec, err := s.chain.appendTx(tx, derived.ID, models.StageSold, parent.Location,
		fmt.Sprintf("Split from batch %d (order %d)", parent.ID, res.OrderID))
	if err != nil {
		return nil, err
	}
	derived.GenesisHash = rec.RecordHash
	if err := tx.Save(derived).Error; err != nil {
		return nil, err
	}

	if _, err := s.chain.appendTx(tx, parent.ID, models.StageSold, parent.Location,
		fmt.Sprintf("%s %s transferred to owner %d", res.Quantity, parent.Unit, buyer.ID)); err != nil {
		return nil, err
	}

	now := time.Now()
	res.Status = models.ReservationCommitted
	res.ResolvedAt = &now
	if err := tx.Save(&res).Error; err != nil {
		return nil, err
	}
	return derived, nil
}

func derivedBatchStatus(role models.Role) models.CropStatus {
	switch role {
	case models.RoleDistributor:
		return models.CropInDistribution
	case models.RoleRetailer:
		return models.CropAtRetail
	default:
		return models.CropSold
	}
}

func (s *InventoryService) getReservation(id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := s.db.Where("id = ?", id).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// GetBatch returns a single batch by id.
func (s *InventoryService) GetBatch(cropID uint) (*models.CropBatch, error) {
	var batch models.CropBatch
	if err := s.db.First(&batch, cropID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// ListMarketplace returns all batches currently listed for sale.
func (s *InventoryService) ListMarketplace() ([]models.CropBatch, error) {
	var batches []models.CropBatch
	err := s.db.Where("listed = ?", true).Order("created_at DESC").Find(&batches).Error
	return batches, err
}

// ListByOwner returns the batches currently owned by a user.
func (s *InventoryService) ListByOwner(ownerID uint) ([]models.CropBatch, error) {
	var batches []models.CropBatch
	err := s.db.Where("current_owner_id = ?", ownerID).Order("created_at DESC").Find(&batches).Error
	return batches, err
}
