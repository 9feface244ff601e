package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agrichain/internal/models"
)

// genesisHash is the fixed predecessor of the first record in every chain.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// TraceabilityService maintains the per-batch hash chain. Appends serialize
// per crop; reads and verification run lock-free against committed records.
type TraceabilityService struct {
	db    *gorm.DB
	locks *entityLocks
}

func NewTraceabilityService(db *gorm.DB, locks *entityLocks) *TraceabilityService {
	return &TraceabilityService{db: db, locks: locks}
}

// Append adds a stage event to the crop's chain and returns the new record.
func (s *TraceabilityService) Append(cropID uint, stage models.TraceStage, location, notes string) (*models.TraceabilityRecord, error) {
	unlock := s.locks.lock(chainKey(cropID))
	defer unlock()

	var rec *models.TraceabilityRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.appendTx(tx, cropID, stage, location, notes)
		rec = r
		return err
	})
	return rec, err
}

// appendTx inserts the next chain record inside the caller's transaction.
// The caller must hold the chain lock for cropID until the transaction
// commits.
func (s *TraceabilityService) appendTx(tx *gorm.DB, cropID uint, stage models.TraceStage, location, notes string) (*models.TraceabilityRecord, error) {
	prev := genesisHash
	seq := uint(0)

	var last models.TraceabilityRecord
	err := tx.Where("crop_id = ?", cropID).Order("sequence DESC").First(&last).Error
	if err == nil {
		prev = last.RecordHash
		seq = last.Sequence + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rec := &models.TraceabilityRecord{
		CropID:   cropID,
		Sequence: seq,
		Stage:    stage,
		Location: location,
		Notes:    notes,
		// second precision: sub-second parts do not survive every backend
		// round trip and would break recomputation
		Timestamp: time.Now().UTC().Truncate(time.Second),
		PrevHash:  prev,
	}
	rec.RecordHash = hashRecord(rec)

	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// GetChain returns the crop's full chain, oldest record first.
func (s *TraceabilityService) GetChain(cropID uint) ([]models.TraceabilityRecord, error) {
	var crop models.CropBatch
	if err := s.db.First(&crop, cropID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var records []models.TraceabilityRecord
	if err := s.db.Where("crop_id = ?", cropID).Order("sequence ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Verify recomputes the chain from genesis and reports whether every stored
// hash matches. A mismatch returns false, not an error: tampering is a
// detectable integrity signal surfaced to the caller, not a fault.
func (s *TraceabilityService) Verify(cropID uint) (bool, error) {
	records, err := s.GetChain(cropID)
	if err != nil {
		return false, err
	}

	prev := genesisHash
	for i := range records {
		r := records[i]
		if r.Sequence != uint(i) || r.PrevHash != prev {
			return false, nil
		}
		if hashRecord(&r) != r.RecordHash {
			return false, nil
		}
		prev = r.RecordHash
	}
	return true, nil
}

// hashRecord computes sha256(prevHash || canonical fields) as lowercase hex.
func hashRecord(r *models.TraceabilityRecord) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%s|%s|%s|%d",
		r.PrevHash, r.CropID, r.Sequence, r.Stage, r.Location, r.Notes, r.Timestamp.Unix())
	return hex.EncodeToString(h.Sum(nil))
}
