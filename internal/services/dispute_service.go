package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agrichain/internal/models"
)

// DisputeService is an append-and-resolve log keyed by order. Strictly
// observational: resolving a dispute never touches order, shipment or
// inventory state.
type DisputeService struct {
	db *gorm.DB
}

func NewDisputeService(db *gorm.DB) *DisputeService {
	return &DisputeService{db: db}
}

type OpenDisputeInput struct {
	OrderID           uint
	ReportedAgainstID uint
	Reason            models.DisputeReason
	Description       string
}

// Open raises a dispute against an order in any state, terminal included.
// Multiple open disputes per order are allowed. The reporter must be a
// party to the order and the reported side must be the counterparty.
func (s *DisputeService) Open(reporterID uint, in OpenDisputeInput) (*models.Dispute, error) {
	var order models.Order
	if err := s.db.First(&order, in.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if order.BuyerID != reporterID && order.SellerID != reporterID {
		return nil, fmt.Errorf("%w: you are not a party to this order", ErrUnauthorizedRole)
	}

	against := in.ReportedAgainstID
	if against == 0 {
		// default to the counterparty
		against = order.BuyerID
		if reporterID == order.BuyerID {
			against = order.SellerID
		}
	}
	if against == reporterID || (against != order.BuyerID && against != order.SellerID) {
		return nil, fmt.Errorf("%w: dispute must name the order counterparty", ErrUnauthorizedRole)
	}

	dispute := &models.Dispute{
		OrderID:           in.OrderID,
		ReportedByID:      reporterID,
		ReportedAgainstID: against,
		Reason:            in.Reason,
		Description:       in.Description,
		Status:            models.DisputeOpen,
	}
	if err := s.db.Create(dispute).Error; err != nil {
		return nil, err
	}
	return dispute, nil
}

// MarkUnderReview moves OPEN -> UNDER_REVIEW.
func (s *DisputeService) MarkUnderReview(disputeID uint) (*models.Dispute, error) {
	return s.transition(disputeID, models.DisputeUnderReview, "", nil,
		models.DisputeOpen)
}

// Resolve moves OPEN or UNDER_REVIEW -> RESOLVED and stamps the resolver.
func (s *DisputeService) Resolve(disputeID, resolverID uint, resolution string) (*models.Dispute, error) {
	return s.transition(disputeID, models.DisputeResolved, resolution, &resolverID,
		models.DisputeOpen, models.DisputeUnderReview)
}

// Close moves any non-closed dispute -> CLOSED.
func (s *DisputeService) Close(disputeID uint) (*models.Dispute, error) {
	return s.transition(disputeID, models.DisputeClosed, "", nil,
		models.DisputeOpen, models.DisputeUnderReview, models.DisputeResolved)
}

func (s *DisputeService) transition(disputeID uint, target models.DisputeStatus, resolution string, resolverID *uint, from ...models.DisputeStatus) (*models.Dispute, error) {
	var dispute models.Dispute
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dispute, disputeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		allowed := false
		for _, f := range from {
			if dispute.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: cannot move dispute from %s to %s", ErrInvalidTransition, dispute.Status, target)
		}

		dispute.Status = target
		if target == models.DisputeResolved {
			now := time.Now()
			dispute.Resolution = resolution
			dispute.ResolvedByID = resolverID
			dispute.ResolvedAt = &now
		}
		return tx.Save(&dispute).Error
	})
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// GetByID returns a dispute with its order and parties preloaded.
func (s *DisputeService) GetByID(disputeID uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := s.db.Preload("Order").Preload("ReportedBy").Preload("ReportedAgainst").
		First(&dispute, disputeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

// ListByOrder returns all disputes raised against an order.
func (s *DisputeService) ListByOrder(orderID uint) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := s.db.Preload("ReportedBy").Preload("ReportedAgainst").
		Where("order_id = ?", orderID).Order("created_at DESC").Find(&disputes).Error
	return disputes, err
}

// ListForUser returns disputes where the user is on either side.
func (s *DisputeService) ListForUser(userID uint) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := s.db.Preload("Order").Preload("ReportedBy").Preload("ReportedAgainst").
		Where("reported_by_id = ? OR reported_against_id = ?", userID, userID).
		Order("created_at DESC").Find(&disputes).Error
	return disputes, err
}

// ListByStatus returns disputes filtered by status, admin view. An empty
// status returns everything.
func (s *DisputeService) ListByStatus(status models.DisputeStatus) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := s.db.Preload("Order").Preload("ReportedBy").Preload("ReportedAgainst").
		Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&disputes).Error
	return disputes, err
}
