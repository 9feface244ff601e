package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shopspring/decimal"

	"agrichain/internal/models"
)

// OrderService drives a single order through its lifecycle. Transitions on
// the same order serialize through a per-order lock; the losing side of a
// concurrent conflicting transition gets ErrInvalidTransition, never a
// silent overwrite.
type OrderService struct {
	db        *gorm.DB
	locks     *entityLocks
	inventory *InventoryService
	chain     *TraceabilityService
}

func NewOrderService(db *gorm.DB, locks *entityLocks, inventory *InventoryService, chain *TraceabilityService) *OrderService {
	return &OrderService{db: db, locks: locks, inventory: inventory, chain: chain}
}

// Create places a buy request against a listed batch and reserves the
// quantity in the same transaction. Price is frozen at request time.
func (s *OrderService) Create(buyerID, cropID uint, quantity decimal.Decimal) (*models.Order, error) {
	var buyer models.User
	if err := s.db.First(&buyer, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	crop, err := s.inventory.GetBatch(cropID)
	if err != nil {
		return nil, err
	}
	if !crop.Listed || crop.PricePerUnit == nil {
		return nil, ErrNotListed
	}
	if crop.CurrentOwnerID == buyerID {
		return nil, fmt.Errorf("%w: cannot buy your own batch", ErrUnauthorizedRole)
	}

	var seller models.User
	if err := s.db.First(&seller, crop.CurrentOwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !buyer.CanBuyFrom(seller.Role) {
		return nil, fmt.Errorf("%w: %s cannot buy from %s", ErrUnauthorizedRole, buyer.Role, seller.Role)
	}

	unlock := s.locks.lock(batchKey(cropID))
	defer unlock()

	order := &models.Order{
		CropID:       cropID,
		BuyerID:      buyerID,
		SellerID:     seller.ID,
		Quantity:     quantity,
		PricePerUnit: *crop.PricePerUnit,
		TotalPrice:   crop.PricePerUnit.Mul(quantity),
		Status:       models.OrderRequested,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		_, err := s.inventory.reserveTx(tx, cropID, order.ID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Accept moves REQUESTED -> ACCEPTED. Seller only; the reservation placed at
// request time stays held.
func (s *OrderService) Accept(orderID, actorID uint) (*models.Order, error) {
	unlock := s.locks.lock(orderKey(orderID))
	defer unlock()

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.SellerID != actorID {
			return fmt.Errorf("%w: only the seller can accept this order", ErrUnauthorizedRole)
		}
		if order.Status != models.OrderRequested {
			return fmt.Errorf("%w: cannot accept order in status %s", ErrInvalidTransition, order.Status)
		}

		var res models.Reservation
		if err := tx.Where("order_id = ?", orderID).First(&res).Error; err != nil {
			return fmt.Errorf("%w: reservation missing for order", ErrInvalidTransition)
		}
		if res.Status != models.ReservationHeld {
			return fmt.Errorf("%w: reservation no longer held", ErrInvalidTransition)
		}

		now := time.Now()
		order.Status = models.OrderAccepted
		order.AcceptedAt = &now
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Reject moves REQUESTED -> REJECTED and releases the reservation. Seller
// only.
func (s *OrderService) Reject(orderID, actorID uint) (*models.Order, error) {
	return s.abort(orderID, actorID, models.OrderRejected)
}

// Cancel moves REQUESTED -> CANCELLED and releases the reservation. Buyer
// only.
func (s *OrderService) Cancel(orderID, actorID uint) (*models.Order, error) {
	return s.abort(orderID, actorID, models.OrderCancelled)
}

func (s *OrderService) abort(orderID, actorID uint, target models.OrderStatus) (*models.Order, error) {
	peek, err := s.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	unlockO := s.locks.lock(orderKey(orderID))
	defer unlockO()
	unlockB := s.locks.lock(batchKey(peek.CropID))
	defer unlockB()

	var order models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadOrder(tx, orderID, &order); err != nil {
			return err
		}
		switch target {
		case models.OrderRejected:
			if order.SellerID != actorID {
				return fmt.Errorf("%w: only the seller can reject this order", ErrUnauthorizedRole)
			}
		case models.OrderCancelled:
			if order.BuyerID != actorID {
				return fmt.Errorf("%w: only the buyer can cancel this order", ErrUnauthorizedRole)
			}
		}
		if order.Status != models.OrderRequested {
			return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidTransition, order.Status, target)
		}

		var res models.Reservation
		if err := tx.Where("order_id = ?", orderID).First(&res).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else if err := s.inventory.releaseTx(tx, res.ID); err != nil {
			return err
		}

		order.Status = target
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmDelivered moves SHIPPED -> DELIVERED on explicit confirmation by
// either party, committing the reservation and appending the DELIVERED
// chain record.
func (s *OrderService) ConfirmDelivered(orderID, actorID uint) (*models.Order, error) {
	peek, err := s.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if peek.BuyerID != actorID && peek.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the buyer or seller can confirm delivery", ErrUnauthorizedRole)
	}

	unlockO := s.locks.lock(orderKey(orderID))
	defer unlockO()
	unlockB := s.locks.lock(batchKey(peek.CropID))
	defer unlockB()
	unlockC := s.locks.lock(chainKey(peek.CropID))
	defer unlockC()

	var order models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.Status != models.OrderShipped {
			return fmt.Errorf("%w: cannot deliver order in status %s", ErrInvalidTransition, order.Status)
		}
		return s.deliverTx(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// markShippedTx flips ACCEPTED -> SHIPPED as part of shipment creation.
// Not separately invocable; caller holds the order lock.
func (s *OrderService) markShippedTx(tx *gorm.DB, order *models.Order) error {
	if order.Status != models.OrderAccepted {
		return fmt.Errorf("%w: order must be ACCEPTED to ship, is %s", ErrInvalidTransition, order.Status)
	}
	order.Status = models.OrderShipped
	return tx.Save(order).Error
}

// deliverTx finalizes an order: commits the reservation (splitting off the
// buyer's batch), appends DELIVERED to the chain and closes the shipment row
// if one exists. Caller holds the order, batch and chain locks and has
// validated the transition.
func (s *OrderService) deliverTx(tx *gorm.DB, order *models.Order) error {
	var res models.Reservation
	if err := tx.Where("order_id = ?", order.ID).First(&res).Error; err != nil {
		return fmt.Errorf("%w: reservation missing for order", ErrInvalidTransition)
	}

	var buyer models.User
	if err := tx.First(&buyer, order.BuyerID).Error; err != nil {
		return err
	}
	if _, err := s.inventory.commitTx(tx, res.ID, &buyer); err != nil {
		return err
	}

	if _, err := s.chain.appendTx(tx, order.CropID, models.StageDelivered, "",
		fmt.Sprintf("Order %d delivered to buyer %d", order.ID, order.BuyerID)); err != nil {
		return err
	}

	now := time.Now()
	order.Status = models.OrderDelivered
	order.DeliveredAt = &now
	if err := tx.Save(order).Error; err != nil {
		return err
	}

	var sh models.Shipment
	err := tx.Where("order_id = ?", order.ID).First(&sh).Error
	if err == nil {
		sh.Status = models.ShipmentDelivered
		sh.ActualDelivery = &now
		return tx.Save(&sh).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func loadOrder(tx *gorm.DB, orderID uint, out *models.Order) error {
	if err := tx.First(out, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// GetByID returns the order with its crop and parties preloaded.
func (s *OrderService) GetByID(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Crop").Preload("Buyer").Preload("Seller").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListForUser returns orders where the user is buyer, seller or either.
func (s *OrderService) ListForUser(userID uint, role string) ([]models.Order, error) {
	query := s.db.Preload("Crop").Preload("Buyer").Preload("Seller")

	switch role {
	case "buyer":
		query = query.Where("buyer_id = ?", userID)
	case "seller":
		query = query.Where("seller_id = ?", userID)
	default:
		query = query.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	}

	var orders []models.Order
	err := query.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// PendingForSeller returns the seller's orders still awaiting a decision.
func (s *OrderService) PendingForSeller(sellerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Crop").Preload("Buyer").
		Where("seller_id = ? AND status = ?", sellerID, models.OrderRequested).
		Order("created_at ASC").Find(&orders).Error
	return orders, err
}

// ListAll returns every order, admin view.
func (s *OrderService) ListAll() ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Crop").Preload("Buyer").Preload("Seller").
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}
