package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"agrichain/internal/models"
)

// PaymentService tracks settlement state per order. It never moves money;
// the external processor reports outcomes and this gate records them.
// Delivery is not gated on payment; callers read both states.
type PaymentService struct {
	db    *gorm.DB
	locks *entityLocks
}

func NewPaymentService(db *gorm.DB, locks *entityLocks) *PaymentService {
	return &PaymentService{db: db, locks: locks}
}

// Initiate creates a PENDING payment for the order. The amount must match
// the order total exactly. Re-initiating while a PENDING payment exists
// returns that payment; a FAILED payment is reset to PENDING.
func (s *PaymentService) Initiate(actorID, orderID uint, amount decimal.Decimal, method string) (*models.Payment, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.BuyerID != actorID {
		return nil, fmt.Errorf("%w: only the buyer can pay for this order", ErrUnauthorizedRole)
	}
	if !amount.Equal(order.TotalPrice) {
		return nil, ErrAmountMismatch
	}

	unlock := s.locks.lock(orderKey(orderID))
	defer unlock()

	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("order_id = ?", orderID).First(&payment).Error
		if err == nil {
			switch payment.Status {
			case models.PaymentCompleted:
				return ErrAlreadyCompleted
			case models.PaymentPending:
				return nil
			case models.PaymentFailed:
				payment.Status = models.PaymentPending
				payment.Amount = amount
				payment.Method = method
				payment.TransactionID = ""
				return tx.Save(&payment).Error
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		payment = models.Payment{
			OrderID: orderID,
			Amount:  amount,
			Method:  method,
			Status:  models.PaymentPending,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Complete moves PENDING -> COMPLETED and stamps the completion time.
// Re-completing with the same transaction id is an idempotent retry; with a
// different one it fails with ErrAlreadyCompleted.
func (s *PaymentService) Complete(paymentID uint, transactionID string) (*models.Payment, error) {
	peek, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(orderKey(peek.OrderID))
	defer unlock()

	if transactionID == "" {
		transactionID = "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	var payment models.Payment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			return err
		}
		switch payment.Status {
		case models.PaymentCompleted:
			if payment.TransactionID == transactionID {
				return nil
			}
			return ErrAlreadyCompleted
		case models.PaymentFailed:
			return fmt.Errorf("%w: cannot complete a failed payment", ErrInvalidTransition)
		}

		now := time.Now()
		payment.Status = models.PaymentCompleted
		payment.TransactionID = transactionID
		payment.CompletedAt = &now
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Fail records a processor-reported failure for a PENDING payment.
func (s *PaymentService) Fail(paymentID uint) (*models.Payment, error) {
	peek, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(orderKey(peek.OrderID))
	defer unlock()

	var payment models.Payment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			return err
		}
		if payment.Status == models.PaymentCompleted {
			return ErrAlreadyCompleted
		}
		if payment.Status != models.PaymentPending {
			return fmt.Errorf("%w: cannot fail payment in status %s", ErrInvalidTransition, payment.Status)
		}
		payment.Status = models.PaymentFailed
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrder returns the order's payment, if any.
func (s *PaymentService) GetByOrder(orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Where("order_id = ?", orderID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) getPayment(paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}
