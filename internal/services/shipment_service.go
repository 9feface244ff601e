package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agrichain/internal/models"
)

// simulationWaypoints is the deterministic route a simulated shipment walks,
// one step per SimulateMovement call. Reaching the last entry marks the
// shipment ARRIVED and delivers the order in the same transaction.
var simulationWaypoints = []string{
	"Local Hub",
	"In Transit - Highway 42",
	"Regional Distribution Ctr",
	"Last Mile Hub",
	"Delivered to Customer",
}

// ShipmentService runs the shipment sub-state-machine bound 1:1 to an
// accepted order.
type ShipmentService struct {
	db     *gorm.DB
	locks  *entityLocks
	orders *OrderService
	chain  *TraceabilityService
}

func NewShipmentService(db *gorm.DB, locks *entityLocks, orders *OrderService, chain *TraceabilityService) *ShipmentService {
	return &ShipmentService{db: db, locks: locks, orders: orders, chain: chain}
}

type CreateShipmentInput struct {
	OrderID       uint
	Location      string
	TransportMode string
	CarrierName   string
}

// Create opens a shipment for an accepted order and moves the order to
// SHIPPED in the same atomic step.
func (s *ShipmentService) Create(actorID uint, in CreateShipmentInput) (*models.Shipment, error) {
	peek, err := s.orders.GetByID(in.OrderID)
	if err != nil {
		return nil, err
	}
	if peek.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the seller can create a shipment", ErrUnauthorizedRole)
	}

	unlockO := s.locks.lock(orderKey(in.OrderID))
	defer unlockO()
	unlockC := s.locks.lock(chainKey(peek.CropID))
	defer unlockC()

	eta := time.Now().Add(72 * time.Hour)
	shipment := &models.Shipment{
		OrderID:           in.OrderID,
		CurrentLocation:   in.Location,
		TransportMode:     in.TransportMode,
		CarrierName:       in.CarrierName,
		TrackingNumber:    generateTrackingNumber(),
		Status:            models.ShipmentCreated,
		WaypointIndex:     -1,
		EstimatedDelivery: &eta,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadOrder(tx, in.OrderID, &order); err != nil {
			return err
		}

		var existing models.Shipment
		if err := tx.Where("order_id = ?", in.OrderID).First(&existing).Error; err == nil {
			return fmt.Errorf("%w: shipment already exists for this order", ErrInvalidTransition)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.orders.markShippedTx(tx, &order); err != nil {
			return err
		}
		if err := tx.Create(shipment).Error; err != nil {
			return err
		}
		_, err := s.chain.appendTx(tx, order.CropID, models.StageShipped, in.Location,
			fmt.Sprintf("Shipment %s created via %s", shipment.TrackingNumber, in.TransportMode))
		return err
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// UpdateTelemetry records sensor readings. Pure data update, allowed while
// the shipment is open.
func (s *ShipmentService) UpdateTelemetry(shipmentID, actorID uint, temperature, humidity *float64) (*models.Shipment, error) {
	peek, err := s.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if peek.Order.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the seller can update this shipment", ErrUnauthorizedRole)
	}

	unlock := s.locks.lock(orderKey(peek.OrderID))
	defer unlock()

	var shipment models.Shipment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadOpenShipment(tx, shipmentID, &shipment); err != nil {
			return err
		}
		now := time.Now()
		if temperature != nil {
			shipment.Temperature = temperature
		}
		if humidity != nil {
			shipment.Humidity = humidity
		}
		shipment.LastSensorUpdate = &now
		return tx.Save(&shipment).Error
	})
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpdateLocation records the shipment's position and appends an IN_TRANSIT
// record to the crop's chain.
func (s *ShipmentService) UpdateLocation(shipmentID, actorID uint, location string) (*models.Shipment, error) {
	peek, err := s.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if peek.Order.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the seller can update this shipment", ErrUnauthorizedRole)
	}

	unlockO := s.locks.lock(orderKey(peek.OrderID))
	defer unlockO()
	unlockC := s.locks.lock(chainKey(peek.Order.CropID))
	defer unlockC()

	var shipment models.Shipment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loadOpenShipment(tx, shipmentID, &shipment); err != nil {
			return err
		}
		shipment.CurrentLocation = location
		if shipment.Status == models.ShipmentCreated {
			shipment.Status = models.ShipmentInTransit
		}
		if err := tx.Save(&shipment).Error; err != nil {
			return err
		}
		_, err := s.chain.appendTx(tx, peek.Order.CropID, models.StageInTransit, location, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// SimulateMovement advances the shipment one waypoint toward its
// destination. Only the order parties may advance it: arrival delivers the
// order and transfers ownership. On the final waypoint the shipment arrives
// and the order is delivered atomically; further calls are no-ops.
func (s *ShipmentService) SimulateMovement(shipmentID, actorID uint) (*models.Shipment, error) {
	peek, err := s.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if peek.Order.BuyerID != actorID && peek.Order.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the buyer or seller can advance this shipment", ErrUnauthorizedRole)
	}
	if peek.Status == models.ShipmentDelivered {
		return peek, nil
	}

	unlockO := s.locks.lock(orderKey(peek.OrderID))
	defer unlockO()
	unlockB := s.locks.lock(batchKey(peek.Order.CropID))
	defer unlockB()
	unlockC := s.locks.lock(chainKey(peek.Order.CropID))
	defer unlockC()

	var shipment models.Shipment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", shipmentID).First(&shipment).Error; err != nil {
			return err
		}
		if shipment.Status == models.ShipmentDelivered {
			return nil
		}

		var order models.Order
		if err := loadOrder(tx, shipment.OrderID, &order); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return ErrShipmentClosed
		}

		next := shipment.WaypointIndex + 1
		if next >= len(simulationWaypoints) {
			next = len(simulationWaypoints) - 1
		}
		shipment.WaypointIndex = next
		shipment.CurrentLocation = simulationWaypoints[next]

		if next == len(simulationWaypoints)-1 {
			shipment.Status = models.ShipmentArrived
			if err := tx.Save(&shipment).Error; err != nil {
				return err
			}
			// arrival at destination delivers the order in the same tx
			return s.orders.deliverTx(tx, &order)
		}

		shipment.Status = models.ShipmentInTransit
		if err := tx.Save(&shipment).Error; err != nil {
			return err
		}
		_, err := s.chain.appendTx(tx, order.CropID, models.StageInTransit, shipment.CurrentLocation, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	// re-read: delivery flips the row to DELIVERED inside the tx
	return s.GetByID(shipmentID)
}

// MarkDelivered confirms delivery explicitly, bypassing the simulation.
// Either order party may confirm.
func (s *ShipmentService) MarkDelivered(shipmentID, actorID uint) (*models.Shipment, error) {
	peek, err := s.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if peek.Order.BuyerID != actorID && peek.Order.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the buyer or seller can confirm delivery", ErrUnauthorizedRole)
	}

	unlockO := s.locks.lock(orderKey(peek.OrderID))
	defer unlockO()
	unlockB := s.locks.lock(batchKey(peek.Order.CropID))
	defer unlockB()
	unlockC := s.locks.lock(chainKey(peek.Order.CropID))
	defer unlockC()

	var shipment models.Shipment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", shipmentID).First(&shipment).Error; err != nil {
			return err
		}
		if shipment.Status == models.ShipmentDelivered {
			return ErrShipmentClosed
		}

		var order models.Order
		if err := loadOrder(tx, shipment.OrderID, &order); err != nil {
			return err
		}
		if order.Status != models.OrderShipped {
			return fmt.Errorf("%w: cannot deliver order in status %s", ErrInvalidTransition, order.Status)
		}

		shipment.Status = models.ShipmentArrived
		if err := tx.Save(&shipment).Error; err != nil {
			return err
		}
		return s.orders.deliverTx(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(shipmentID)
}

// loadOpenShipment fetches the shipment and rejects mutations once the
// shipment or its order has reached a terminal state.
func (s *ShipmentService) loadOpenShipment(tx *gorm.DB, shipmentID uint, out *models.Shipment) error {
	if err := tx.Where("id = ?", shipmentID).First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if out.Status == models.ShipmentDelivered {
		return ErrShipmentClosed
	}
	var order models.Order
	if err := loadOrder(tx, out.OrderID, &order); err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return ErrShipmentClosed
	}
	return nil
}

// GetByID returns the shipment with its order preloaded.
func (s *ShipmentService) GetByID(shipmentID uint) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.Preload("Order").First(&shipment, shipmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// GetByOrder returns the shipment bound to an order.
func (s *ShipmentService) GetByOrder(orderID uint) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.Preload("Order").Where("order_id = ?", orderID).First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// Track looks a shipment up by its public tracking number.
func (s *ShipmentService) Track(trackingNumber string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.Preload("Order").Where("tracking_number = ?", trackingNumber).First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// ListByStatus returns shipments filtered by status, admin view.
func (s *ShipmentService) ListByStatus(status models.ShipmentStatus) ([]models.Shipment, error) {
	var shipments []models.Shipment
	query := s.db.Preload("Order").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&shipments).Error
	return shipments, err
}

func generateTrackingNumber() string {
	return "AGC-" + strings.ToUpper(uuid.NewString()[:8])
}
