package services

import "gorm.io/gorm"

// Registry wires the engine services over one database handle and one shared
// lock table, so per-entity serialization is consistent across services.
type Registry struct {
	Traceability *TraceabilityService
	Inventory    *InventoryService
	Orders       *OrderService
	Shipments    *ShipmentService
	Payments     *PaymentService
	Disputes     *DisputeService
}

func NewRegistry(db *gorm.DB) *Registry {
	locks := &entityLocks{}
	chain := NewTraceabilityService(db, locks)
	inventory := NewInventoryService(db, locks, chain)
	orders := NewOrderService(db, locks, inventory, chain)

	return &Registry{
		Traceability: chain,
		Inventory:    inventory,
		Orders:       orders,
		Shipments:    NewShipmentService(db, locks, orders, chain),
		Payments:     NewPaymentService(db, locks),
		Disputes:     NewDisputeService(db),
	}
}
