package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/internal/models"
)

// acceptedOrder sets up a farmer-to-distributor order ready to ship.
func acceptedOrder(t *testing.T, reg *Registry, users testUsers) (*models.CropBatch, *models.Order) {
	t.Helper()
	batch, order := placeOrder(t, reg, users, "30")
	_, err := reg.Orders.Accept(order.ID, users.farmer.ID)
	require.NoError(t, err)
	return batch, order
}

func newShipment(t *testing.T, reg *Registry, users testUsers, orderID uint) *models.Shipment {
	t.Helper()
	shipment, err := reg.Shipments.Create(users.farmer.ID, CreateShipmentInput{
		OrderID:       orderID,
		Location:      "Green Valley Farm",
		TransportMode: "TRUCK",
		CarrierName:   "AgriFreight Ltd",
	})
	require.NoError(t, err)
	return shipment
}

func TestCreateShipmentMovesOrderToShipped(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	batch, order := acceptedOrder(t, reg, users)

	shipment := newShipment(t, reg, users, order.ID)
	assert.Equal(t, models.ShipmentCreated, shipment.Status)
	assert.True(t, strings.HasPrefix(shipment.TrackingNumber, "AGC-"))
	assert.NotNil(t, shipment.EstimatedDelivery)

	reloaded, err := reg.Orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, reloaded.Status)

	chain, err := reg.Traceability.GetChain(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageShipped, chain[len(chain)-1].Stage)
}

func TestCreateShipmentSellerOnly(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)

	_, err := reg.Shipments.Create(users.distributor.ID, CreateShipmentInput{
		OrderID: order.ID, Location: "Anywhere",
	})
	assert.ErrorIs(t, err, ErrUnauthorizedRole)
}

func TestCreateShipmentRequiresAcceptedOrder(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := placeOrder(t, reg, users, "30")

	_, err := reg.Shipments.Create(users.farmer.ID, CreateShipmentInput{
		OrderID: order.ID, Location: "Green Valley Farm",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreateShipmentOncePerOrder(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	newShipment(t, reg, users, order.ID)

	_, err := reg.Shipments.Create(users.farmer.ID, CreateShipmentInput{
		OrderID: order.ID, Location: "Green Valley Farm",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSimulateMovementWalksRouteAndDelivers(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	var locations []string
	for i := 0; i < len(simulationWaypoints); i++ {
		s, err := reg.Shipments.SimulateMovement(shipment.ID, users.farmer.ID)
		require.NoError(t, err)
		locations = append(locations, s.CurrentLocation)
	}

	assert.Equal(t, simulationWaypoints, locations)

	final, err := reg.Shipments.GetByID(shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentDelivered, final.Status)
	assert.NotNil(t, final.ActualDelivery)

	reloaded, err := reg.Orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, reloaded.Status)

	parent := reloadBatch(t, db, batch.ID)
	assert.True(t, parent.QuantitySold.Equal(dec(t, "30")))
	requireBalanced(t, db, batch.ID)

	ok, err := reg.Traceability.Verify(batch.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSimulateMovementAfterDeliveryIsNoOp(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	for i := 0; i < len(simulationWaypoints); i++ {
		_, err := reg.Shipments.SimulateMovement(shipment.ID, users.farmer.ID)
		require.NoError(t, err)
	}

	again, err := reg.Shipments.SimulateMovement(shipment.ID, users.distributor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentDelivered, again.Status)
	assert.Equal(t, simulationWaypoints[len(simulationWaypoints)-1], again.CurrentLocation)
}

func TestMarkDeliveredByBuyer(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	delivered, err := reg.Shipments.MarkDelivered(shipment.ID, users.distributor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentDelivered, delivered.Status)

	reloaded, err := reg.Orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, reloaded.Status)
	requireBalanced(t, db, batch.ID)
}

func TestMarkDeliveredPartiesOnly(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	_, err := reg.Shipments.MarkDelivered(shipment.ID, users.retailer.ID)
	assert.ErrorIs(t, err, ErrUnauthorizedRole)
}

func TestMarkDeliveredTwiceFails(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	_, err := reg.Shipments.MarkDelivered(shipment.ID, users.distributor.ID)
	require.NoError(t, err)
	_, err = reg.Shipments.MarkDelivered(shipment.ID, users.distributor.ID)
	assert.ErrorIs(t, err, ErrShipmentClosed)
}

func TestUpdateTelemetry(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	temp, hum := 4.5, 62.0
	updated, err := reg.Shipments.UpdateTelemetry(shipment.ID, users.farmer.ID, &temp, &hum)
	require.NoError(t, err)
	require.NotNil(t, updated.Temperature)
	assert.Equal(t, 4.5, *updated.Temperature)
	require.NotNil(t, updated.Humidity)
	assert.Equal(t, 62.0, *updated.Humidity)
	assert.NotNil(t, updated.LastSensorUpdate)

	// partial update keeps the other reading
	temp2 := 3.9
	updated, err = reg.Shipments.UpdateTelemetry(shipment.ID, users.farmer.ID, &temp2, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.9, *updated.Temperature)
	assert.Equal(t, 62.0, *updated.Humidity)
}

func TestUpdateLocationAppendsTransitRecord(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	batch, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	updated, err := reg.Shipments.UpdateLocation(shipment.ID, users.farmer.ID, "Highway 7 Checkpoint")
	require.NoError(t, err)
	assert.Equal(t, "Highway 7 Checkpoint", updated.CurrentLocation)
	assert.Equal(t, models.ShipmentInTransit, updated.Status)

	chain, err := reg.Traceability.GetChain(batch.ID)
	require.NoError(t, err)
	last := chain[len(chain)-1]
	assert.Equal(t, models.StageInTransit, last.Stage)
	assert.Equal(t, "Highway 7 Checkpoint", last.Location)
}

func TestMutationsRejectedOnceClosed(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	_, err := reg.Shipments.MarkDelivered(shipment.ID, users.distributor.ID)
	require.NoError(t, err)

	temp := 5.0
	_, err = reg.Shipments.UpdateTelemetry(shipment.ID, users.farmer.ID, &temp, nil)
	assert.ErrorIs(t, err, ErrShipmentClosed)

	_, err = reg.Shipments.UpdateLocation(shipment.ID, users.farmer.ID, "Nowhere")
	assert.ErrorIs(t, err, ErrShipmentClosed)
}

func TestSimulateMovementPartiesOnly(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	// an unrelated user must not be able to walk the shipment to arrival
	// and force the delivery side effects
	for _, outsider := range []uint{users.retailer.ID, users.consumer.ID, users.admin.ID} {
		for i := 0; i < len(simulationWaypoints); i++ {
			_, err := reg.Shipments.SimulateMovement(shipment.ID, outsider)
			assert.ErrorIs(t, err, ErrUnauthorizedRole)
		}
	}

	reloaded, err := reg.Orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, reloaded.Status)

	unmoved, err := reg.Shipments.GetByID(shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentCreated, unmoved.Status)

	parent := reloadBatch(t, db, batch.ID)
	assert.True(t, parent.QuantitySold.IsZero())
	assert.True(t, parent.QuantityReserved.Equal(dec(t, "30")))

	// the buyer may advance it
	advanced, err := reg.Shipments.SimulateMovement(shipment.ID, users.distributor.ID)
	require.NoError(t, err)
	assert.Equal(t, simulationWaypoints[0], advanced.CurrentLocation)
}

func TestShipmentUpdatesSellerOnly(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	temp := 4.5
	_, err := reg.Shipments.UpdateTelemetry(shipment.ID, users.distributor.ID, &temp, nil)
	assert.ErrorIs(t, err, ErrUnauthorizedRole)

	_, err = reg.Shipments.UpdateLocation(shipment.ID, users.retailer.ID, "Hijacked Hub")
	assert.ErrorIs(t, err, ErrUnauthorizedRole)

	unchanged, err := reg.Shipments.GetByID(shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green Valley Farm", unchanged.CurrentLocation)
	assert.Nil(t, unchanged.Temperature)
}

func TestTrackByTrackingNumber(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	_, order := acceptedOrder(t, reg, users)
	shipment := newShipment(t, reg, users, order.ID)

	found, err := reg.Shipments.Track(shipment.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, shipment.ID, found.ID)
	assert.Equal(t, order.ID, found.OrderID)

	_, err = reg.Shipments.Track("AGC-DOESNOTX")
	assert.ErrorIs(t, err, ErrNotFound)
}
