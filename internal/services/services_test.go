package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agrichain/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps every goroutine on the same in-memory db
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CropBatch{},
		&models.Reservation{},
		&models.Order{},
		&models.Shipment{},
		&models.Payment{},
		&models.TraceabilityRecord{},
		&models.Dispute{},
	))
	return db
}

type testUsers struct {
	farmer      models.User
	distributor models.User
	retailer    models.User
	consumer    models.User
	admin       models.User
}

func newTestRegistry(t *testing.T) (*Registry, *gorm.DB, testUsers) {
	t.Helper()

	db := newTestDB(t)
	users := testUsers{
		farmer:      models.User{FullName: "Asha Patel", Email: "asha@farm.test", Role: models.RoleFarmer},
		distributor: models.User{FullName: "Dele Obi", Email: "dele@dist.test", Role: models.RoleDistributor},
		retailer:    models.User{FullName: "Rita Gomez", Email: "rita@retail.test", Role: models.RoleRetailer},
		consumer:    models.User{FullName: "Chen Wei", Email: "chen@mail.test", Role: models.RoleConsumer},
		admin:       models.User{FullName: "Root Admin", Email: "admin@agrichain.test", Role: models.RoleAdmin},
	}
	require.NoError(t, db.Create(&users.farmer).Error)
	require.NoError(t, db.Create(&users.distributor).Error)
	require.NoError(t, db.Create(&users.retailer).Error)
	require.NoError(t, db.Create(&users.consumer).Error)
	require.NoError(t, db.Create(&users.admin).Error)

	return NewRegistry(db), db, users
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// newListedBatch registers a batch for the farmer and lists it.
func newListedBatch(t *testing.T, reg *Registry, farmerID uint, quantity, price string) *models.CropBatch {
	t.Helper()

	batch, err := reg.Inventory.RegisterBatch(farmerID, RegisterBatchInput{
		CropName:    "Basmati Rice",
		CropType:    "Grain",
		Unit:        "kg",
		HarvestDate: "2026-08-15",
		Location:    "Green Valley Farm",
		Quantity:    dec(t, quantity),
	})
	require.NoError(t, err)

	batch, err = reg.Inventory.ListForSale(batch.ID, farmerID, dec(t, price))
	require.NoError(t, err)
	return batch
}

func reloadBatch(t *testing.T, db *gorm.DB, id uint) *models.CropBatch {
	t.Helper()
	var batch models.CropBatch
	require.NoError(t, db.First(&batch, id).Error)
	return &batch
}

func requireBalanced(t *testing.T, db *gorm.DB, cropID uint) {
	t.Helper()
	batch := reloadBatch(t, db, cropID)
	require.True(t, batch.QuantitiesBalanced(),
		"available %s + reserved %s + sold %s != total %s",
		batch.QuantityAvailable, batch.QuantityReserved, batch.QuantitySold, batch.QuantityTotal)
}
