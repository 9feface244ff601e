package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/internal/models"
)

func TestRegisterBatchWritesGenesisRecord(t *testing.T) {
	reg, db, users := newTestRegistry(t)

	batch, err := reg.Inventory.RegisterBatch(users.farmer.ID, RegisterBatchInput{
		CropName:    "Tomatoes",
		CropType:    "Vegetable",
		Unit:        "kg",
		HarvestDate: "2026-08-20",
		Location:    "Sunrise Farm",
		Quantity:    dec(t, "250"),
	})
	require.NoError(t, err)

	assert.True(t, batch.QuantityTotal.Equal(dec(t, "250")))
	assert.True(t, batch.QuantityAvailable.Equal(dec(t, "250")))
	assert.True(t, batch.QuantityReserved.IsZero())
	assert.True(t, batch.QuantitySold.IsZero())
	assert.Equal(t, models.CropHarvested, batch.Status)
	assert.False(t, batch.Listed)
	assert.Len(t, batch.GenesisHash, 64)

	chain, err := reg.Traceability.GetChain(batch.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, models.StageHarvested, chain[0].Stage)
	assert.Equal(t, batch.GenesisHash, chain[0].RecordHash)

	requireBalanced(t, db, batch.ID)
}

func TestRegisterBatchRejectsNonPositiveQuantity(t *testing.T) {
	reg, _, users := newTestRegistry(t)

	_, err := reg.Inventory.RegisterBatch(users.farmer.ID, RegisterBatchInput{
		CropName: "Tomatoes",
		Unit:     "kg",
		Quantity: dec(t, "0"),
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListForSaleAppendsListedRecord(t *testing.T) {
	reg, _, users := newTestRegistry(t)

	batch := newListedBatch(t, reg, users.farmer.ID, "100", "2.50")
	assert.True(t, batch.Listed)
	require.NotNil(t, batch.PricePerUnit)
	assert.True(t, batch.PricePerUnit.Equal(dec(t, "2.50")))

	chain, err := reg.Traceability.GetChain(batch.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, models.StageListed, chain[1].Stage)
}

func TestListForSaleOwnerOnly(t *testing.T) {
	reg, _, users := newTestRegistry(t)

	batch, err := reg.Inventory.RegisterBatch(users.farmer.ID, RegisterBatchInput{
		CropName: "Maize", Unit: "kg", Quantity: dec(t, "50"),
	})
	require.NoError(t, err)

	_, err = reg.Inventory.ListForSale(batch.ID, users.distributor.ID, dec(t, "1.00"))
	assert.ErrorIs(t, err, ErrUnauthorizedRole)
}

func TestReserveRequiresListing(t *testing.T) {
	reg, _, users := newTestRegistry(t)

	batch, err := reg.Inventory.RegisterBatch(users.farmer.ID, RegisterBatchInput{
		CropName: "Maize", Unit: "kg", Quantity: dec(t, "50"),
	})
	require.NoError(t, err)

	_, err = reg.Inventory.Reserve(batch.ID, 1001, dec(t, "10"))
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestReserveInsufficientStock(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "30", "1.00")

	_, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "30.5"))
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// failed reserve must not move any counter
	got := reloadBatch(t, db, batch.ID)
	assert.True(t, got.QuantityAvailable.Equal(dec(t, "30")))
	assert.True(t, got.QuantityReserved.IsZero())
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.Inventory.Reserve(batch.ID, uint(2000+i), dec(t, "60"))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else if errors.Is(err, ErrInsufficientStock) {
			lost++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	got := reloadBatch(t, db, batch.ID)
	assert.True(t, got.QuantityAvailable.Equal(dec(t, "40")))
	assert.True(t, got.QuantityReserved.Equal(dec(t, "60")))
	requireBalanced(t, db, batch.ID)
}

func TestManyConcurrentReserves(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.Inventory.Reserve(batch.ID, uint(3000+i), dec(t, "15"))
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	// 6 * 15 = 90 fits in 100, a 7th would need 105
	assert.Equal(t, 6, won)
	requireBalanced(t, db, batch.ID)
}

func TestReleaseRestoresAvailability(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")

	res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "25"))
	require.NoError(t, err)

	require.NoError(t, reg.Inventory.Release(res.ID))

	got := reloadBatch(t, db, batch.ID)
	assert.True(t, got.QuantityAvailable.Equal(dec(t, "100")))
	assert.True(t, got.QuantityReserved.IsZero())
	requireBalanced(t, db, batch.ID)
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")

	res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "25"))
	require.NoError(t, err)

	require.NoError(t, reg.Inventory.Release(res.ID))
	require.NoError(t, reg.Inventory.Release(res.ID))

	// the second release must not add the quantity back twice
	got := reloadBatch(t, db, batch.ID)
	assert.True(t, got.QuantityAvailable.Equal(dec(t, "100")))
	requireBalanced(t, db, batch.ID)
}

func TestReleaseCommittedReservationFails(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")

	res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "25"))
	require.NoError(t, err)
	_, err = reg.Inventory.Commit(res.ID, users.distributor.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Inventory.Release(res.ID), ErrAlreadyResolved)
}

func TestCommitSplitsDerivedBatch(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")

	res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "40"))
	require.NoError(t, err)

	derived, err := reg.Inventory.Commit(res.ID, users.distributor.ID)
	require.NoError(t, err)

	assert.Equal(t, users.distributor.ID, derived.CurrentOwnerID)
	assert.Equal(t, users.farmer.ID, derived.FarmerID)
	assert.Equal(t, models.CropInDistribution, derived.Status)
	require.NotNil(t, derived.ParentBatchID)
	assert.Equal(t, batch.ID, *derived.ParentBatchID)
	assert.True(t, derived.QuantityTotal.Equal(dec(t, "40")))
	assert.True(t, derived.QuantityAvailable.Equal(dec(t, "40")))

	parent := reloadBatch(t, db, batch.ID)
	assert.True(t, parent.QuantityAvailable.Equal(dec(t, "60")))
	assert.True(t, parent.QuantityReserved.IsZero())
	assert.True(t, parent.QuantitySold.Equal(dec(t, "40")))
	requireBalanced(t, db, batch.ID)
	requireBalanced(t, db, derived.ID)

	// derived chain starts with its own SOLD genesis; parent gains a SOLD record
	derivedChain, err := reg.Traceability.GetChain(derived.ID)
	require.NoError(t, err)
	require.Len(t, derivedChain, 1)
	assert.Equal(t, models.StageSold, derivedChain[0].Stage)

	parentChain, err := reg.Traceability.GetChain(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageSold, parentChain[len(parentChain)-1].Stage)
}

func TestCommitExhaustedBatchGoesSoldOut(t *testing.T) {
	reg, db, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "40", "1.00")

	res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "40"))
	require.NoError(t, err)
	_, err = reg.Inventory.Commit(res.ID, users.retailer.ID)
	require.NoError(t, err)

	parent := reloadBatch(t, db, batch.ID)
	assert.Equal(t, models.CropSoldOut, parent.Status)
	assert.False(t, parent.Listed)
}

func TestCommitDerivedStatusFollowsBuyerRole(t *testing.T) {
	cases := []struct {
		name  string
		buyer func(u testUsers) models.User
		want  models.CropStatus
	}{
		{"distributor", func(u testUsers) models.User { return u.distributor }, models.CropInDistribution},
		{"retailer", func(u testUsers) models.User { return u.retailer }, models.CropAtRetail},
		{"consumer", func(u testUsers) models.User { return u.consumer }, models.CropSold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, _, users := newTestRegistry(t)
			batch := newListedBatch(t, reg, users.farmer.ID, "50", "1.00")

			res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "10"))
			require.NoError(t, err)
			derived, err := reg.Inventory.Commit(res.ID, tc.buyer(users).ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, derived.Status)
		})
	}
}

func TestCommitTwiceFails(t *testing.T) {
	reg, _, users := newTestRegistry(t)
	batch := newListedBatch(t, reg, users.farmer.ID, "50", "1.00")

	res, err := reg.Inventory.Reserve(batch.ID, 1001, dec(t, "10"))
	require.NoError(t, err)
	_, err = reg.Inventory.Commit(res.ID, users.distributor.ID)
	require.NoError(t, err)

	_, err = reg.Inventory.Commit(res.ID, users.distributor.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestMarketplaceListsOnlyListedBatches(t *testing.T) {
	reg, _, users := newTestRegistry(t)

	listed := newListedBatch(t, reg, users.farmer.ID, "100", "1.00")
	_, err := reg.Inventory.RegisterBatch(users.farmer.ID, RegisterBatchInput{
		CropName: "Unlisted Beans", Unit: "kg", Quantity: dec(t, "10"),
	})
	require.NoError(t, err)

	batches, err := reg.Inventory.ListMarketplace()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, listed.ID, batches[0].ID)

	_, err = reg.Inventory.Unlist(listed.ID, users.farmer.ID)
	require.NoError(t, err)

	batches, err = reg.Inventory.ListMarketplace()
	require.NoError(t, err)
	assert.Empty(t, batches)
}
