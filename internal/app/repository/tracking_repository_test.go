package repository

import (
	"testing"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestTrackingRepository_FindByOrderID_Ordered(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := NewTrackingRepository(testDB)
	const orderID = uint(1)

	entries, err := repo.FindByOrderID(orderID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	base := time.Now().Add(-time.Minute)
	require.NoError(t, repo.Append(&model.DeliveryTracking{
		OrderID: orderID, DeliveryPersonID: 9, Status: model.OrderStatusInTransit,
		Latitude: floatPtr(48.85), Longitude: floatPtr(2.35), CreatedAt: base,
	}))
	require.NoError(t, repo.Append(&model.DeliveryTracking{
		OrderID: orderID, DeliveryPersonID: 9, Status: model.OrderStatusInTransit,
		Latitude: floatPtr(48.86), Longitude: floatPtr(2.36), CreatedAt: base.Add(10 * time.Second),
	}))
	// appended out of time order: the feed still reads oldest first
	require.NoError(t, repo.Append(&model.DeliveryTracking{
		OrderID: orderID, DeliveryPersonID: 9, Status: model.OrderStatusInTransit, CreatedAt: base.Add(-10 * time.Second),
	}))
	require.NoError(t, repo.Append(&model.DeliveryTracking{
		OrderID: orderID + 1, DeliveryPersonID: 9, Status: model.OrderStatusInTransit, CreatedAt: base,
	}))

	entries, err = repo.FindByOrderID(orderID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Nil(t, entries[0].Latitude)
	assert.Equal(t, 48.85, *entries[1].Latitude)
	assert.Equal(t, 48.86, *entries[2].Latitude)
}

func TestTrackingRepository_Watermark(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := NewTrackingRepository(testDB)

	maxID, err := repo.MaxID()
	require.NoError(t, err)
	assert.Zero(t, maxID)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(&model.DeliveryTracking{OrderID: uint(i + 1), DeliveryPersonID: 9, Status: model.OrderStatusInTransit}))
	}

	maxID, err = repo.MaxID()
	require.NoError(t, err)

	page, err := repo.FindAfterID(maxID-2, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, maxID, page[1].ID)

	page, err = repo.FindAfterID(0, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
