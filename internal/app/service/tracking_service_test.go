package service

import (
	"testing"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingService_EmptyFeedHasNoLocation(t *testing.T) {
	f := setupServiceTest(t)
	order := f.placeOrder(t)

	feed, err := f.tracking.GetFeed(actorOf(f.customer), order.ID)
	require.NoError(t, err)
	assert.Empty(t, feed.Events)
	assert.Nil(t, feed.CurrentLocation)
	assert.Nil(t, feed.LastPositionAt)
	assert.False(t, feed.Stale)
	assert.Zero(t, feed.DistanceKm)
	assert.Equal(t, 10, feed.PollIntervalSeconds)
}

func TestTrackingService_RecordAndFeed(t *testing.T) {
	f := setupServiceTest(t)
	order := f.placeOrder(t)
	f.advanceTo(t, order, model.OrderStatusInTransit)

	// transit was started without a position: still no location
	feed, err := f.tracking.GetFeed(actorOf(f.customer), order.ID)
	require.NoError(t, err)
	require.Len(t, feed.Events, 1)
	assert.Nil(t, feed.CurrentLocation)

	points := [][2]float64{{48.8566, 2.3522}, {48.8606, 2.3376}}
	for _, p := range points {
		lat, lng := p[0], p[1]
		_, err := f.tracking.RecordLocation(actorOf(f.courier), order.ID, &lat, &lng, nil)
		require.NoError(t, err)
	}
	note := "Bloqué au feu"
	_, err = f.tracking.RecordLocation(actorOf(f.courier), order.ID, nil, nil, &note)
	require.NoError(t, err)

	feed, err = f.tracking.GetFeed(actorOf(f.customer), order.ID)
	require.NoError(t, err)
	require.Len(t, feed.Events, 4)
	require.NotNil(t, feed.CurrentLocation)
	assert.Equal(t, 48.8606, feed.CurrentLocation.Latitude)
	assert.Equal(t, 2.3376, feed.CurrentLocation.Longitude)
	assert.InDelta(t, 1.1, feed.DistanceKm, 0.2)
	assert.False(t, feed.Stale)
	assert.Equal(t, model.OrderStatusInTransit, feed.Status)
}

func TestTrackingService_RecordLocation_Rejections(t *testing.T) {
	f := setupServiceTest(t)
	order := f.placeOrder(t)
	lat, lng := 48.85, 2.35

	// not on the delivery leg yet
	_, err := f.tracking.RecordLocation(actorOf(f.admin), order.ID, &lat, &lng, nil)
	assert.ErrorIs(t, err, ErrGuardViolation)

	f.advanceTo(t, order, model.OrderStatusPickedUp)

	_, err = f.tracking.RecordLocation(actorOf(f.courier2), order.ID, &lat, &lng, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.tracking.RecordLocation(actorOf(f.customer), order.ID, &lat, &lng, nil)
	assert.ErrorIs(t, err, ErrForbiddenActor)

	_, err = f.tracking.RecordLocation(actorOf(f.courier), order.ID, &lat, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	bad := 200.0
	_, err = f.tracking.RecordLocation(actorOf(f.courier), order.ID, &lat, &bad, nil)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	entry, err := f.tracking.RecordLocation(actorOf(f.courier), order.ID, &lat, &lng, nil)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPickedUp, entry.Status)
}

func TestTrackingService_StaleFlag(t *testing.T) {
	f := setupServiceTest(t)
	order := f.placeOrder(t)
	f.advanceTo(t, order, model.OrderStatusPickedUp)

	lat, lng := 48.85, 2.35
	_, err := f.tracking.RecordLocation(actorOf(f.courier), order.ID, &lat, &lng, nil)
	require.NoError(t, err)

	svc := f.tracking.(*trackingService)
	svc.now = func() time.Time { return time.Now().Add(5 * time.Minute) }

	feed, err := f.tracking.GetFeed(actorOf(f.customer), order.ID)
	require.NoError(t, err)
	assert.True(t, feed.Stale)
}

func TestTrackingService_Visibility(t *testing.T) {
	f := setupServiceTest(t)
	order := f.placeOrder(t)

	assert.NoError(t, f.tracking.CanWatch(actorOf(f.customer), order.ID))
	assert.NoError(t, f.tracking.CanWatch(actorOf(f.manager), order.ID))
	assert.ErrorIs(t, f.tracking.CanWatch(actorOf(f.other), order.ID), ErrOrderNotFound)

	_, err := f.tracking.GetFeed(actorOf(f.other), order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTrackingService_CanUploadProof(t *testing.T) {
	f := setupServiceTest(t)
	order := f.placeOrder(t)

	// not assigned yet: the pool is visible to couriers but nobody runs it
	order = f.advanceTo(t, order, model.OrderStatusValidated)
	assert.ErrorIs(t, f.tracking.CanUploadProof(actorOf(f.courier), order.ID), ErrForbiddenActor)

	order = f.advanceTo(t, order, model.OrderStatusPickedUp)
	assert.NoError(t, f.tracking.CanUploadProof(actorOf(f.courier), order.ID))
	assert.NoError(t, f.tracking.CanUploadProof(actorOf(f.admin), order.ID))
	assert.ErrorIs(t, f.tracking.CanUploadProof(actorOf(f.courier2), order.ID), ErrOrderNotFound)
	assert.ErrorIs(t, f.tracking.CanUploadProof(actorOf(f.customer), order.ID), ErrForbiddenActor)

	f.advanceTo(t, order, model.OrderStatusDelivered)
	assert.ErrorIs(t, f.tracking.CanUploadProof(actorOf(f.courier), order.ID), ErrGuardViolation)
}

func TestTrackingService_CollectUpdates(t *testing.T) {
	f := setupServiceTest(t)
	first := f.placeOrder(t)
	second := f.placeOrder(t)

	start, err := f.tracking.CurrentWatermark()
	require.NoError(t, err)
	assert.Zero(t, start)

	f.advanceTo(t, first, model.OrderStatusInTransit)
	f.advanceTo(t, second, model.OrderStatusInTransit)

	updates, err := f.tracking.CollectUpdates(start)
	require.NoError(t, err)
	assert.Len(t, updates.ByOrder, 2)
	assert.Len(t, updates.ByOrder[first.ID], 1)
	assert.NotZero(t, updates.Watermark)

	again, err := f.tracking.CollectUpdates(updates.Watermark)
	require.NoError(t, err)
	assert.Empty(t, again.ByOrder)
	assert.Equal(t, updates.Watermark, again.Watermark)
}
