package repository

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/recetteplus/recette-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupOrderTest(t *testing.T) (*gorm.DB, OrderRepository, *model.Order) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{Email: "camille@example.com", Name: "Camille", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)

	repo := NewOrderRepository(testDB)
	order := &model.Order{
		UserID:          user.ID,
		Status:          model.OrderStatusPending,
		TotalAmount:     720,
		DeliveryAddress: "12 rue des Lilas, 75011 Paris",
		QRCode:          util.GenerateQRCode(),
		OrderItems: []model.OrderItem{
			{ProductID: 1, ProductName: "Tomates grappe", Unit: "kg", UnitPrice: 360, Quantity: 2, LineTotal: 720},
		},
	}
	require.NoError(t, repo.Create(order))

	return testDB, repo, order
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	_, repo, order := setupOrderTest(t)

	found, err := repo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, found.Status)
	require.Len(t, found.OrderItems, 1)
	assert.Equal(t, int64(720), found.OrderItems[0].LineTotal)

	orders, err := repo.FindByUserID(order.UserID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = repo.FindByID(order.ID + 100)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_TransitionStatus_Guarded(t *testing.T) {
	_, repo, order := setupOrderTest(t)
	validator := uint(42)
	now := time.Now()

	applied, err := repo.TransitionStatus(order.ID,
		[]model.OrderStatus{model.OrderStatusPending},
		model.OrderStatusValidated,
		map[string]interface{}{"validated_by": validator, "validated_at": now})
	require.NoError(t, err)
	assert.True(t, applied)

	// stale predecessor: nothing changes
	applied, err = repo.TransitionStatus(order.ID,
		[]model.OrderStatus{model.OrderStatusPending},
		model.OrderStatusValidated,
		map[string]interface{}{"validated_by": uint(99)})
	require.NoError(t, err)
	assert.False(t, applied)

	found, err := repo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusValidated, found.Status)
	require.NotNil(t, found.ValidatedBy)
	assert.Equal(t, validator, *found.ValidatedBy)
}

func TestOrderRepository_TransitionStatus_ConcurrentSingleWinner(t *testing.T) {
	_, repo, order := setupOrderTest(t)

	const workers = 6
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(actor uint) {
			defer wg.Done()
			applied, err := repo.TransitionStatus(order.ID,
				[]model.OrderStatus{model.OrderStatusPending},
				model.OrderStatusValidated,
				map[string]interface{}{"validated_by": actor})
			if err == nil && applied {
				atomic.AddInt32(&wins, 1)
			}
		}(uint(i + 1))
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestOrderRepository_FindByStatusAndAssignee(t *testing.T) {
	_, repo, order := setupOrderTest(t)
	courier := uint(7)

	pending, err := repo.FindByStatus(model.OrderStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	applied, err := repo.TransitionStatus(order.ID,
		[]model.OrderStatus{model.OrderStatusPending},
		model.OrderStatusAssigned,
		map[string]interface{}{"assigned_to": courier, "assigned_at": time.Now()})
	require.NoError(t, err)
	require.True(t, applied)

	mine, err := repo.FindByAssignee(courier, []model.OrderStatus{model.OrderStatusAssigned})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := repo.FindByAssignee(courier, []model.OrderStatus{model.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Empty(t, none)
}
