package repository

import (
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	FindByStatus(status model.OrderStatus) ([]model.Order, error)
	FindByAssignee(deliveryPersonID uint, statuses []model.OrderStatus) ([]model.Order, error)
	TransitionStatus(id uint, from []model.OrderStatus, to model.OrderStatus, fields map[string]interface{}) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("OrderItems", orderedByID)
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
		"items_count":  len(order.OrderItems),
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"total_amount": order.TotalAmount,
		})
		return classify(err)
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, classify(err)
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	err := r.preloadOrder().
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, classify(err)
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (r *orderRepository) FindByStatus(status model.OrderStatus) ([]model.Order, error) {
	logger.Debug("Finding orders by status in database", map[string]interface{}{
		"status": status,
	})

	var orders []model.Order
	err := r.preloadOrder().
		Where("status = ?", status).
		Order("created_at ASC").Order("id ASC").
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to find orders by status in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, classify(err)
	}
	return orders, nil
}

func (r *orderRepository) FindByAssignee(deliveryPersonID uint, statuses []model.OrderStatus) ([]model.Order, error) {
	logger.Debug("Finding orders by assignee in database", map[string]interface{}{
		"delivery_person_id": deliveryPersonID,
		"statuses":           statuses,
	})

	query := r.preloadOrder().Where("assigned_to = ?", deliveryPersonID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var orders []model.Order
	if err := query.Order("assigned_at ASC").Order("id ASC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by assignee in database", err, map[string]interface{}{
			"delivery_person_id": deliveryPersonID,
		})
		return nil, classify(err)
	}
	return orders, nil
}

// TransitionStatus moves the order to `to` only if its stored status is still one
// of `from`, in a single conditional UPDATE. It reports false when the guard did
// not hold, which is how a losing concurrent writer finds out.
func (r *orderRepository) TransitionStatus(id uint, from []model.OrderStatus, to model.OrderStatus, fields map[string]interface{}) (bool, error) {
	logger.Debug("Transitioning order status", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.Model(&model.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to transition order status", result.Error, map[string]interface{}{
			"order_id": id,
			"to":       to,
		})
		return false, classify(result.Error)
	}

	applied := result.RowsAffected == 1
	logger.Debug("Order status transition attempted", map[string]interface{}{
		"order_id": id,
		"to":       to,
		"applied":  applied,
	})
	return applied, nil
}
