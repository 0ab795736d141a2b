package service

import (
	"errors"
	"strings"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"github.com/recetteplus/recette-backend/pkg/util"
	"gorm.io/gorm"
)

// TransitDetails is the optional payload a delivery person sends when setting off.
type TransitDetails struct {
	Latitude  *float64
	Longitude *float64
	Notes     *string
}

type OrderService interface {
	Checkout(userID uint, deliveryAddress, notes string) (*model.Order, error)
	Validate(actor Actor, orderID uint) (*model.Order, error)
	Assign(actor Actor, orderID uint, qrCode string) (*model.Order, error)
	Pickup(actor Actor, orderID uint) (*model.Order, error)
	StartTransit(actor Actor, orderID uint, details TransitDetails) (*model.Order, error)
	Deliver(actor Actor, orderID uint, photoURL *string) (*model.Order, error)
	Cancel(actor Actor, orderID uint) (*model.Order, error)

	GetOrder(actor Actor, orderID uint) (*model.Order, error)
	ListUserOrders(userID uint) ([]model.Order, error)
	ListOrdersByStatus(actor Actor, status model.OrderStatus) ([]model.Order, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	trackingRepo repository.TrackingRepository
	userRepo     repository.UserRepository
	cache        CartViewCache
	db           *gorm.DB
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	trackingRepo repository.TrackingRepository,
	userRepo repository.UserRepository,
	db *gorm.DB,
	cache ...CartViewCache,
) OrderService {
	var viewCache CartViewCache = noopCartViewCache{}
	if len(cache) > 0 && cache[0] != nil {
		viewCache = cache[0]
	}
	return &orderService{
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		trackingRepo: trackingRepo,
		userRepo:     userRepo,
		cache:        viewCache,
		db:           db,
	}
}

// Checkout snapshots the available lines of the main cart into a pending
// order and clears the baskets it consumed, all in one transaction.
// Unavailable lines stay in their baskets. The personal cart row is locked
// first, so a second checkout by the same user waits and then finds the
// baskets already consumed.
func (s *orderService) Checkout(userID uint, deliveryAddress, notes string) (*model.Order, error) {
	logger.Info("Checking out main cart", map[string]interface{}{
		"user_id": userID,
	})

	address, err := s.resolveAddress(userID, deliveryAddress)
	if err != nil {
		return nil, err
	}

	var order *model.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		if err := cartRepo.LockPersonalCart(userID); err != nil {
			return err
		}

		personal, recipes, err := loadBaskets(cartRepo, userID)
		if err != nil {
			return err
		}
		view := buildMainCartView(personal, recipes)

		lines := view.AvailableLines()
		if len(lines) == 0 {
			logger.Warn("Cannot checkout: main cart is empty", map[string]interface{}{
				"user_id":     userID,
				"total_lines": len(view.Lines),
			})
			return ErrEmptyCart
		}

		order = &model.Order{
			UserID:          userID,
			Status:          model.OrderStatusPending,
			DeliveryAddress: address,
			Notes:           strings.TrimSpace(notes),
			QRCode:          util.GenerateQRCode(),
		}
		for _, line := range lines {
			order.TotalAmount += line.LineTotal
			order.OrderItems = append(order.OrderItems, model.OrderItem{
				ProductID:   line.ProductID,
				ProductName: line.Name,
				Unit:        line.Unit,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				LineTotal:   line.LineTotal,
			})
		}

		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}

		if personal != nil && personal.IsAddedToMainCart {
			if err := consumePersonalItems(cartRepo, personal); err != nil {
				return err
			}
		}
		for _, recipe := range recipes {
			if err := cartRepo.DeleteRecipeCart(recipe.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEmptyCart) {
			logger.Error("Checkout failed", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}
	s.cache.Invalidate(userID)

	logger.Info("Order created from main cart", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"items":        len(order.OrderItems),
	})
	return order, nil
}

// consumePersonalItems deletes the personal items that went into the order.
// Items whose product is unavailable stay for a later checkout.
func consumePersonalItems(cartRepo repository.CartRepository, personal *model.PersonalCart) error {
	keep := 0
	for i := range personal.Items {
		if !personal.Items[i].Product.Available() {
			keep++
		}
	}
	if keep == 0 {
		return cartRepo.ClearPersonalItems(personal.ID)
	}
	for i := range personal.Items {
		item := &personal.Items[i]
		if item.Product.Available() {
			if err := cartRepo.DeletePersonalItem(item.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *orderService) resolveAddress(userID uint, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address != "" {
		return address, nil
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMissingAddress
		}
		return "", err
	}
	if strings.TrimSpace(user.Address) == "" {
		return "", ErrMissingAddress
	}
	return strings.TrimSpace(user.Address), nil
}

func (s *orderService) Validate(actor Actor, orderID uint) (*model.Order, error) {
	logger.Info("Validating order", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	if !actor.Role.CanValidateOrders() {
		return nil, ErrForbiddenActor
	}

	now := time.Now()
	err := s.transition(s.orderRepo, orderID, model.OrderStatusValidated, map[string]interface{}{
		"validated_by": actor.UserID,
		"validated_at": now,
	})
	if err != nil {
		return nil, err
	}
	return s.reload(actor, orderID)
}

// Assign binds a validated order to the delivery person presenting its QR
// code. Every failure, including an unknown order, yields the same error.
func (s *orderService) Assign(actor Actor, orderID uint, qrCode string) (*model.Order, error) {
	logger.Info("Assigning order", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	if !actor.Role.CanDeliver() {
		logger.Warn("Assignment rejected: actor cannot deliver", map[string]interface{}{
			"order_id": orderID,
			"actor_id": actor.UserID,
			"role":     actor.Role,
		})
		return nil, ErrInvalidAssignment
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Assignment rejected: order not found", map[string]interface{}{
				"order_id": orderID,
				"actor_id": actor.UserID,
			})
			return nil, ErrInvalidAssignment
		}
		return nil, err
	}

	if !util.MatchQRCode(qrCode, order.QRCode) {
		logger.Warn("Assignment rejected: code mismatch", map[string]interface{}{
			"order_id": orderID,
			"actor_id": actor.UserID,
		})
		return nil, ErrInvalidAssignment
	}

	applied, err := s.orderRepo.TransitionStatus(orderID,
		model.PredecessorsOf(model.OrderStatusAssigned),
		model.OrderStatusAssigned,
		map[string]interface{}{
			"assigned_to": actor.UserID,
			"assigned_at": time.Now(),
		})
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.Warn("Assignment rejected: order not awaiting pickup", map[string]interface{}{
			"order_id": orderID,
			"status":   order.Status,
		})
		return nil, ErrInvalidAssignment
	}

	return s.reload(actor, orderID)
}

func (s *orderService) Pickup(actor Actor, orderID uint) (*model.Order, error) {
	logger.Info("Picking up order", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	if _, err := s.loadForDelivery(actor, orderID); err != nil {
		return nil, err
	}

	err := s.transition(s.orderRepo, orderID, model.OrderStatusPickedUp, map[string]interface{}{
		"picked_up_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return s.reload(actor, orderID)
}

func (s *orderService) StartTransit(actor Actor, orderID uint, details TransitDetails) (*model.Order, error) {
	logger.Info("Starting order transit", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	if err := validatePosition(details.Latitude, details.Longitude); err != nil {
		return nil, err
	}

	if _, err := s.loadForDelivery(actor, orderID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transition(s.orderRepo.WithTx(tx), orderID, model.OrderStatusInTransit, nil); err != nil {
			return err
		}
		return s.trackingRepo.WithTx(tx).Append(&model.DeliveryTracking{
			OrderID:          orderID,
			DeliveryPersonID: actor.UserID,
			Latitude:         details.Latitude,
			Longitude:        details.Longitude,
			Status:           model.OrderStatusInTransit,
			Notes:            details.Notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(actor, orderID)
}

func (s *orderService) Deliver(actor Actor, orderID uint, photoURL *string) (*model.Order, error) {
	logger.Info("Delivering order", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	if _, err := s.loadForDelivery(actor, orderID); err != nil {
		return nil, err
	}
	if photoURL != nil && strings.TrimSpace(*photoURL) == "" {
		photoURL = nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := s.transition(s.orderRepo.WithTx(tx), orderID, model.OrderStatusDelivered, map[string]interface{}{
			"delivered_at": time.Now(),
		})
		if err != nil {
			return err
		}
		return s.trackingRepo.WithTx(tx).Append(&model.DeliveryTracking{
			OrderID:          orderID,
			DeliveryPersonID: actor.UserID,
			Status:           model.OrderStatusDelivered,
			PhotoURL:         photoURL,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(actor, orderID)
}

func (s *orderService) Cancel(actor Actor, orderID uint) (*model.Order, error) {
	logger.Info("Cancelling order", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	order, err := s.findVisible(actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.Role.CanValidateOrders() {
		return nil, ErrForbiddenActor
	}

	err = s.transition(s.orderRepo, orderID, model.OrderStatusCancelled, map[string]interface{}{
		"cancelled_by": actor.UserID,
		"cancelled_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return s.reload(actor, orderID)
}

// transition applies a guarded status change from any legal predecessor of
// target. When the guard fails the order is left untouched and the caller gets
// ErrGuardViolation, or ErrOrderNotFound if the order does not exist.
func (s *orderService) transition(repo repository.OrderRepository, orderID uint, target model.OrderStatus, fields map[string]interface{}) error {
	applied, err := repo.TransitionStatus(orderID, model.PredecessorsOf(target), target, fields)
	if err != nil {
		logger.Error("Order transition failed", err, map[string]interface{}{
			"order_id": orderID,
			"to":       target,
		})
		return err
	}
	if applied {
		logger.Info("Order transitioned", map[string]interface{}{
			"order_id": orderID,
			"status":   target,
		})
		return nil
	}

	current, err := repo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	logger.Warn("Order transition rejected by guard", map[string]interface{}{
		"order_id": orderID,
		"status":   current.Status,
		"to":       target,
	})
	return ErrGuardViolation
}

// loadForDelivery returns the order if actor runs its delivery leg.
func (s *orderService) loadForDelivery(actor Actor, orderID uint) (*model.Order, error) {
	if !actor.Role.CanDeliver() {
		return nil, ErrForbiddenActor
	}
	order, err := s.findVisible(actor, orderID)
	if err != nil {
		return nil, err
	}
	if !isAssignee(actor, order) {
		logger.Warn("Delivery action by non-assignee", map[string]interface{}{
			"order_id": orderID,
			"actor_id": actor.UserID,
		})
		return nil, ErrForbiddenActor
	}
	return order, nil
}

// findVisible loads the order and hides it from actors who may not see it.
func (s *orderService) findVisible(actor Actor, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !canViewOrder(actor, order) {
		logger.Warn("Order access denied", map[string]interface{}{
			"order_id": orderID,
			"actor_id": actor.UserID,
			"role":     actor.Role,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) reload(actor Actor, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return redactOrder(actor, order), nil
}

func (s *orderService) GetOrder(actor Actor, orderID uint) (*model.Order, error) {
	order, err := s.findVisible(actor, orderID)
	if err != nil {
		return nil, err
	}
	return redactOrder(actor, order), nil
}

func (s *orderService) ListUserOrders(userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to list user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

// ListOrdersByStatus is the staff work queue. Managers see every order in the
// status; delivery people see the validated pool and their own assignments.
func (s *orderService) ListOrdersByStatus(actor Actor, status model.OrderStatus) ([]model.Order, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbiddenActor
	}
	if status == "" {
		status = model.OrderStatusPending
		if actor.Role == model.RoleDelivery {
			status = model.OrderStatusValidated
		}
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		orders []model.Order
		err    error
	)
	switch {
	case actor.Role.CanValidateOrders(), status == model.OrderStatusValidated:
		orders, err = s.orderRepo.FindByStatus(status)
	default:
		orders, err = s.orderRepo.FindByAssignee(actor.UserID, []model.OrderStatus{status})
	}
	if err != nil {
		logger.Error("Failed to list orders by status", err, map[string]interface{}{
			"status":   status,
			"actor_id": actor.UserID,
		})
		return nil, err
	}

	for i := range orders {
		redactOrder(actor, &orders[i])
	}
	return orders, nil
}

func validatePosition(lat, lng *float64) error {
	if lat == nil && lng == nil {
		return nil
	}
	if lat == nil || lng == nil || !util.ValidCoordinates(*lat, *lng) {
		return ErrInvalidCoordinates
	}
	return nil
}
