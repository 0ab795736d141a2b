package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/service"
	"github.com/recetteplus/recette-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type CheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
}

type AssignOrderRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}

type PositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Notes     *string  `json:"notes"`
}

type DeliverOrderRequest struct {
	PhotoURL *string `json:"photo_url"`
}

// Checkout turns the available lines of the main cart into an order
// POST /api/v1/orders
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalidRequest(c, err)
			return
		}
	}

	order, err := ctrl.orderService.Checkout(actor.UserID, req.DeliveryAddress, req.Notes)
	if err != nil {
		respondServiceError(c, err, "create order")
		return
	}

	log.Info("Order created", map[string]interface{}{
		"user_id":      actor.UserID,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"items":        len(order.OrderItems),
	})

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// ListOrders returns the caller's orders
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.ListUserOrders(actor.UserID)
	if err != nil {
		respondServiceError(c, err, "fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns one order the caller may see
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(actor, orderID)
	if err != nil {
		respondServiceError(c, err, "fetch order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// ListStaffOrders is the staff work queue filtered by status
// GET /api/v1/staff/orders?status=
func (ctrl *OrderController) ListStaffOrders(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	status := model.OrderStatus(strings.TrimSpace(c.Query("status")))
	orders, err := ctrl.orderService.ListOrdersByStatus(actor, status)
	if err != nil {
		respondServiceError(c, err, "fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// Cancel cancels a pending or validated order
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) Cancel(c *gin.Context) {
	ctrl.transition(c, "cancel order", func(actor service.Actor, orderID uint) (*model.Order, error) {
		return ctrl.orderService.Cancel(actor, orderID)
	})
}

// Validate moves a pending order to validated
// POST /api/v1/orders/:id/validate
func (ctrl *OrderController) Validate(c *gin.Context) {
	ctrl.transition(c, "validate order", func(actor service.Actor, orderID uint) (*model.Order, error) {
		return ctrl.orderService.Validate(actor, orderID)
	})
}

// Assign claims a validated order with its scanned QR code
// POST /api/v1/orders/:id/assign
func (ctrl *OrderController) Assign(c *gin.Context) {
	var req AssignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	ctrl.transition(c, "assign order", func(actor service.Actor, orderID uint) (*model.Order, error) {
		return ctrl.orderService.Assign(actor, orderID, strings.TrimSpace(req.QRCode))
	})
}

// Pickup marks an assigned order as collected
// POST /api/v1/orders/:id/pickup
func (ctrl *OrderController) Pickup(c *gin.Context) {
	ctrl.transition(c, "pickup order", func(actor service.Actor, orderID uint) (*model.Order, error) {
		return ctrl.orderService.Pickup(actor, orderID)
	})
}

// StartTransit marks a picked-up order as on its way
// POST /api/v1/orders/:id/transit
func (ctrl *OrderController) StartTransit(c *gin.Context) {
	var req PositionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalidRequest(c, err)
			return
		}
	}

	ctrl.transition(c, "start transit", func(actor service.Actor, orderID uint) (*model.Order, error) {
		return ctrl.orderService.StartTransit(actor, orderID, service.TransitDetails{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Notes:     req.Notes,
		})
	})
}

// Deliver closes the delivery leg
// POST /api/v1/orders/:id/deliver
func (ctrl *OrderController) Deliver(c *gin.Context) {
	var req DeliverOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalidRequest(c, err)
			return
		}
	}

	ctrl.transition(c, "deliver order", func(actor service.Actor, orderID uint) (*model.Order, error) {
		return ctrl.orderService.Deliver(actor, orderID, req.PhotoURL)
	})
}

func (ctrl *OrderController) transition(c *gin.Context, action string, run func(service.Actor, uint) (*model.Order, error)) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := run(actor, orderID)
	if err != nil {
		respondServiceError(c, err, action)
		return
	}

	log.Info("Order status changed", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"actor_id": actor.UserID,
		"role":     actor.Role,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
