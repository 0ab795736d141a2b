package service

import "github.com/recetteplus/recette-backend/internal/app/model"

// Actor is the authenticated caller of an operation, taken from the token claims.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// canViewOrder: owners see their orders, managers see everything, delivery
// people see what is assigned to them plus the validated pickup pool.
func canViewOrder(actor Actor, order *model.Order) bool {
	if order.UserID == actor.UserID || actor.Role.CanValidateOrders() {
		return true
	}
	if actor.Role == model.RoleDelivery {
		if order.Status == model.OrderStatusValidated {
			return true
		}
		return order.AssignedTo != nil && *order.AssignedTo == actor.UserID
	}
	return false
}

// isAssignee reports whether actor runs the delivery leg of order. Admins may
// act on any order.
func isAssignee(actor Actor, order *model.Order) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role.CanDeliver() && order.AssignedTo != nil && *order.AssignedTo == actor.UserID
}

// redactOrder hides the assignment token from anyone who could use it to
// self-assign: it is meant to be scanned at pickup, not read from the API.
func redactOrder(actor Actor, order *model.Order) *model.Order {
	if order == nil {
		return nil
	}
	if order.UserID == actor.UserID || actor.Role.CanValidateOrders() {
		return order
	}
	order.QRCode = ""
	return order
}
