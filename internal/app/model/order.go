package model

import (
	"time"
)

type OrderStatus string // order lifecycle state

const (
	OrderStatusPending   OrderStatus = "pending"    // placed, awaiting validation
	OrderStatusValidated OrderStatus = "validated"  // validated, waiting for a delivery person
	OrderStatusAssigned  OrderStatus = "assigned"   // bound to a delivery person by QR code
	OrderStatusPickedUp  OrderStatus = "picked_up"  // collected by the delivery person
	OrderStatusInTransit OrderStatus = "in_transit" // on its way
	OrderStatusDelivered OrderStatus = "delivered"  // handed over (terminal)
	OrderStatusCancelled OrderStatus = "cancelled"  // cancelled (terminal)
)

// AllowedTransitions is the order state machine.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusValidated, OrderStatusCancelled},
	OrderStatusValidated: {OrderStatusAssigned, OrderStatusCancelled},
	OrderStatusAssigned:  {OrderStatusPickedUp, OrderStatusCancelled},
	OrderStatusPickedUp:  {OrderStatusInTransit, OrderStatusCancelled},
	OrderStatusInTransit: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to OrderStatus) bool {
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// PredecessorsOf lists every status from which the order may move to target.
func PredecessorsOf(target OrderStatus) []OrderStatus {
	var from []OrderStatus
	for _, s := range OrderStatuses() {
		if IsValidTransition(s, target) {
			from = append(from, s)
		}
	}
	return from
}

// OrderStatuses returns every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusValidated,
		OrderStatusAssigned,
		OrderStatusPickedUp,
		OrderStatusInTransit,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) Valid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// Order amounts are in cents. Orders are never deleted.
type Order struct {
	ID              uint        `gorm:"primarykey" json:"id"`                                       // order ID
	UserID          uint        `gorm:"not null;index" json:"user_id"`                              // customer
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`              // lifecycle state
	TotalAmount     int64       `gorm:"not null" json:"total_amount"`                               // sum of line totals at checkout
	DeliveryAddress string      `gorm:"type:text;not null" json:"delivery_address"`                 // where to deliver
	Notes           string      `gorm:"type:text" json:"notes,omitempty"`                           // customer notes
	QRCode          string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"qr_code,omitempty"` // assignment capability token
	ValidatedBy     *uint       `json:"validated_by,omitempty"`                                     // validator
	ValidatedAt     *time.Time  `json:"validated_at,omitempty"`                                     // validated at
	AssignedTo      *uint       `gorm:"index" json:"assigned_to,omitempty"`                         // delivery person
	AssignedAt      *time.Time  `json:"assigned_at,omitempty"`                                      // assigned at
	PickedUpAt      *time.Time  `json:"picked_up_at,omitempty"`                                     // picked up at
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`                                     // delivered at
	CancelledBy     *uint       `json:"cancelled_by,omitempty"`                                     // who cancelled
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`                                     // cancelled at
	CreatedAt       time.Time   `json:"created_at"`                                                 // created at
	UpdatedAt       time.Time   `json:"updated_at"`                                                 // updated at

	User       User        `gorm:"foreignKey:UserID" json:"-"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a frozen snapshot of a main-cart line at checkout.
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"not null" json:"product_name"`
	Unit        string    `gorm:"type:varchar(20)" json:"unit"`
	UnitPrice   int64     `gorm:"not null" json:"unit_price"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	LineTotal   int64     `gorm:"not null" json:"line_total"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
