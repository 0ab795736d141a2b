package model

import (
	"time"
)

// DeliveryTracking rows are append-only.
type DeliveryTracking struct {
	ID               uint        `gorm:"primarykey" json:"id"`
	OrderID          uint        `gorm:"not null;index:idx_tracking_order_created" json:"order_id"`
	DeliveryPersonID uint        `gorm:"not null;index" json:"delivery_person_id"`
	Latitude         *float64    `json:"latitude,omitempty"`
	Longitude        *float64    `json:"longitude,omitempty"`
	Status           OrderStatus `gorm:"type:varchar(20);not null" json:"status"` // order status when recorded
	Notes            *string     `gorm:"type:text" json:"notes,omitempty"`
	PhotoURL         *string     `json:"photo_url,omitempty"` // proof of delivery
	CreatedAt        time.Time   `gorm:"index:idx_tracking_order_created;index" json:"created_at"`
}

func (DeliveryTracking) TableName() string {
	return "delivery_tracking"
}

// HasCoordinates reports whether the row carries a position.
func (t *DeliveryTracking) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}
