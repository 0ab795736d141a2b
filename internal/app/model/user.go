package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // capability role carried in the identity token

const (
	RoleUser         UserRole = "user"          // customer
	RoleOrderManager UserRole = "order_manager" // validates pending orders
	RoleDelivery     UserRole = "delivery"      // picks up and delivers orders
	RoleAdmin        UserRole = "admin"         // every capability
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`                        // user ID
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`           // email
	Name      string         `gorm:"not null" json:"name"`                        // display name
	Phone     string         `json:"phone"`                                       // phone number
	Address   string         `json:"address"`                                     // default delivery address
	Role      UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"` // role
	CreatedAt time.Time      `json:"created_at"`                                  // created at
	UpdatedAt time.Time      `json:"updated_at"`                                  // updated at
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                              // soft delete

	PersonalCart *PersonalCart `gorm:"foreignKey:UserID" json:"-"`
	RecipeCarts  []RecipeCart  `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// CanValidateOrders reports whether the role may move orders out of pending.
func (r UserRole) CanValidateOrders() bool {
	return r == RoleOrderManager || r == RoleAdmin
}

// CanDeliver reports whether the role may take part in the delivery leg.
func (r UserRole) CanDeliver() bool {
	return r == RoleDelivery || r == RoleAdmin
}

// IsStaff reports whether the role has any administrative capability.
func (r UserRole) IsStaff() bool {
	return r == RoleOrderManager || r == RoleDelivery || r == RoleAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleOrderManager, RoleDelivery, RoleAdmin:
		return true
	}
	return false
}
