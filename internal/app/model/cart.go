package model

import (
	"time"
)

// PersonalCart is the ad-hoc basket, one per user.
type PersonalCart struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	IsAddedToMainCart bool      `gorm:"not null" json:"is_added_to_main_cart"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Items []PersonalCartItem `gorm:"foreignKey:PersonalCartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (PersonalCart) TableName() string {
	return "personal_carts"
}

// PersonalCartItem rows are hard-deleted so the (cart, product) index stays usable.
type PersonalCartItem struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PersonalCartID uint      `gorm:"not null;uniqueIndex:idx_personal_cart_product" json:"personal_cart_id"`
	ProductID      uint      `gorm:"not null;uniqueIndex:idx_personal_cart_product" json:"product_id"`
	Quantity       int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (PersonalCartItem) TableName() string {
	return "personal_cart_items"
}

// RecipeCart is a named basket staged from a recipe's ingredient list.
type RecipeCart struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	RecipeID          string    `gorm:"type:varchar(64);not null;index" json:"recipe_id"`
	RecipeName        string    `gorm:"not null" json:"recipe_name"`
	IsAddedToMainCart bool      `gorm:"not null" json:"is_added_to_main_cart"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Items []RecipeCartItem `gorm:"foreignKey:RecipeCartID;constraint:OnDelete:CASCADE" json:"items"`
}

func (RecipeCart) TableName() string {
	return "recipe_carts"
}

type RecipeCartItem struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	RecipeCartID uint      `gorm:"not null;uniqueIndex:idx_recipe_cart_product" json:"recipe_cart_id"`
	ProductID    uint      `gorm:"not null;uniqueIndex:idx_recipe_cart_product" json:"product_id"`
	Quantity     int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (RecipeCartItem) TableName() string {
	return "recipe_cart_items"
}
