package model

import (
	"time"

	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryVegetables ProductCategory = "legumes"
	CategoryFruits     ProductCategory = "fruits"
	CategoryMeat       ProductCategory = "viandes"
	CategoryFish       ProductCategory = "poissons"
	CategoryDairy      ProductCategory = "cremerie"
	CategoryGrocery    ProductCategory = "epicerie"
	CategoryBakery     ProductCategory = "boulangerie"
	CategoryDrinks     ProductCategory = "boissons"
)

// Product prices are stored in cents.
type Product struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	Name            string          `gorm:"not null;index" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Price           int64           `gorm:"not null" json:"price"`
	Unit            string          `gorm:"type:varchar(20);default:'piece'" json:"unit"` // unit of sale (kg, piece, botte...)
	Category        ProductCategory `gorm:"type:varchar(50);index" json:"category"`
	CreatedBy       *uint           `gorm:"index" json:"created_by,omitempty"`           // staff member who listed it
	InStock         bool            `gorm:"not null" json:"in_stock"`
	DiscountPercent *int            `json:"discount_percent,omitempty"` // promotion
	OriginalPrice   *int64          `json:"original_price,omitempty"`   // price before promotion
	ImageURL        string          `json:"image_url"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// Available reports whether the product can currently be ordered.
func (p *Product) Available() bool {
	return p != nil && p.ID != 0 && !p.DeletedAt.Valid && p.InStock
}
