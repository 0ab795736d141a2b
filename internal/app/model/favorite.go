package model

import (
	"time"
)

type FavoriteType string

const (
	FavoriteRecipe  FavoriteType = "recipe"
	FavoriteProduct FavoriteType = "product"
	FavoriteVideo   FavoriteType = "video"
)

func (t FavoriteType) Valid() bool {
	switch t {
	case FavoriteRecipe, FavoriteProduct, FavoriteVideo:
		return true
	}
	return false
}

type Favorite struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_favorite_user_item_type" json:"user_id"`
	ItemID    string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_favorite_user_item_type" json:"item_id"` // recipe/video ids are external
	Type      FavoriteType `gorm:"type:varchar(20);not null;uniqueIndex:idx_favorite_user_item_type" json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}
