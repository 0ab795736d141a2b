package repository

import (
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository interface {
	Add(favorite *model.Favorite) (*model.Favorite, error)
	Remove(userID uint, itemID string, favType model.FavoriteType) (bool, error)
	FindByUser(userID uint, favType *model.FavoriteType) ([]model.Favorite, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Add is idempotent on (user, item, type): a repeated add returns the existing row.
func (r *favoriteRepository) Add(favorite *model.Favorite) (*model.Favorite, error) {
	logger.Debug("Adding favorite", map[string]interface{}{
		"user_id": favorite.UserID,
		"item_id": favorite.ItemID,
		"type":    favorite.Type,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}, {Name: "type"}},
		DoNothing: true,
	}).Create(favorite).Error
	if err != nil {
		logger.Error("Failed to add favorite", err, map[string]interface{}{
			"user_id": favorite.UserID,
			"item_id": favorite.ItemID,
		})
		return nil, classify(err)
	}

	var stored model.Favorite
	err = r.db.Where("user_id = ? AND item_id = ? AND type = ?", favorite.UserID, favorite.ItemID, favorite.Type).
		First(&stored).Error
	if err != nil {
		logger.Error("Failed to read favorite after insert", err, map[string]interface{}{
			"user_id": favorite.UserID,
			"item_id": favorite.ItemID,
		})
		return nil, classify(err)
	}
	return &stored, nil
}

func (r *favoriteRepository) Remove(userID uint, itemID string, favType model.FavoriteType) (bool, error) {
	logger.Debug("Removing favorite", map[string]interface{}{
		"user_id": userID,
		"item_id": itemID,
		"type":    favType,
	})

	result := r.db.Where("user_id = ? AND item_id = ? AND type = ?", userID, itemID, favType).
		Delete(&model.Favorite{})
	if result.Error != nil {
		logger.Error("Failed to remove favorite", result.Error, map[string]interface{}{
			"user_id": userID,
			"item_id": itemID,
		})
		return false, classify(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *favoriteRepository) FindByUser(userID uint, favType *model.FavoriteType) ([]model.Favorite, error) {
	logger.Debug("Finding favorites by user ID", map[string]interface{}{
		"user_id": userID,
		"type":    favType,
	})

	query := r.db.Where("user_id = ?", userID)
	if favType != nil {
		query = query.Where("type = ?", *favType)
	}

	var favorites []model.Favorite
	if err := query.Order("created_at DESC").Order("id DESC").Find(&favorites).Error; err != nil {
		logger.Error("Failed to find favorites by user ID", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, classify(err)
	}
	return favorites, nil
}
