package service

import (
	"errors"
	"strconv"
	"strings"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

type FavoriteService interface {
	Add(userID uint, itemID string, favType model.FavoriteType) (*model.Favorite, error)
	Remove(userID uint, itemID string, favType model.FavoriteType) error
	List(userID uint, favType *model.FavoriteType) ([]model.Favorite, error)
}

type favoriteService struct {
	favoriteRepo repository.FavoriteRepository
	productRepo  repository.ProductRepository
}

func NewFavoriteService(favoriteRepo repository.FavoriteRepository, productRepo repository.ProductRepository) FavoriteService {
	return &favoriteService{
		favoriteRepo: favoriteRepo,
		productRepo:  productRepo,
	}
}

func (s *favoriteService) Add(userID uint, itemID string, favType model.FavoriteType) (*model.Favorite, error) {
	itemID = strings.TrimSpace(itemID)

	logger.Info("Adding favorite", map[string]interface{}{
		"user_id": userID,
		"item_id": itemID,
		"type":    favType,
	})

	if !favType.Valid() || itemID == "" {
		return nil, ErrInvalidFavoriteType
	}

	// recipes and videos live in the content service; only products are checked here
	if favType == model.FavoriteProduct {
		productID, err := strconv.ParseUint(itemID, 10, 64)
		if err != nil {
			return nil, ErrProductNotFound
		}
		if _, err := s.productRepo.FindByID(uint(productID)); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
	}

	favorite, err := s.favoriteRepo.Add(&model.Favorite{
		UserID: userID,
		ItemID: itemID,
		Type:   favType,
	})
	if err != nil {
		logger.Error("Failed to add favorite", err, map[string]interface{}{
			"user_id": userID,
			"item_id": itemID,
		})
		return nil, err
	}
	return favorite, nil
}

func (s *favoriteService) Remove(userID uint, itemID string, favType model.FavoriteType) error {
	if !favType.Valid() {
		return ErrInvalidFavoriteType
	}

	removed, err := s.favoriteRepo.Remove(userID, strings.TrimSpace(itemID), favType)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}

	logger.Info("Favorite removed", map[string]interface{}{
		"user_id": userID,
		"item_id": itemID,
		"type":    favType,
	})
	return nil
}

func (s *favoriteService) List(userID uint, favType *model.FavoriteType) ([]model.Favorite, error) {
	if favType != nil && !favType.Valid() {
		return nil, ErrInvalidFavoriteType
	}
	return s.favoriteRepo.FindByUser(userID, favType)
}
