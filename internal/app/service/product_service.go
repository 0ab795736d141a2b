package service

import (
	"errors"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductService interface {
	ListProducts(filter repository.ProductFilter) ([]model.Product, error)
	GetProduct(id uint) (*model.Product, error)
	UpdatePrice(actor Actor, id uint, price int64) (*model.Product, error)
	SetInStock(actor Actor, id uint, inStock bool) (*model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	cache       CartViewCache
}

func NewProductService(productRepo repository.ProductRepository, cache ...CartViewCache) ProductService {
	var viewCache CartViewCache = noopCartViewCache{}
	if len(cache) > 0 && cache[0] != nil {
		viewCache = cache[0]
	}
	return &productService{
		productRepo: productRepo,
		cache:       viewCache,
	}
}

func (s *productService) ListProducts(filter repository.ProductFilter) ([]model.Product, error) {
	products, err := s.productRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to list products", err, map[string]interface{}{
			"category": filter.Category,
		})
		return nil, err
	}
	return products, nil
}

func (s *productService) GetProduct(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

// UpdatePrice changes the catalog price. Carts are not touched: every cached
// main cart view is dropped so the next read prices lines at the new value.
func (s *productService) UpdatePrice(actor Actor, id uint, price int64) (*model.Product, error) {
	logger.Info("Updating product price", map[string]interface{}{
		"product_id": id,
		"price":      price,
		"actor_id":   actor.UserID,
	})

	if !actor.IsAdmin() {
		return nil, ErrForbiddenActor
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}

	if err := s.productRepo.UpdatePrice(id, price); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to update product price", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	s.cache.InvalidateAll()

	return s.GetProduct(id)
}

// SetInStock toggles availability. Lines for an out-of-stock product stay in
// carts but render unavailable, so cached views are dropped like on a price change.
func (s *productService) SetInStock(actor Actor, id uint, inStock bool) (*model.Product, error) {
	logger.Info("Updating product availability", map[string]interface{}{
		"product_id": id,
		"in_stock":   inStock,
		"actor_id":   actor.UserID,
	})

	if !actor.IsAdmin() {
		return nil, ErrForbiddenActor
	}

	if err := s.productRepo.SetInStock(id, inStock); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to update product availability", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	s.cache.InvalidateAll()

	return s.GetProduct(id)
}
