package repository

import (
	"strings"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 200
)

// ProductFilter is the catalog query value object. The zero value lists every product.
type ProductFilter struct {
	Category    string
	CreatedBy   *uint
	SearchTerm  string
	InStockOnly bool
	Limit       int
	Offset      int
}

// Normalize trims free-text fields and clamps paging.
func (f ProductFilter) Normalize() ProductFilter {
	f.Category = strings.TrimSpace(f.Category)
	f.SearchTerm = strings.TrimSpace(f.SearchTerm)
	if f.Limit <= 0 {
		f.Limit = defaultProductLimit
	}
	if f.Limit > maxProductLimit {
		f.Limit = maxProductLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindWithFilter(filter ProductFilter) ([]model.Product, error)
	FindByID(id uint) (*model.Product, error)
	FindByIDs(ids []uint) ([]model.Product, error)
	UpdatePrice(id uint, price int64) error
	SetInStock(id uint, inStock bool) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
		"price":    product.Price,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":     product.Name,
			"category": product.Category,
		})
		return classify(err)
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, error) {
	filter = filter.Normalize()

	logger.Debug("Finding products with filter", map[string]interface{}{
		"category":      filter.Category,
		"created_by":    filter.CreatedBy,
		"search":        filter.SearchTerm,
		"in_stock_only": filter.InStockOnly,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})

	query := r.db.Model(&model.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.SearchTerm != "" {
		like := "%" + strings.ToLower(filter.SearchTerm) + "%"
		query = query.Where(r.db.Where("LOWER(name) LIKE ?", like).Or("LOWER(description) LIKE ?", like))
	}
	if filter.InStockOnly {
		query = query.Where("in_stock = ?", true)
	}

	var products []model.Product
	err := query.Order("name ASC").Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&products).Error
	if err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"category": filter.Category,
			"search":   filter.SearchTerm,
		})
		return nil, classify(err)
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.db.First(&product, id).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, classify(err)
	}

	return &product, nil
}

// FindByIDs returns the live (not soft-deleted) products among ids. Missing ids are simply absent.
func (r *productRepository) FindByIDs(ids []uint) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	logger.Debug("Finding products by IDs in database", map[string]interface{}{
		"count": len(ids),
	})

	var products []model.Product
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"ids": ids,
		})
		return nil, classify(err)
	}

	return products, nil
}

func (r *productRepository) UpdatePrice(id uint, price int64) error {
	logger.Debug("Updating product price in database", map[string]interface{}{
		"product_id": id,
		"price":      price,
	})

	result := r.db.Model(&model.Product{}).Where("id = ?", id).Update("price", price)
	if result.Error != nil {
		logger.Error("Failed to update product price in database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) SetInStock(id uint, inStock bool) error {
	logger.Debug("Updating product stock flag in database", map[string]interface{}{
		"product_id": id,
		"in_stock":   inStock,
	})

	result := r.db.Model(&model.Product{}).Where("id = ?", id).Update("in_stock", inStock)
	if result.Error != nil {
		logger.Error("Failed to update product stock flag in database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
