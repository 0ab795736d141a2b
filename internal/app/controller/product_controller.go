package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/internal/app/service"
	apperrors "github.com/recetteplus/recette-backend/internal/errors"
	"github.com/recetteplus/recette-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type UpdatePriceRequest struct {
	Price *int64 `json:"price" binding:"required"`
}

type SetStockRequest struct {
	InStock *bool `json:"in_stock" binding:"required"`
}

// ListProducts returns the catalog
// GET /api/v1/products?category=&created_by=&search=&in_stock=&limit=&offset=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Category:   c.Query("category"),
		SearchTerm: c.Query("search"),
	}

	if raw := c.Query("created_by"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Identifiant invalide")
			return
		}
		createdBy := uint(id)
		filter.CreatedBy = &createdBy
	}
	if raw := c.Query("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Paramètre in_stock invalide")
			return
		}
		filter.InStockOnly = inStock
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	products, err := ctrl.productService.ListProducts(filter)
	if err != nil {
		respondServiceError(c, err, "fetch products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct returns one catalog entry
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProduct(productID)
	if err != nil {
		respondServiceError(c, err, "fetch product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// UpdatePrice changes a catalog price
// PATCH /api/v1/products/:id/price
func (ctrl *ProductController) UpdatePrice(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	product, err := ctrl.productService.UpdatePrice(actor, productID, *req.Price)
	if err != nil {
		respondServiceError(c, err, "update product price")
		return
	}

	log.Info("Product price updated", map[string]interface{}{
		"product_id": productID,
		"price":      product.Price,
		"actor_id":   actor.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// SetStock marks a product in or out of stock
// PATCH /api/v1/products/:id/stock
func (ctrl *ProductController) SetStock(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	product, err := ctrl.productService.SetInStock(actor, productID, *req.InStock)
	if err != nil {
		respondServiceError(c, err, "update product stock")
		return
	}

	log.Info("Product availability updated", map[string]interface{}{
		"product_id": productID,
		"in_stock":   product.InStock,
		"actor_id":   actor.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}
