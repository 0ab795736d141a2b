package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/service"
	"github.com/recetteplus/recette-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type SetIncludedRequest struct {
	Included *bool `json:"included" binding:"required"`
}

type CreateRecipeCartRequest struct {
	RecipeID    string                     `json:"recipe_id" binding:"required"`
	RecipeName  string                     `json:"recipe_name" binding:"required"`
	Ingredients []service.RecipeIngredient `json:"ingredients"`
}

// GetCart returns the merged main cart view
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.ComputeMainCartView(actor.UserID)
	if err != nil {
		respondServiceError(c, err, "fetch cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}

// SetPersonalIncluded toggles the personal cart's contribution to the main cart
// PATCH /api/v1/cart/personal
func (ctrl *CartController) SetPersonalIncluded(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req SetIncludedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	if err := ctrl.cartService.SetPersonalCartIncluded(actor.UserID, *req.Included); err != nil {
		respondServiceError(c, err, "update cart")
		return
	}
	ctrl.respondWithView(c, actor.UserID)
}

// AddItem adds a product to the personal cart
// POST /api/v1/cart/personal/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	item, err := ctrl.cartService.AddProductToPersonalCart(actor.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "add cart item")
		return
	}

	log.Info("Item added to personal cart", map[string]interface{}{
		"user_id":    actor.UserID,
		"product_id": req.ProductID,
		"quantity":   item.Quantity,
	})

	c.JSON(http.StatusCreated, gin.H{
		"item": item,
	})
}

// UpdateItem sets the quantity of a personal cart line
// PUT /api/v1/cart/personal/items/:id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	if err := ctrl.cartService.UpdateItemQuantity(actor.UserID, itemID, req.Quantity); err != nil {
		respondServiceError(c, err, "update cart item")
		return
	}
	ctrl.respondWithView(c, actor.UserID)
}

// RemoveItem deletes a personal cart line
// DELETE /api/v1/cart/personal/items/:id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.cartService.RemoveItem(actor.UserID, itemID); err != nil {
		respondServiceError(c, err, "remove cart item")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRecipeCarts returns every recipe cart of the user, included or not
// GET /api/v1/cart/recipes
func (ctrl *CartController) ListRecipeCarts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	carts, err := ctrl.cartService.ListRecipeCarts(actor.UserID)
	if err != nil {
		respondServiceError(c, err, "fetch recipe carts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe_carts": carts,
		"count":        len(carts),
	})
}

// CreateRecipeCart snapshots a recipe's shopping list
// POST /api/v1/cart/recipes
func (ctrl *CartController) CreateRecipeCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req CreateRecipeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	cart, err := ctrl.cartService.CreateRecipeCart(actor.UserID, req.RecipeID, req.RecipeName, req.Ingredients)
	if err != nil {
		respondServiceError(c, err, "create recipe cart")
		return
	}

	log.Info("Recipe cart created", map[string]interface{}{
		"user_id":        actor.UserID,
		"recipe_cart_id": cart.ID,
		"requested":      len(req.Ingredients),
		"kept":           len(cart.Items),
	})

	c.JSON(http.StatusCreated, gin.H{
		"recipe_cart": cart,
	})
}

// IncludeRecipeCart adds a recipe cart to the main cart
// POST /api/v1/cart/recipes/:id/include
func (ctrl *CartController) IncludeRecipeCart(c *gin.Context) {
	ctrl.toggleRecipeCart(c, true)
}

// ExcludeRecipeCart removes a recipe cart from the main cart without deleting it
// DELETE /api/v1/cart/recipes/:id/include
func (ctrl *CartController) ExcludeRecipeCart(c *gin.Context) {
	ctrl.toggleRecipeCart(c, false)
}

func (ctrl *CartController) toggleRecipeCart(c *gin.Context, include bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	cartID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var err error
	if include {
		err = ctrl.cartService.AddRecipeCartToMainCart(actor.UserID, cartID)
	} else {
		err = ctrl.cartService.RemoveRecipeCartFromMainCart(actor.UserID, cartID)
	}
	if err != nil {
		respondServiceError(c, err, "update recipe cart")
		return
	}
	ctrl.respondWithView(c, actor.UserID)
}

// DeleteRecipeCart deletes a recipe cart and its items
// DELETE /api/v1/cart/recipes/:id
func (ctrl *CartController) DeleteRecipeCart(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	cartID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.cartService.RemoveRecipeCart(actor.UserID, cartID); err != nil {
		respondServiceError(c, err, "delete recipe cart")
		return
	}
	c.Status(http.StatusNoContent)
}

// respondWithView answers a mutation with the fresh main cart view.
func (ctrl *CartController) respondWithView(c *gin.Context, userID uint) {
	view, err := ctrl.cartService.ComputeMainCartView(userID)
	if err != nil {
		respondServiceError(c, err, "fetch cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}
