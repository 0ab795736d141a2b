package service

import (
	"errors"
	"strings"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

// CartViewCache holds computed main cart views. Implementations must be safe
// for concurrent use; a failed call is logged by the implementation and
// treated as a miss.
//
// Every Invalidate or InvalidateAll moves the affected users to a new
// generation. Version reads the current one before the view is computed, and
// Set stores the view only if the generation is still the same, so a view
// built from rows read before a mutation is never cached after it.
type CartViewCache interface {
	Get(userID uint) (*MainCartView, bool)
	Version(userID uint) (version string, ok bool)
	Set(userID uint, version string, view *MainCartView)
	Invalidate(userIDs ...uint)
	InvalidateAll()
}

type noopCartViewCache struct{}

// NewNoopCartViewCache returns a cache that never stores anything.
func NewNoopCartViewCache() CartViewCache { return noopCartViewCache{} }

func (noopCartViewCache) Get(uint) (*MainCartView, bool)  { return nil, false }
func (noopCartViewCache) Version(uint) (string, bool)     { return "", false }
func (noopCartViewCache) Set(uint, string, *MainCartView) {}
func (noopCartViewCache) Invalidate(...uint)              {}
func (noopCartViewCache) InvalidateAll()                  {}

// RecipeIngredient is one (product, quantity) pair of a recipe's shopping list.
type RecipeIngredient struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type CartService interface {
	AddProductToPersonalCart(userID, productID uint, quantity int) (*model.PersonalCartItem, error)
	UpdateItemQuantity(userID, itemID uint, quantity int) error
	RemoveItem(userID, itemID uint) error
	SetPersonalCartIncluded(userID uint, included bool) error

	CreateRecipeCart(userID uint, recipeID, recipeName string, ingredients []RecipeIngredient) (*model.RecipeCart, error)
	ListRecipeCarts(userID uint) ([]model.RecipeCart, error)
	AddRecipeCartToMainCart(userID, recipeCartID uint) error
	RemoveRecipeCartFromMainCart(userID, recipeCartID uint) error
	RemoveRecipeCart(userID, recipeCartID uint) error

	ComputeMainCartView(userID uint) (*MainCartView, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	cache       CartViewCache
	db          *gorm.DB
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	db *gorm.DB,
	cache ...CartViewCache,
) CartService {
	var viewCache CartViewCache = noopCartViewCache{}
	if len(cache) > 0 && cache[0] != nil {
		viewCache = cache[0]
	}
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cache:       viewCache,
		db:          db,
	}
}

func (s *cartService) AddProductToPersonalCart(userID, productID uint, quantity int) (*model.PersonalCartItem, error) {
	logger.Info("Adding product to personal cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.productRepo.FindByID(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	cart, err := s.cartRepo.EnsurePersonalCart(userID)
	if err != nil {
		logger.Error("Failed to ensure personal cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	item, err := s.cartRepo.AccumulatePersonalItem(cart.ID, productID, quantity)
	if err != nil {
		logger.Error("Failed to add product to personal cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}
	s.cache.Invalidate(userID)

	logger.Info("Product added to personal cart", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
	})
	return item, nil
}

func (s *cartService) UpdateItemQuantity(userID, itemID uint, quantity int) error {
	logger.Info("Updating personal cart item", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if _, err := s.findOwnedItem(userID, itemID); err != nil {
		return err
	}

	if err := s.cartRepo.UpdatePersonalItemQuantity(itemID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		logger.Error("Failed to update personal cart item", err, map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return err
	}
	s.cache.Invalidate(userID)
	return nil
}

func (s *cartService) RemoveItem(userID, itemID uint) error {
	logger.Info("Removing personal cart item", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
	})

	if _, err := s.findOwnedItem(userID, itemID); err != nil {
		return err
	}

	if err := s.cartRepo.DeletePersonalItem(itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		logger.Error("Failed to remove personal cart item", err, map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return err
	}
	s.cache.Invalidate(userID)
	return nil
}

func (s *cartService) findOwnedItem(userID, itemID uint) (*model.PersonalCartItem, error) {
	item, err := s.cartRepo.FindPersonalItem(userID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Personal cart item not found for user", map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": itemID,
			})
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *cartService) SetPersonalCartIncluded(userID uint, included bool) error {
	logger.Info("Toggling personal cart inclusion", map[string]interface{}{
		"user_id":  userID,
		"included": included,
	})

	cart, err := s.cartRepo.EnsurePersonalCart(userID)
	if err != nil {
		return err
	}
	if err := s.cartRepo.SetPersonalCartIncluded(cart.ID, included); err != nil {
		logger.Error("Failed to toggle personal cart inclusion", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	s.cache.Invalidate(userID)
	return nil
}

// CreateRecipeCart stages a recipe's ingredients as a new, not yet included
// basket. Ingredients referencing unknown or deleted products, or with a
// non-positive quantity, are skipped; a cart with no item left is still created.
func (s *cartService) CreateRecipeCart(userID uint, recipeID, recipeName string, ingredients []RecipeIngredient) (*model.RecipeCart, error) {
	recipeID = strings.TrimSpace(recipeID)
	recipeName = strings.TrimSpace(recipeName)

	logger.Info("Creating recipe cart", map[string]interface{}{
		"user_id":     userID,
		"recipe_id":   recipeID,
		"ingredients": len(ingredients),
	})

	quantities := make(map[uint]int)
	var order []uint
	for _, ing := range ingredients {
		if ing.Quantity < 1 {
			continue
		}
		if _, seen := quantities[ing.ProductID]; !seen {
			order = append(order, ing.ProductID)
		}
		quantities[ing.ProductID] += ing.Quantity
	}

	cart := &model.RecipeCart{
		UserID:     userID,
		RecipeID:   recipeID,
		RecipeName: recipeName,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		known, err := repository.NewProductRepository(tx).FindByIDs(order)
		if err != nil {
			return err
		}
		live := make(map[uint]bool, len(known))
		for _, p := range known {
			live[p.ID] = true
		}

		for _, productID := range order {
			if !live[productID] {
				logger.Debug("Skipping unknown recipe ingredient", map[string]interface{}{
					"recipe_id":  recipeID,
					"product_id": productID,
				})
				continue
			}
			cart.Items = append(cart.Items, model.RecipeCartItem{
				ProductID: productID,
				Quantity:  quantities[productID],
			})
		}

		return s.cartRepo.WithTx(tx).CreateRecipeCart(cart)
	})
	if err != nil {
		logger.Error("Failed to create recipe cart", err, map[string]interface{}{
			"user_id":   userID,
			"recipe_id": recipeID,
		})
		return nil, err
	}

	logger.Info("Recipe cart created", map[string]interface{}{
		"user_id":        userID,
		"recipe_cart_id": cart.ID,
		"items":          len(cart.Items),
		"ingredients":    len(ingredients),
	})

	created, err := s.cartRepo.FindRecipeCart(userID, cart.ID)
	if err != nil {
		return cart, nil
	}
	return created, nil
}

func (s *cartService) ListRecipeCarts(userID uint) ([]model.RecipeCart, error) {
	carts, err := s.cartRepo.FindRecipeCartsByUser(userID, false)
	if err != nil {
		logger.Error("Failed to list recipe carts", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return carts, nil
}

func (s *cartService) AddRecipeCartToMainCart(userID, recipeCartID uint) error {
	return s.setRecipeCartIncluded(userID, recipeCartID, true)
}

func (s *cartService) RemoveRecipeCartFromMainCart(userID, recipeCartID uint) error {
	return s.setRecipeCartIncluded(userID, recipeCartID, false)
}

func (s *cartService) setRecipeCartIncluded(userID, recipeCartID uint, included bool) error {
	logger.Info("Toggling recipe cart inclusion", map[string]interface{}{
		"user_id":        userID,
		"recipe_cart_id": recipeCartID,
		"included":       included,
	})

	if _, err := s.findOwnedRecipeCart(userID, recipeCartID); err != nil {
		return err
	}

	if err := s.cartRepo.SetRecipeCartIncluded(recipeCartID, included); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeCartNotFound
		}
		logger.Error("Failed to toggle recipe cart inclusion", err, map[string]interface{}{
			"recipe_cart_id": recipeCartID,
		})
		return err
	}
	s.cache.Invalidate(userID)
	return nil
}

func (s *cartService) RemoveRecipeCart(userID, recipeCartID uint) error {
	logger.Info("Removing recipe cart", map[string]interface{}{
		"user_id":        userID,
		"recipe_cart_id": recipeCartID,
	})

	if _, err := s.findOwnedRecipeCart(userID, recipeCartID); err != nil {
		return err
	}

	if err := s.cartRepo.DeleteRecipeCart(recipeCartID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeCartNotFound
		}
		logger.Error("Failed to remove recipe cart", err, map[string]interface{}{
			"recipe_cart_id": recipeCartID,
		})
		return err
	}
	s.cache.Invalidate(userID)
	return nil
}

func (s *cartService) findOwnedRecipeCart(userID, recipeCartID uint) (*model.RecipeCart, error) {
	cart, err := s.cartRepo.FindRecipeCart(userID, recipeCartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Recipe cart not found for user", map[string]interface{}{
				"user_id":        userID,
				"recipe_cart_id": recipeCartID,
			})
			return nil, ErrRecipeCartNotFound
		}
		return nil, err
	}
	return cart, nil
}

func (s *cartService) ComputeMainCartView(userID uint) (*MainCartView, error) {
	if view, ok := s.cache.Get(userID); ok {
		logger.Debug("Main cart view served from cache", map[string]interface{}{
			"user_id": userID,
		})
		return view, nil
	}

	// read before the baskets: a mutation committed after this point bumps it
	version, cacheable := s.cache.Version(userID)

	personal, recipes, err := loadBaskets(s.cartRepo, userID)
	if err != nil {
		logger.Error("Failed to compute main cart view", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	view := buildMainCartView(personal, recipes)
	if cacheable {
		s.cache.Set(userID, version, view)
	}

	logger.Debug("Main cart view computed", map[string]interface{}{
		"user_id":  userID,
		"lines":    len(view.Lines),
		"subtotal": view.Subtotal,
	})
	return view, nil
}

// loadBaskets reads the user's personal cart (nil if never created) and
// included recipe carts through repo, which may be bound to a transaction.
func loadBaskets(repo repository.CartRepository, userID uint) (*model.PersonalCart, []model.RecipeCart, error) {
	personal, err := repo.FindPersonalCart(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		personal = nil
	}

	recipes, err := repo.FindRecipeCartsByUser(userID, true)
	if err != nil {
		return nil, nil, err
	}
	return personal, recipes, nil
}
