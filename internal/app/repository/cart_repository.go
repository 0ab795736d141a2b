package repository

import (
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository stores the personal cart and the recipe carts. The main cart
// is never stored; it is computed from both.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	EnsurePersonalCart(userID uint) (*model.PersonalCart, error)
	FindPersonalCart(userID uint) (*model.PersonalCart, error)
	LockPersonalCart(userID uint) error
	SetPersonalCartIncluded(cartID uint, included bool) error
	AccumulatePersonalItem(cartID, productID uint, quantity int) (*model.PersonalCartItem, error)
	FindPersonalItem(userID, itemID uint) (*model.PersonalCartItem, error)
	UpdatePersonalItemQuantity(itemID uint, quantity int) error
	DeletePersonalItem(itemID uint) error
	ClearPersonalItems(cartID uint) error

	CreateRecipeCart(cart *model.RecipeCart) error
	FindRecipeCart(userID, recipeCartID uint) (*model.RecipeCart, error)
	FindRecipeCartsByUser(userID uint, includedOnly bool) ([]model.RecipeCart, error)
	SetRecipeCartIncluded(recipeCartID uint, included bool) error
	DeleteRecipeCart(recipeCartID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

// products are loaded unscoped so a soft-deleted product still renders as an unavailable line
func unscopedProduct(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func orderedByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// EnsurePersonalCart creates the user's personal cart on first use. Concurrent
// callers race on the user_id unique index and all end up reading the same row.
func (r *cartRepository) EnsurePersonalCart(userID uint) (*model.PersonalCart, error) {
	logger.Debug("Ensuring personal cart exists", map[string]interface{}{
		"user_id": userID,
	})

	cart := model.PersonalCart{UserID: userID, IsAddedToMainCart: true}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		logger.Error("Failed to create personal cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, classify(err)
	}

	var existing model.PersonalCart
	if err := r.db.Where("user_id = ?", userID).First(&existing).Error; err != nil {
		logger.Error("Failed to read personal cart after upsert", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, classify(err)
	}

	return &existing, nil
}

func (r *cartRepository) FindPersonalCart(userID uint) (*model.PersonalCart, error) {
	logger.Debug("Finding personal cart by user ID", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.PersonalCart
	err := r.db.Where("user_id = ?", userID).
		Preload("Items", orderedByID).
		Preload("Items.Product", unscopedProduct).
		First(&cart).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find personal cart", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, classify(err)
	}

	logger.Debug("Personal cart found", map[string]interface{}{
		"user_id": userID,
		"cart_id": cart.ID,
		"items":   len(cart.Items),
	})
	return &cart, nil
}

// LockPersonalCart takes a row lock on the user's personal cart, creating the
// cart first if needed. It must run inside a transaction; concurrent lockers
// for the same user wait until that transaction ends, then read what it left.
func (r *cartRepository) LockPersonalCart(userID uint) error {
	logger.Debug("Locking personal cart", map[string]interface{}{
		"user_id": userID,
	})

	if _, err := r.EnsurePersonalCart(userID); err != nil {
		return err
	}

	var cart model.PersonalCart
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		logger.Error("Failed to lock personal cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return classify(err)
	}
	return nil
}

func (r *cartRepository) SetPersonalCartIncluded(cartID uint, included bool) error {
	logger.Debug("Updating personal cart inclusion flag", map[string]interface{}{
		"cart_id":  cartID,
		"included": included,
	})

	result := r.db.Model(&model.PersonalCart{}).Where("id = ?", cartID).Update("is_added_to_main_cart", included)
	if result.Error != nil {
		logger.Error("Failed to update personal cart inclusion flag", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AccumulatePersonalItem inserts the (cart, product) row or adds quantity to the
// existing one in a single upsert, so concurrent adds never lose an increment.
func (r *cartRepository) AccumulatePersonalItem(cartID, productID uint, quantity int) (*model.PersonalCartItem, error) {
	logger.Debug("Accumulating personal cart item", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})

	item := model.PersonalCartItem{
		PersonalCartID: cartID,
		ProductID:      productID,
		Quantity:       quantity,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "personal_cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("personal_cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		logger.Error("Failed to upsert personal cart item", err, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return nil, classify(err)
	}

	var stored model.PersonalCartItem
	err = r.db.Where("personal_cart_id = ? AND product_id = ?", cartID, productID).
		Preload("Product", unscopedProduct).
		First(&stored).Error
	if err != nil {
		logger.Error("Failed to read personal cart item after upsert", err, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return nil, classify(err)
	}

	logger.Debug("Personal cart item accumulated", map[string]interface{}{
		"cart_item_id": stored.ID,
		"quantity":     stored.Quantity,
	})
	return &stored, nil
}

// FindPersonalItem returns the item only if it belongs to userID's personal cart.
func (r *cartRepository) FindPersonalItem(userID, itemID uint) (*model.PersonalCartItem, error) {
	logger.Debug("Finding personal cart item", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
	})

	ownedCarts := r.db.Model(&model.PersonalCart{}).Select("id").Where("user_id = ?", userID)

	var item model.PersonalCartItem
	err := r.db.Where("id = ? AND personal_cart_id IN (?)", itemID, ownedCarts).
		Preload("Product", unscopedProduct).
		First(&item).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find personal cart item", err, map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": itemID,
			})
		}
		return nil, classify(err)
	}
	return &item, nil
}

func (r *cartRepository) UpdatePersonalItemQuantity(itemID uint, quantity int) error {
	logger.Debug("Updating personal cart item quantity", map[string]interface{}{
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	result := r.db.Model(&model.PersonalCartItem{}).Where("id = ?", itemID).Updates(map[string]interface{}{
		"quantity":   quantity,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		logger.Error("Failed to update personal cart item quantity", result.Error, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) DeletePersonalItem(itemID uint) error {
	logger.Debug("Deleting personal cart item", map[string]interface{}{
		"cart_item_id": itemID,
	})

	result := r.db.Delete(&model.PersonalCartItem{}, itemID)
	if result.Error != nil {
		logger.Error("Failed to delete personal cart item", result.Error, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) ClearPersonalItems(cartID uint) error {
	logger.Debug("Clearing personal cart items", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.Where("personal_cart_id = ?", cartID).Delete(&model.PersonalCartItem{}).Error; err != nil {
		logger.Error("Failed to clear personal cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return classify(err)
	}
	return nil
}

func (r *cartRepository) CreateRecipeCart(cart *model.RecipeCart) error {
	logger.Debug("Creating recipe cart", map[string]interface{}{
		"user_id":   cart.UserID,
		"recipe_id": cart.RecipeID,
		"items":     len(cart.Items),
	})

	if err := r.db.Create(cart).Error; err != nil {
		logger.Error("Failed to create recipe cart", err, map[string]interface{}{
			"user_id":   cart.UserID,
			"recipe_id": cart.RecipeID,
		})
		return classify(err)
	}

	logger.Debug("Recipe cart created", map[string]interface{}{
		"recipe_cart_id": cart.ID,
		"items":          len(cart.Items),
	})
	return nil
}

func (r *cartRepository) FindRecipeCart(userID, recipeCartID uint) (*model.RecipeCart, error) {
	logger.Debug("Finding recipe cart", map[string]interface{}{
		"user_id":        userID,
		"recipe_cart_id": recipeCartID,
	})

	var cart model.RecipeCart
	err := r.db.Where("id = ? AND user_id = ?", recipeCartID, userID).
		Preload("Items", orderedByID).
		Preload("Items.Product", unscopedProduct).
		First(&cart).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find recipe cart", err, map[string]interface{}{
				"recipe_cart_id": recipeCartID,
			})
		}
		return nil, classify(err)
	}
	return &cart, nil
}

func (r *cartRepository) FindRecipeCartsByUser(userID uint, includedOnly bool) ([]model.RecipeCart, error) {
	logger.Debug("Finding recipe carts by user ID", map[string]interface{}{
		"user_id":       userID,
		"included_only": includedOnly,
	})

	query := r.db.Where("user_id = ?", userID)
	if includedOnly {
		query = query.Where("is_added_to_main_cart = ?", true)
	}

	var carts []model.RecipeCart
	err := query.
		Preload("Items", orderedByID).
		Preload("Items.Product", unscopedProduct).
		Order("created_at ASC").Order("id ASC").
		Find(&carts).Error
	if err != nil {
		logger.Error("Failed to find recipe carts", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, classify(err)
	}

	logger.Debug("Recipe carts found", map[string]interface{}{
		"user_id": userID,
		"count":   len(carts),
	})
	return carts, nil
}

func (r *cartRepository) SetRecipeCartIncluded(recipeCartID uint, included bool) error {
	logger.Debug("Updating recipe cart inclusion flag", map[string]interface{}{
		"recipe_cart_id": recipeCartID,
		"included":       included,
	})

	result := r.db.Model(&model.RecipeCart{}).Where("id = ?", recipeCartID).Update("is_added_to_main_cart", included)
	if result.Error != nil {
		logger.Error("Failed to update recipe cart inclusion flag", result.Error, map[string]interface{}{
			"recipe_cart_id": recipeCartID,
		})
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteRecipeCart removes the cart and all of its items.
func (r *cartRepository) DeleteRecipeCart(recipeCartID uint) error {
	logger.Debug("Deleting recipe cart", map[string]interface{}{
		"recipe_cart_id": recipeCartID,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_cart_id = ?", recipeCartID).Delete(&model.RecipeCartItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.RecipeCart{}, recipeCartID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to delete recipe cart", err, map[string]interface{}{
				"recipe_cart_id": recipeCartID,
			})
		}
		return classify(err)
	}
	return nil
}
