package service

import (
	"errors"
	"fmt"

	"github.com/recetteplus/recette-backend/internal/app/repository"
)

// Sentinels are grouped by how the caller should react. Controllers match
// them with errors.Is; the specific ones wrap their category.
var (
	ErrAuthRequired = errors.New("authentication required")

	ErrNotFound           = errors.New("not found")
	ErrProductNotFound    = fmt.Errorf("product %w", ErrNotFound)
	ErrCartItemNotFound   = fmt.Errorf("cart item %w", ErrNotFound)
	ErrRecipeCartNotFound = fmt.Errorf("recipe cart %w", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("order %w", ErrNotFound)

	ErrGuardViolation    = errors.New("order transition not allowed")
	ErrInvalidAssignment = fmt.Errorf("invalid code or order not found: %w", ErrGuardViolation)
	ErrForbiddenActor    = fmt.Errorf("actor may not perform this transition: %w", ErrGuardViolation)

	ErrStoreUnavailable = repository.ErrStoreUnavailable

	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrEmptyCart           = errors.New("main cart has no available item")
	ErrMissingAddress      = errors.New("delivery address is required")
	ErrInvalidFavoriteType = errors.New("invalid favorite type")
	ErrInvalidCoordinates  = errors.New("latitude and longitude must be given together and within range")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidPrice        = errors.New("price must not be negative")
)
