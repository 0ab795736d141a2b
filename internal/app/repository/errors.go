package repository

import (
	"errors"
	"fmt"

	apperrors "github.com/recetteplus/recette-backend/internal/errors"
)

// ErrStoreUnavailable marks a transient backend failure. Reads may be retried;
// non-idempotent writes must not be.
var ErrStoreUnavailable = errors.New("store unavailable")

// classify wraps transient driver errors with ErrStoreUnavailable and passes
// everything else through untouched so callers can still match gorm sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsTransient(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
