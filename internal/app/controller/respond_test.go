package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/service"
	apperrors "github.com/recetteplus/recette-backend/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestRespondServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"auth", service.ErrAuthRequired, http.StatusUnauthorized, apperrors.AuthUnauthorized},
		{"order not found", service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
		{"generic not found", service.ErrNotFound, http.StatusNotFound, apperrors.ResourceNotFound},
		{"wrapped recipe cart", fmt.Errorf("include: %w", service.ErrRecipeCartNotFound), http.StatusNotFound, apperrors.CartRecipeNotFound},
		{"invalid assignment", service.ErrInvalidAssignment, http.StatusConflict, apperrors.OrderInvalidAssignment},
		{"forbidden actor", service.ErrForbiddenActor, http.StatusConflict, apperrors.OrderGuardViolation},
		{"guard", service.ErrGuardViolation, http.StatusConflict, apperrors.OrderGuardViolation},
		{"empty cart", service.ErrEmptyCart, http.StatusUnprocessableEntity, apperrors.CartEmpty},
		{"quantity", service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.CartInvalidQuantity},
		{"store down", fmt.Errorf("find order: %w", service.ErrStoreUnavailable), http.StatusServiceUnavailable, apperrors.StoreUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, apperrors.InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, tt.err, "fetch order")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["error"])
			assert.NotEmpty(t, decode(t, w)["message"])
		})
	}
}

func TestActorFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, ok := actorFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set("user_id", uint(7))
	_, ok = actorFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
