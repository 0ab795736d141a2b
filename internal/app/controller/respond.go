package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/service"
	apperrors "github.com/recetteplus/recette-backend/internal/errors"
	"github.com/recetteplus/recette-backend/internal/middleware"
)

// actorFromContext reads the identity the auth middleware stored. A missing
// identity has already been answered with 401 when ok is false.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Actor{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzRoleNotFound, "Rôle utilisateur inconnu")
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Identifiant invalide")
		return 0, false
	}
	return uint(id), true
}

func respondInvalidRequest(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Données de la requête invalides")
}

// respondServiceError maps service sentinels to status codes and toast
// messages. The most specific sentinels are matched first since they wrap
// their category.
func respondServiceError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrAuthRequired):
		apperrors.Unauthorized(c, "")

	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Produit introuvable")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Article introuvable dans votre panier")
	case errors.Is(err, service.ErrRecipeCartNotFound):
		apperrors.NotFound(c, apperrors.CartRecipeNotFound, "Panier recette introuvable")
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Commande introuvable")
	case errors.Is(err, service.ErrNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Élément introuvable")

	case errors.Is(err, service.ErrInvalidAssignment):
		apperrors.Conflict(c, apperrors.OrderInvalidAssignment, "Code invalide ou commande introuvable")
	case errors.Is(err, service.ErrForbiddenActor):
		apperrors.Conflict(c, apperrors.OrderGuardViolation, "Vous ne pouvez pas effectuer cette action sur cette commande")
	case errors.Is(err, service.ErrGuardViolation):
		apperrors.Conflict(c, apperrors.OrderGuardViolation, "Cette action n'est plus possible pour cette commande")

	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "La quantité doit être d'au moins 1")
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.RespondWithError(c, http.StatusUnprocessableEntity, apperrors.CartEmpty, "Votre panier ne contient aucun article disponible")
	case errors.Is(err, service.ErrMissingAddress):
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Veuillez renseigner une adresse de livraison")
	case errors.Is(err, service.ErrInvalidFavoriteType):
		apperrors.BadRequest(c, apperrors.FavoriteInvalidType, "Type de favori invalide")
	case errors.Is(err, service.ErrInvalidCoordinates):
		apperrors.BadRequest(c, apperrors.TrackingInvalidCoordinates, "Coordonnées invalides")
	case errors.Is(err, service.ErrInvalidStatus):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Statut de commande invalide")
	case errors.Is(err, service.ErrInvalidPrice):
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Le prix ne peut pas être négatif")

	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error("Store unavailable", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ServiceUnavailable(c, "Service momentanément indisponible. Veuillez réessayer")

	default:
		log.Error("Unexpected service error", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
		return
	}

	log.Debug("Request rejected", map[string]interface{}{
		"action": action,
		"reason": err.Error(),
	})
}
