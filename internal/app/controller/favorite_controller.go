package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/service"
)

type FavoriteController struct {
	favoriteService service.FavoriteService
}

func NewFavoriteController(favoriteService service.FavoriteService) *FavoriteController {
	return &FavoriteController{
		favoriteService: favoriteService,
	}
}

type AddFavoriteRequest struct {
	ItemID string             `json:"item_id" binding:"required"`
	Type   model.FavoriteType `json:"type" binding:"required"`
}

// ListFavorites returns the caller's favorites, optionally of one type
// GET /api/v1/favorites?type=
func (ctrl *FavoriteController) ListFavorites(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var favType *model.FavoriteType
	if raw := c.Query("type"); raw != "" {
		t := model.FavoriteType(raw)
		favType = &t
	}

	favorites, err := ctrl.favoriteService.List(actor.UserID, favType)
	if err != nil {
		respondServiceError(c, err, "fetch favorites")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"favorites": favorites,
		"count":     len(favorites),
	})
}

// AddFavorite marks an item as favorite; adding twice is a no-op
// POST /api/v1/favorites
func (ctrl *FavoriteController) AddFavorite(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	favorite, err := ctrl.favoriteService.Add(actor.UserID, req.ItemID, req.Type)
	if err != nil {
		respondServiceError(c, err, "add favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"favorite": favorite,
	})
}

// RemoveFavorite unmarks an item
// DELETE /api/v1/favorites/:type/:item_id
func (ctrl *FavoriteController) RemoveFavorite(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	favType := model.FavoriteType(c.Param("type"))
	if err := ctrl.favoriteService.Remove(actor.UserID, c.Param("item_id"), favType); err != nil {
		respondServiceError(c, err, "remove favorite")
		return
	}
	c.Status(http.StatusNoContent)
}
