package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/recetteplus/recette-backend/internal/app/service"
	apperrors "github.com/recetteplus/recette-backend/internal/errors"
	"github.com/recetteplus/recette-backend/internal/middleware"
	"github.com/recetteplus/recette-backend/internal/storage"
	ws "github.com/recetteplus/recette-backend/internal/websocket"
)

type TrackingController struct {
	trackingService service.TrackingService
	hub             *ws.Hub
	uploader        storage.Uploader
	upgrader        websocket.Upgrader
}

// NewTrackingController wires the feed endpoints. uploader may be nil when
// no bucket is configured; proof uploads then answer 503.
func NewTrackingController(
	trackingService service.TrackingService,
	hub *ws.Hub,
	uploader storage.Uploader,
	allowedOrigins []string,
) *TrackingController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[strings.TrimSpace(origin)] = true
	}

	return &TrackingController{
		trackingService: trackingService,
		hub:             hub,
		uploader:        uploader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// native clients send no Origin
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

type ProofUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GetFeed returns the tracking rows and the derived position of an order
// GET /api/v1/orders/:id/tracking
func (ctrl *TrackingController) GetFeed(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	feed, err := ctrl.trackingService.GetFeed(actor, orderID)
	if err != nil {
		respondServiceError(c, err, "fetch order tracking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tracking": feed,
	})
}

// RecordLocation appends a position report from the delivery person
// POST /api/v1/orders/:id/tracking
func (ctrl *TrackingController) RecordLocation(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	entry, err := ctrl.trackingService.RecordLocation(actor, orderID, req.Latitude, req.Longitude, req.Notes)
	if err != nil {
		respondServiceError(c, err, "record order tracking")
		return
	}

	log.Debug("Location recorded", map[string]interface{}{
		"order_id":    orderID,
		"tracking_id": entry.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"event": entry,
	})
}

// Watch upgrades to a websocket that receives new tracking rows of the order
// GET /api/v1/orders/:id/tracking/ws
func (ctrl *TrackingController) Watch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.trackingService.CanWatch(actor, orderID); err != nil {
		respondServiceError(c, err, "watch order tracking")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return
	}

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id":  actor.UserID,
		"order_id": orderID,
	})

	go ws.Serve(ctrl.hub, conn, actor.UserID, orderID)
}

// ProofUpload hands the assignee a presigned URL for the delivery photo
// POST /api/v1/orders/:id/proof-upload
func (ctrl *TrackingController) ProofUpload(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProofUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}
	if err := storage.ValidateContentType(req.ContentType, storage.ImageContentTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Seules les images sont acceptées (JPEG, PNG, WEBP, HEIC)")
		return
	}

	if err := ctrl.trackingService.CanUploadProof(actor, orderID); err != nil {
		respondServiceError(c, err, "upload proof")
		return
	}

	if ctrl.uploader == nil {
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.UploadFailed, "Téléversement indisponible pour le moment")
		return
	}

	resp, err := ctrl.uploader.GeneratePresignedURLWithFolder(c.Request.Context(), req.Filename, req.ContentType, storage.ProofFolder(orderID))
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Impossible de préparer le téléversement. Veuillez réessayer")
		return
	}

	log.Info("Proof upload URL generated", map[string]interface{}{
		"order_id": orderID,
		"key":      resp.Key,
	})

	c.JSON(http.StatusOK, resp)
}
