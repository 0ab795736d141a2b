package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/internal/app/service"
	apperrors "github.com/recetteplus/recette-backend/internal/errors"
	ws "github.com/recetteplus/recette-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// advanceToPickedUp drives order to picked_up over HTTP with f.courier.
func (f *controllerFixture) advanceToPickedUp(t *testing.T, order model.Order) {
	t.Helper()
	steps := []struct {
		handler gin.HandlerFunc
		user    *model.User
		action  string
		body    interface{}
	}{
		{f.orders.Validate, f.manager, "validate", nil},
		{f.orders.Assign, f.courier, "assign", gin.H{"qr_code": order.QRCode}},
		{f.orders.Pickup, f.courier, "pickup", nil},
	}
	for _, step := range steps {
		w := call(t, step.handler, step.user, http.MethodPost, "/orders/:id/"+step.action, orderPath(order.ID, step.action), step.body)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", step.action, w.Body.String())
	}
}

func TestTrackingController_EmptyFeed(t *testing.T) {
	f := setupControllerTest(t)
	order := f.placeOrder(t)

	w := call(t, f.tracking.GetFeed, f.customer, http.MethodGet, "/orders/:id/tracking", orderPath(order.ID, "tracking"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	feed := decode(t, w)["tracking"].(map[string]interface{})
	assert.Contains(t, feed, "current_location")
	assert.Nil(t, feed["current_location"])
	assert.Empty(t, feed["events"])
	assert.Equal(t, float64(10), feed["poll_interval_seconds"])
}

func TestTrackingController_RecordLocation(t *testing.T) {
	f := setupControllerTest(t)
	order := f.placeOrder(t)
	f.advanceToPickedUp(t, order)

	path := orderPath(order.ID, "tracking")

	w := call(t, f.tracking.RecordLocation, f.courier, http.MethodPost, "/orders/:id/tracking", path,
		gin.H{"latitude": 48.8566, "longitude": 2.3522})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, f.tracking.RecordLocation, f.courier, http.MethodPost, "/orders/:id/tracking", path,
		gin.H{"latitude": 95.0, "longitude": 2.3522})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.TrackingInvalidCoordinates, decode(t, w)["error"])

	w = call(t, f.tracking.RecordLocation, f.courier, http.MethodPost, "/orders/:id/tracking", path,
		gin.H{"latitude": 48.8566})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the customer can read the feed but not write to it
	w = call(t, f.tracking.RecordLocation, f.customer, http.MethodPost, "/orders/:id/tracking", path,
		gin.H{"latitude": 48.8566, "longitude": 2.3522})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, f.tracking.GetFeed, f.customer, http.MethodGet, "/orders/:id/tracking", path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decode(t, w)["tracking"].(map[string]interface{})
	location := feed["current_location"].(map[string]interface{})
	assert.Equal(t, 48.8566, location["latitude"])
	assert.Len(t, feed["events"], 1)
}

func TestTrackingController_ProofUpload(t *testing.T) {
	f := setupControllerTest(t)
	order := f.placeOrder(t)
	path := orderPath(order.ID, "proof-upload")
	body := gin.H{"filename": "porte.jpg", "content_type": "image/jpeg"}

	// not assigned yet
	w := call(t, f.tracking.ProofUpload, f.courier, http.MethodPost, "/orders/:id/proof-upload", path, body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.advanceToPickedUp(t, order)

	w = call(t, f.tracking.ProofUpload, f.courier, http.MethodPost, "/orders/:id/proof-upload", path,
		gin.H{"filename": "notes.pdf", "content_type": "application/pdf"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.UploadInvalidFileType, decode(t, w)["error"])

	w = call(t, f.tracking.ProofUpload, f.courier, http.MethodPost, "/orders/:id/proof-upload", path, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decode(t, w)
	assert.True(t, strings.HasPrefix(response["key"].(string), "proofs/"))
	assert.NotEmpty(t, response["upload_url"])
	assert.NotEmpty(t, response["file_url"])
	assert.Equal(t, []string{fmt.Sprintf("proofs/%d", order.ID)}, f.uploader.folders)
}

func TestTrackingController_ProofUpload_NoBucket(t *testing.T) {
	f := setupControllerTest(t)
	order := f.placeOrder(t)
	f.advanceToPickedUp(t, order)

	trackingRepo := repository.NewTrackingRepository(f.db)
	orderRepo := repository.NewOrderRepository(f.db)
	ctrl := NewTrackingController(service.NewTrackingService(trackingRepo, orderRepo, 10*time.Second, time.Minute), ws.NewHub(), nil, nil)

	w := call(t, ctrl.ProofUpload, f.courier, http.MethodPost, "/orders/:id/proof-upload", orderPath(order.ID, "proof-upload"),
		gin.H{"filename": "porte.jpg", "content_type": "image/jpeg"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.UploadFailed, decode(t, w)["error"])
}

func TestTrackingController_Watch(t *testing.T) {
	f := setupControllerTest(t)
	order := f.placeOrder(t)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	trackingRepo := repository.NewTrackingRepository(f.db)
	orderRepo := repository.NewOrderRepository(f.db)
	ctrl := NewTrackingController(service.NewTrackingService(trackingRepo, orderRepo, 10*time.Second, time.Minute), hub, nil, []string{"http://localhost:5173"})

	watcher := f.customer
	router := gin.New()
	router.GET("/orders/:id/tracking/ws", func(c *gin.Context) {
		setIdentityInContext(c, watcher)
		ctrl.Watch(c)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + orderPath(order.ID, "tracking/ws")

	// a stranger is refused before the upgrade
	watcher = f.other
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// an unknown origin is refused by the upgrader
	watcher = f.customer
	_, resp, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.RoomSize(order.ID) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.SendToRoom(order.ID, gin.H{"type": "tracking", "order_id": order.ID}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"tracking"`)
}
