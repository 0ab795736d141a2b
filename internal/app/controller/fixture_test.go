package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/internal/app/service"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/recetteplus/recette-backend/internal/middleware"
	"github.com/recetteplus/recette-backend/internal/storage"
	ws "github.com/recetteplus/recette-backend/internal/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUploader struct {
	folders []string
}

func (u *fakeUploader) GeneratePresignedURLWithFolder(_ context.Context, filename, contentType, folder string) (*storage.PresignedURLResponse, error) {
	u.folders = append(u.folders, folder)
	key := storage.ObjectKey(folder, filename)
	return &storage.PresignedURLResponse{
		UploadURL: "https://bucket.example.com/" + key + "?X-Amz-Signature=test",
		FileURL:   "https://cdn.example.com/" + key,
		Key:       key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

type controllerFixture struct {
	db *gorm.DB

	carts     *CartController
	orders    *OrderController
	tracking  *TrackingController
	products  *ProductController
	favorites *FavoriteController

	uploader *fakeUploader

	customer *model.User
	other    *model.User
	manager  *model.User
	courier  *model.User
	admin    *model.User

	tomato *model.Product
	onion  *model.Product
}

func setupControllerTest(t *testing.T) *controllerFixture {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &controllerFixture{db: testDB, uploader: &fakeUploader{}}

	users := []**model.User{&f.customer, &f.other, &f.manager, &f.courier, &f.admin}
	seed := []model.User{
		{Email: "camille@example.com", Name: "Camille", Role: model.RoleUser, Address: "12 rue des Lilas, 75011 Paris"},
		{Email: "louis@example.com", Name: "Louis", Role: model.RoleUser},
		{Email: "gestion@example.com", Name: "Nadia", Role: model.RoleOrderManager},
		{Email: "karim@example.com", Name: "Karim", Role: model.RoleDelivery},
		{Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin},
	}
	for i := range seed {
		u := seed[i]
		require.NoError(t, testDB.Create(&u).Error)
		*users[i] = &u
	}

	products := []**model.Product{&f.tomato, &f.onion}
	catalog := []model.Product{
		{Name: "Tomates grappe", Price: 360, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Oignons jaunes", Price: 190, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
	}
	for i := range catalog {
		p := catalog[i]
		require.NoError(t, testDB.Create(&p).Error)
		*products[i] = &p
	}

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	trackingRepo := repository.NewTrackingRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)

	cartService := service.NewCartService(cartRepo, productRepo, testDB)
	orderService := service.NewOrderService(orderRepo, cartRepo, trackingRepo, userRepo, testDB)
	trackingService := service.NewTrackingService(trackingRepo, orderRepo, 10*time.Second, 2*time.Minute)

	f.carts = NewCartController(cartService)
	f.orders = NewOrderController(orderService)
	f.tracking = NewTrackingController(trackingService, ws.NewHub(), f.uploader, []string{"http://localhost:5173"})
	f.products = NewProductController(service.NewProductService(productRepo))
	f.favorites = NewFavoriteController(service.NewFavoriteService(repository.NewFavoriteRepository(testDB), productRepo))

	return f
}

// setIdentityInContext mimics what the auth middleware stores.
func setIdentityInContext(c *gin.Context, user *model.User) {
	c.Set(middleware.UserIDKey, user.ID)
	c.Set(middleware.UserEmailKey, user.Email)
	c.Set(middleware.UserRoleKey, user.Role)
}

// call serves a single request against handler mounted on route. A nil user
// means an anonymous request.
func call(t *testing.T, handler gin.HandlerFunc, user *model.User, method, route, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if user != nil {
			setIdentityInContext(c, user)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// decodeOrder extracts the "order" object of a response.
func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) model.Order {
	t.Helper()
	var response struct {
		Order model.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Order
}

// placeOrder puts two tomatoes in the customer's cart and checks out over HTTP.
func (f *controllerFixture) placeOrder(t *testing.T) model.Order {
	t.Helper()

	w := call(t, f.carts.AddItem, f.customer, http.MethodPost, "/cart/personal/items", "/cart/personal/items",
		gin.H{"product_id": f.tomato.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, f.orders.Checkout, f.customer, http.MethodPost, "/orders", "/orders", gin.H{"notes": "Digicode 4821"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeOrder(t, w)
}
