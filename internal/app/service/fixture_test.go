package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryCartViewCache is an in-process CartViewCache used to check that every
// mutation invalidates what it should.
type memoryCartViewCache struct {
	mu    sync.Mutex
	views map[uint]*MainCartView
	gens  map[uint]uint64
	all   uint64
}

func newMemoryCartViewCache() *memoryCartViewCache {
	return &memoryCartViewCache{
		views: make(map[uint]*MainCartView),
		gens:  make(map[uint]uint64),
	}
}

func (c *memoryCartViewCache) versionLocked(userID uint) string {
	return fmt.Sprintf("%d:%d", c.gens[userID], c.all)
}

func (c *memoryCartViewCache) Version(userID uint) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionLocked(userID), true
}

func (c *memoryCartViewCache) Get(userID uint) (*MainCartView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[userID]
	return v, ok
}

func (c *memoryCartViewCache) Set(userID uint, version string, view *MainCartView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.versionLocked(userID) {
		return
	}
	c.views[userID] = view
}

func (c *memoryCartViewCache) Invalidate(userIDs ...uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.gens[id]++
		delete(c.views, id)
	}
}

func (c *memoryCartViewCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all++
	c.views = make(map[uint]*MainCartView)
}

func (c *memoryCartViewCache) has(userID uint) bool {
	_, ok := c.Get(userID)
	return ok
}

type serviceFixture struct {
	db    *gorm.DB
	cache *memoryCartViewCache

	carts     CartService
	orders    OrderService
	tracking  TrackingService
	products  ProductService
	favorites FavoriteService

	customer *model.User
	other    *model.User
	manager  *model.User
	courier  *model.User
	courier2 *model.User
	admin    *model.User

	tomato *model.Product
	onion  *model.Product
	garlic *model.Product
	cod    *model.Product // out of stock
}

func setupServiceTest(t *testing.T) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &serviceFixture{db: testDB, cache: newMemoryCartViewCache()}

	users := []**model.User{&f.customer, &f.other, &f.manager, &f.courier, &f.courier2, &f.admin}
	seed := []model.User{
		{Email: "camille@example.com", Name: "Camille", Role: model.RoleUser, Address: "12 rue des Lilas, 75011 Paris"},
		{Email: "louis@example.com", Name: "Louis", Role: model.RoleUser},
		{Email: "gestion@example.com", Name: "Nadia", Role: model.RoleOrderManager},
		{Email: "karim@example.com", Name: "Karim", Role: model.RoleDelivery},
		{Email: "ines@example.com", Name: "Inès", Role: model.RoleDelivery},
		{Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin},
	}
	for i := range seed {
		u := seed[i]
		require.NoError(t, testDB.Create(&u).Error)
		*users[i] = &u
	}

	products := []**model.Product{&f.tomato, &f.onion, &f.garlic, &f.cod}
	catalog := []model.Product{
		{Name: "Tomates grappe", Price: 360, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Oignons jaunes", Price: 190, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Ail", Price: 120, Unit: "tête", Category: model.CategoryVegetables, InStock: true},
		{Name: "Filet de cabillaud", Price: 2490, Unit: "kg", Category: model.CategoryFish, InStock: false},
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

	f.carts = NewCartService(cartRepo, productRepo, testDB, f.cache)
	f.orders = NewOrderService(orderRepo, cartRepo, trackingRepo, userRepo, testDB, f.cache)
	f.tracking = NewTrackingService(trackingRepo, orderRepo, 10*time.Second, 2*time.Minute)
	f.products = NewProductService(productRepo, f.cache)
	f.favorites = NewFavoriteService(repository.NewFavoriteRepository(testDB), productRepo)

	return f
}

func actorOf(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// placeOrder checks out a single tomato line for the customer.
func (f *serviceFixture) placeOrder(t *testing.T) *model.Order {
	_, err := f.carts.AddProductToPersonalCart(f.customer.ID, f.tomato.ID, 2)
	require.NoError(t, err)
	order, err := f.orders.Checkout(f.customer.ID, "", "Sonner deux fois")
	require.NoError(t, err)
	return order
}

// advanceTo drives an order through the happy path up to target, with
// f.courier as the delivery person. order must carry its QR code when it is
// still before assignment.
func (f *serviceFixture) advanceTo(t *testing.T, order *model.Order, target model.OrderStatus) *model.Order {
	var err error
	steps := []struct {
		status model.OrderStatus
		run    func() (*model.Order, error)
	}{
		{model.OrderStatusValidated, func() (*model.Order, error) { return f.orders.Validate(actorOf(f.manager), order.ID) }},
		{model.OrderStatusAssigned, func() (*model.Order, error) { return f.orders.Assign(actorOf(f.courier), order.ID, order.QRCode) }},
		{model.OrderStatusPickedUp, func() (*model.Order, error) { return f.orders.Pickup(actorOf(f.courier), order.ID) }},
		{model.OrderStatusInTransit, func() (*model.Order, error) {
			return f.orders.StartTransit(actorOf(f.courier), order.ID, TransitDetails{})
		}},
		{model.OrderStatusDelivered, func() (*model.Order, error) { return f.orders.Deliver(actorOf(f.courier), order.ID, nil) }},
	}

	current := order
	reached := current.Status == model.OrderStatusPending
	for _, step := range steps {
		if current.Status == target {
			break
		}
		if !reached {
			// skip the steps the order has already gone through
			reached = step.status == current.Status
			continue
		}
		current, err = step.run()
		require.NoError(t, err)
		require.Equal(t, step.status, current.Status)
	}
	return current
}
