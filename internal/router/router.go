package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/recetteplus/recette-backend/config"
	"github.com/recetteplus/recette-backend/internal/app/controller"
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/middleware"
)

type Router struct {
	productController  *controller.ProductController
	cartController     *controller.CartController
	orderController    *controller.OrderController
	trackingController *controller.TrackingController
	favoriteController *controller.FavoriteController
	authMiddleware     *middleware.AuthMiddleware
	assignLimiter      *middleware.RateLimiter
	config             *config.Config
}

func NewRouter(
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	trackingController *controller.TrackingController,
	favoriteController *controller.FavoriteController,
	authMiddleware *middleware.AuthMiddleware,
	assignLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		productController:  productController,
		cartController:     cartController,
		orderController:    orderController,
		trackingController: trackingController,
		favoriteController: favoriteController,
		authMiddleware:     authMiddleware,
		assignLimiter:      assignLimiter,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Recette+ API is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authenticate := r.authMiddleware.Authenticate()
	admin := r.authMiddleware.RequireRole(model.RoleAdmin)
	manager := r.authMiddleware.RequireRole(model.RoleOrderManager, model.RoleAdmin)
	delivery := r.authMiddleware.RequireRole(model.RoleDelivery, model.RoleAdmin)
	staff := r.authMiddleware.RequireRole(model.RoleOrderManager, model.RoleDelivery, model.RoleAdmin)

	products := v1.Group("/products")
	{
		products.GET("", r.productController.ListProducts)
		products.GET("/:id", r.productController.GetProduct)
		products.PATCH("/:id/price", authenticate, admin, r.productController.UpdatePrice)
		products.PATCH("/:id/stock", authenticate, admin, r.productController.SetStock)
	}

	cart := v1.Group("/cart", authenticate)
	{
		cart.GET("", r.cartController.GetCart)
		cart.PATCH("/personal", r.cartController.SetPersonalIncluded)
		cart.POST("/personal/items", r.cartController.AddItem)
		cart.PUT("/personal/items/:id", r.cartController.UpdateItem)
		cart.DELETE("/personal/items/:id", r.cartController.RemoveItem)
		cart.GET("/recipes", r.cartController.ListRecipeCarts)
		cart.POST("/recipes", r.cartController.CreateRecipeCart)
		cart.POST("/recipes/:id/include", r.cartController.IncludeRecipeCart)
		cart.DELETE("/recipes/:id/include", r.cartController.ExcludeRecipeCart)
		cart.DELETE("/recipes/:id", r.cartController.DeleteRecipeCart)
	}

	orders := v1.Group("/orders", authenticate)
	{
		orders.POST("", r.orderController.Checkout)
		orders.GET("", r.orderController.ListOrders)
		orders.GET("/:id", r.orderController.GetOrder)
		orders.POST("/:id/cancel", r.orderController.Cancel)

		orders.POST("/:id/validate", manager, r.orderController.Validate)
		orders.POST("/:id/assign", delivery, r.assignLimiter.Middleware(), r.orderController.Assign)
		orders.POST("/:id/pickup", delivery, r.orderController.Pickup)
		orders.POST("/:id/transit", delivery, r.orderController.StartTransit)
		orders.POST("/:id/deliver", delivery, r.orderController.Deliver)

		orders.GET("/:id/tracking", r.trackingController.GetFeed)
		orders.POST("/:id/tracking", delivery, r.trackingController.RecordLocation)
		orders.GET("/:id/tracking/ws", r.trackingController.Watch)
		orders.POST("/:id/proof-upload", delivery, r.trackingController.ProofUpload)
	}

	v1.GET("/staff/orders", authenticate, staff, r.orderController.ListStaffOrders)

	favorites := v1.Group("/favorites", authenticate)
	{
		favorites.GET("", r.favoriteController.ListFavorites)
		favorites.POST("", r.favoriteController.AddFavorite)
		favorites.DELETE("/:type/:item_id", r.favoriteController.RemoveFavorite)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			// credentials cannot be combined with a literal wildcard
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = allowedOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(cfg)
}
