// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/domain/product"
	"github.com/your-org/production-backend/internal/domain/production"
	"github.com/your-org/production-backend/internal/domain/returns"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/events"
	"github.com/your-org/production-backend/internal/interfaces/http/handlers"
	"github.com/your-org/production-backend/internal/interfaces/http/middleware"
	"github.com/your-org/production-backend/internal/pkg/sequence"
	"gorm.io/gorm"
)

// SetupRoutes wires services and handlers onto the API group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	logger := newLogger(cfg)

	publisher := events.NewRedisPublisher(redisClient, logger)
	sequences := sequence.NewRedis(redisClient)

	inventoryService := inventory.NewService(db, cfg, logger)
	productService := product.NewService(db, cfg)
	orderService := order.NewService(db, cfg, inventoryService, publisher, logger)
	productionService := production.NewService(db, cfg, publisher, logger)
	returnsService := returns.NewService(db, cfg, inventoryService, sequences, publisher, logger)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	taskHandler := handlers.NewTaskHandler(productionService)
	returnHandler := handlers.NewReturnHandler(returnsService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)

	// Public auth endpoints
	auth := rg.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}

	// Catalog
	products := rg.Group("/products")
	products.Use(middleware.AuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.POST("", middleware.RequireRoles(user.RoleAdmin), productHandler.CreateProduct)
	}

	// Order lifecycle
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.GetOrders)
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id/cancel", orderHandler.CancelOrder)

		orders.PUT("/:id/approve",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), orderHandler.ApproveOrder)
		orders.PUT("/:id/transit",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), orderHandler.StartTransit)
		orders.PUT("/:id/deliver", orderHandler.ConfirmDelivery)

		orders.GET("/:id/tasks", taskHandler.GetOrderTasks)
		orders.POST("/:id/sync",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), taskHandler.SyncOrder)
	}

	// Production assignments
	tasks := rg.Group("/tasks")
	tasks.Use(middleware.AuthMiddleware(cfg))
	{
		tasks.POST("",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), taskHandler.AssignTasks)
		tasks.PUT("/:id/status", taskHandler.UpdateTaskStatus)
		tasks.GET("/mine",
			middleware.RequireRoles(user.RoleChef), taskHandler.GetMyTasks)
	}

	// Returns
	returnRoutes := rg.Group("/returns")
	returnRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		returnRoutes.GET("", returnHandler.GetReturns)
		returnRoutes.POST("", returnHandler.CreateReturn)
		returnRoutes.GET("/:id", returnHandler.GetReturn)
		returnRoutes.PUT("/:id/approve",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), returnHandler.ApproveReturn)
		returnRoutes.PUT("/:id/reject",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), returnHandler.RejectReturn)
	}

	// Stock ledger
	stock := rg.Group("/inventory")
	stock.Use(middleware.AuthMiddleware(cfg))
	{
		stock.GET("/:branch_id", inventoryHandler.GetBranchStock)
		stock.GET("/:branch_id/:product_id", inventoryHandler.GetStockRecord)
		stock.GET("/:branch_id/:product_id/movements", inventoryHandler.GetMovements)
		stock.POST("/adjust",
			middleware.RequireRoles(user.RoleAdmin, user.RoleProduction), inventoryHandler.ApplyAdjustment)
	}
}

// newLogger builds the shared application logger from config
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
