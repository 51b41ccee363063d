package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/config"
	"github.com/kendall-kelly/barpos-api/controllers"
	"github.com/kendall-kelly/barpos-api/middleware"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/kendall-kelly/barpos-api/services"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	logger.Info("starting bar POS API", zap.String("env", cfg.GoEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("database migration completed")

	hub := realtime.NewHub(cfg.CORSOrigins)
	defer hub.Close()
	realtime.SetBroadcaster(hub)

	if cfg.RedisEnabled() {
		relay, err := realtime.NewRedisBroadcaster(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel, hub)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = relay.Close() }()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", zap.Error(err))
			}
		}()
		realtime.SetBroadcaster(relay)
		logger.Info("relaying notifications through redis", zap.String("channel", cfg.RedisChannel))
	}

	audit := services.NopAuditLogger
	if cfg.MongoEnabled() {
		mongoAudit, err := services.NewMongoAuditLogger(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			logger.Fatal("failed to connect to mongo", zap.Error(err))
		}
		defer func() { _ = mongoAudit.Close(context.Background()) }()
		audit = mongoAudit
	}

	var receipts services.ReceiptService
	if cfg.ReceiptsEnabled() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to initialize S3", zap.Error(err))
		}
		receipts = services.InitReceiptService(s3Service)
	}

	authService, err := initServices(cfg, audit, receipts)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	if err := authService.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("failed to seed admin user", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, hub)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server is running", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// initServices wires the process-wide services onto the current database and broadcaster
func initServices(cfg *config.Config, audit services.AuditLogger, receipts services.ReceiptService) (*services.AuthService, error) {
	db := config.GetDB()
	notifier := realtime.NewNotifier(realtime.GetBroadcaster())

	orders := services.InitOrderService(db, receipts, audit)
	services.InitOrderRequestService(db, notifier, orders, audit)
	services.InitTableService(db, notifier)
	services.InitProductService(db)
	services.InitSongRequestService(db, notifier)
	return services.InitAuthService(db, cfg)
}

// setupRouter builds the HTTP surface
func setupRouter(cfg *config.Config, hub *realtime.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zap.L().Named("http")))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.POST("/auth/login", controllers.Login)
		v1.GET("/ws", middleware.EnsureValidWebSocketToken(cfg), controllers.ServeWebSocket(hub))

		protected := v1.Group("")
		protected.Use(middleware.EnsureValidToken(cfg))
		{
			orderRequests := protected.Group("/order-requests")
			orderRequests.POST("", controllers.CreateOrderRequest)
			orderRequests.GET("", controllers.ListOrderRequests)
			orderRequests.GET("/:id", controllers.GetOrderRequest)
			orderRequests.PATCH("/:id", controllers.UpdateOrderRequest)
			orderRequests.PATCH("/:id/complete", controllers.CompleteOrderRequest)
			orderRequests.POST("/:id/accept", controllers.AcceptOrderRequest)
			orderRequests.DELETE("/:id", controllers.DeleteOrderRequest)
			orderRequests.GET("/:id/history", controllers.GetOrderRequestHistory)
			orderRequests.POST("/:id/items", controllers.AddOrderRequestItem)
			orderRequests.PATCH("/:id/items/:itemId", controllers.UpdateOrderRequestItem)
			orderRequests.DELETE("/:id/items/:itemId", controllers.DeleteOrderRequestItem)

			orders := protected.Group("/orders")
			orders.POST("", controllers.CreateOrder)
			orders.GET("", controllers.ListOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.PATCH("/:id", controllers.UpdateOrder)
			orders.DELETE("/:id", middleware.RequireRole(models.RoleAdmin, models.RoleCashier), controllers.DeleteOrder)
			orders.GET("/:id/receipt", controllers.GetOrderReceipt)
			orders.GET("/:id/history", controllers.GetOrderHistory)
			orders.POST("/:id/items", controllers.AddOrderItem)
			orders.PATCH("/:id/items/:itemId", controllers.UpdateOrderItem)
			orders.DELETE("/:id/items/:itemId", controllers.DeleteOrderItem)

			tables := protected.Group("/tables")
			tables.PATCH("/:id/occupation", controllers.ChangeTableOccupation)
			tables.GET("/:id/detail", controllers.GetTableDetail)
			tables.GET("/:id/song-requests", controllers.ListTableSongRequests)
			tables.PATCH("/:id/song-requests/deactivate", controllers.DeactivateTableSongRequests)

			protected.PATCH("/products/:id/stock", middleware.RequireRole(models.RoleAdmin), controllers.UpdateProductStock)

			songs := protected.Group("/song-requests")
			songs.POST("", controllers.CreateSongRequest)
			songs.PATCH("/:id/played", controllers.MarkSongRequestPlayed)
			songs.DELETE("/:id", controllers.DeleteSongRequest)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bar POS API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
