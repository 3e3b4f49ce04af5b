package main

import (
	"github.com/Aik0o1/cashback-system/internal/handler"
	"github.com/Aik0o1/cashback-system/internal/middleware"
	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/pkg/config"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/pkg/storage"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting cashback service...", cfg.LogConfig()...)

	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.User{},
		&model.Merchant{},
		&model.Admin{},
		&model.Product{},
		&model.Transaction{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	blobStore, err := storage.NewBlobStore(&cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize blob store", zap.Error(err))
	}
	handler.SetBlobStore(blobStore)

	prometheus.InitMetrics()
	log.Info("Prometheus metrics initialized")

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.Static(cfg.Storage.BaseURL, blobStore.Dir())

	auth := e.Group("/auth")
	auth.POST("/register", handler.RegisterUser)
	auth.POST("/login", handler.LoginUser)
	auth.POST("/validate", handler.ValidateUserField)

	e.POST("/merchants", handler.RegisterMerchant)
	e.POST("/merchants/login", handler.LoginMerchant)

	e.POST("/admin/register", handler.RegisterAdmin)
	e.POST("/admin/login", handler.LoginAdmin)

	// API routes - all require authentication
	api := e.Group("", middleware.AuthMiddleware)

	users := api.Group("/users")
	users.GET("", handler.ListUsers, middleware.RequireKind(jwtutil.KindAdmin))
	users.GET("/:id", handler.GetUser)
	users.PUT("/:id", handler.UpdateUser)
	users.DELETE("/:id", handler.DeleteUser, middleware.RequireKind(jwtutil.KindAdmin))

	merchants := api.Group("/merchants")
	merchants.GET("", handler.ListMerchants)
	merchants.GET("/:id", handler.GetMerchant)
	merchants.GET("/:id/products", handler.ListMerchantProducts)
	merchants.PUT("/:id", handler.UpdateMerchant, middleware.RequireKind(jwtutil.KindMerchant, jwtutil.KindAdmin))
	merchants.DELETE("/:id", handler.DeleteMerchant, middleware.RequireKind(jwtutil.KindAdmin))

	products := api.Group("/products")
	products.GET("", handler.ListProducts)
	products.GET("/:id", handler.GetProduct)
	products.POST("", handler.CreateProduct, middleware.RequireKind(jwtutil.KindMerchant))
	products.PUT("/:id", handler.UpdateProduct, middleware.RequireKind(jwtutil.KindMerchant, jwtutil.KindAdmin))
	products.DELETE("/:id", handler.DeleteProduct, middleware.RequireKind(jwtutil.KindMerchant, jwtutil.KindAdmin))

	transactions := api.Group("/transactions")
	transactions.POST("", handler.CreateTransaction)
	transactions.GET("", handler.ListTransactions, middleware.RequireKind(jwtutil.KindAdmin))
	transactions.GET("/user/:id/pending", handler.ListUserPendingTransactions)
	transactions.GET("/user/:id/completed", handler.ListUserCompletedTransactions)
	transactions.GET("/merchant", handler.ListMerchantTransactions, middleware.RequireKind(jwtutil.KindMerchant))
	transactions.PUT("/:id/status", handler.UpdateTransactionStatus, middleware.RequireKind(jwtutil.KindMerchant))
	transactions.DELETE("/:id", handler.DeleteTransaction)
	transactions.GET("/product/:id/usage", handler.VerifyProductTransactions)
	transactions.POST("/checkout", handler.Checkout)
	transactions.GET("/export/csv", handler.ExportTransactionsCSV)
	transactions.GET("/export/xlsx", handler.ExportTransactionsXLSX)
	transactions.GET("/export/pdf", handler.ExportTransactionsPDF)

	settlements := api.Group("/settlements", middleware.RequireKind(jwtutil.KindAdmin))
	settlements.POST("/batch", handler.SettleBatch)
	settlements.POST("/:id", handler.SettleTransaction)
	settlements.GET("/float", handler.AdminFloat)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
