package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"retailsync/internal/database"
	"retailsync/internal/handler"
	"retailsync/internal/middleware"
	"retailsync/internal/repository"
	"retailsync/internal/service"
	"retailsync/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Retail Sync API
// @version         1.0
// @description     Multi-shop retail backend: central catalog, financial ledger and shop-client synchronization.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	db, err := database.NewConnection(databaseDSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// WebSocket hub for stock alerts, overdue and payment events
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	shopRepo := repository.NewShopRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewStockRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	supplyRepo := repository.NewSupplyRepository(db)
	syncRepo := repository.NewSyncStateRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	stockService := service.NewStockService(stockRepo, wsHub)
	supplyService := service.NewSupplyService(supplyRepo, supplierRepo, productRepo, stockService, txManager)
	ledgerService := service.NewLedgerService(invoiceRepo, saleRepo, paymentRepo, customerRepo, syncRepo, auditRepo, stockService, txManager, wsHub)
	syncService := service.NewSyncService(productRepo, stockRepo, customerRepo, syncRepo, auditRepo, ledgerService, txManager, syncBatchLimit())
	catalogService := service.NewCatalogService(productRepo, stockRepo, customerRepo, shopRepo, auditRepo)

	// Push endpoints are rate limited: offline clients reconnecting after an
	// outage tend to flush their whole queue at once.
	rdb := middleware.NewRedisClient()
	syncRate := os.Getenv("SYNC_RATE_LIMIT")
	if syncRate == "" {
		syncRate = "60-M"
	}

	authHandler := handler.NewAuthHandler(userService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService, supplyService)
	syncHandler := handler.NewSyncHandler(syncService, middleware.RateLimit(syncRate, rdb))

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = corsOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	authHandler.RegisterRoutes(router.Group(""))
	catalogHandler.RegisterRoutes(router.Group(""))
	ledgerHandler.RegisterRoutes(router.Group(""))
	syncHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func databaseDSN() string {
	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	return "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode
}

func syncBatchLimit() int {
	raw := os.Getenv("SYNC_BATCH_LIMIT")
	if raw == "" {
		return service.DefaultBatchLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		log.Printf("Invalid SYNC_BATCH_LIMIT %q, using default %d", raw, service.DefaultBatchLimit)
		return service.DefaultBatchLimit
	}
	return limit
}

func corsOrigins() []string {
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		return strings.Split(raw, ",")
	}
	return []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
