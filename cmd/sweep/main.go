package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"retailsync/internal/database"
	"retailsync/internal/repository"
	"retailsync/internal/service"
	"retailsync/internal/websocket"

	"github.com/joho/godotenv"
)

// One-shot overdue sweep. Scheduling belongs to the deployment (cron or a
// systemd timer); running it twice in a row is harmless.
func main() {
	asOfFlag := flag.String("as-of", "", "sweep reference date (YYYY-MM-DD, default today)")
	flag.Parse()

	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	asOf := time.Now()
	if *asOfFlag != "" {
		parsed, err := time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			log.Fatalf("Invalid -as-of date %q: %v", *asOfFlag, err)
		}
		asOf = parsed
	}

	db, err := database.NewConnection(databaseDSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	txManager := repository.NewTransactionManager(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	stockRepo := repository.NewStockRepository(db)
	syncRepo := repository.NewSyncStateRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	stockService := service.NewStockService(stockRepo, wsHub)
	ledgerService := service.NewLedgerService(invoiceRepo, saleRepo, paymentRepo, customerRepo, syncRepo, auditRepo, stockService, txManager, wsHub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := ledgerService.CheckOverdue(ctx, asOf)
	if err != nil {
		if result != nil {
			log.Printf("Overdue sweep failed after %d transitions: %v", result.Transitioned, err)
		} else {
			log.Printf("Overdue sweep failed: %v", err)
		}
		os.Exit(1)
	}
	log.Printf("Overdue sweep complete: %d invoices transitioned", result.Transitioned)
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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
