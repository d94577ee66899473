package database

import (
	"log"

	"retailsync/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Shop{},
		&model.User{},
		&model.RefreshToken{},
		&model.Product{},
		&model.Stock{},
		&model.Customer{},
		&model.Supplier{},
		&model.Supply{},
		&model.Sale{},
		&model.SaleItem{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Payment{},
		&model.SyncApplication{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
