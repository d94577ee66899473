package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the global catalog entry. Per-shop quantities live in Stock.
// Soft-deleted products stay visible to sync pulls as tombstones so offline
// clients learn about removals.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Barcode     string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"barcode"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost_price"`
	Description string          `gorm:"type:text" json:"description"`
	ImagePath   string          `gorm:"type:varchar(255)" json:"image_path,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Stock is the (shop, product) quantity pivot. Quantity may go negative:
// offline clients can oversell before a sync catches up, and blocking the
// write here would corrupt the financial state recorded alongside it.
// AlertQuantity is a UI hint, not a server-enforced bound.
type Stock struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stocks_shop_product" json:"shop_id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stocks_shop_product" json:"product_id"`
	Product       *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity      int       `gorm:"type:int;not null;default:0" json:"quantity"`
	AlertQuantity int       `gorm:"type:int;not null;default:5" json:"alert_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`
}

// Supplier provides products to shops via Supply records
type Supplier struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string         `gorm:"type:varchar(50)" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	Address       string         `gorm:"type:text" json:"address"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Supply records an intake of product quantity into a shop from a supplier.
// TotalCost is derived (quantity x cost_price) and recomputed on every write.
type Supply struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier   *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ShopID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"shop_id"`
	Quantity   int             `gorm:"type:int;not null" json:"quantity"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_cost"`
	SupplyDate time.Time       `gorm:"not null" json:"supply_date"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
