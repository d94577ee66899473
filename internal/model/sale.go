package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger status constants, shared by Sale and Invoice
const (
	StatusDraft         = "draft"
	StatusUnpaid        = "unpaid"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusOverdue       = "overdue"
	StatusCancelled     = "cancelled"
)

// PaymentMethod constants
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
	MethodCheck    = "check"
)

// Sale represents a point-of-sale transaction. Totals are supplied by the
// client and stored verbatim for bit-compatibility with deployed POS clients;
// the server does not recompute them (known gap, flagged to product owners).
type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"shop_id"`
	Shop           *Shop           `gorm:"foreignKey:ShopID" json:"-"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_method"`
	Status         string          `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"status"`
	ReceiptPath    string          `gorm:"type:varchar(255)" json:"receipt_path,omitempty"`
	Synced         bool            `gorm:"not null;default:false" json:"synced"`
	ClientID       *uuid.UUID      `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `gorm:"index" json:"updated_at"`
}

// SaleItem is a product line within a Sale
type SaleItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product      *Product        `gorm:"foreignKey:ProductID" json:"-"`
	Quantity     int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	DiscountRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_rate"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
