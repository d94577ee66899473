package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is a customer-facing financial document. AmountPaid is derived:
// it always equals the sum of the invoice's payments and is recomputed from
// rows inside the payment transaction, never incremented.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"shop_id"`
	Shop           *Shop           `gorm:"foreignKey:ShopID" json:"-"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	SaleID         *uuid.UUID      `gorm:"type:uuid;index" json:"sale_id"`
	InvoiceNumber  string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	IssueDate      time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate        time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"`
	Status         string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Synced         bool            `gorm:"not null;default:false" json:"synced"`
	ClientID       *uuid.UUID      `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Items          []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items"`
	Payments       []Payment       `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `gorm:"index" json:"updated_at"`
}

// IsTerminal reports whether the invoice status can no longer change via the
// overdue sweep.
func (i *Invoice) IsTerminal() bool {
	return i.Status == StatusPaid || i.Status == StatusCancelled
}

// InvoiceItem is a product line within an Invoice
type InvoiceItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product        *Product        `gorm:"foreignKey:ProductID" json:"-"`
	Quantity       int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Payment applies money against exactly one ledger target: an Invoice or a
// Sale. The two legacy recording paths share one status function.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID     *uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id"`
	SaleID        *uuid.UUID      `gorm:"type:uuid;index" json:"sale_id"`
	UserID        *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"` // recording user; nil when pushed by a sync batch without actor detail
	User          *User           `gorm:"foreignKey:UserID" json:"-"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"type:date;not null" json:"payment_date"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_method"`
	Reference     string          `gorm:"type:varchar(255)" json:"reference,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	Synced        bool            `gorm:"not null;default:false" json:"synced"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;index" json:"client_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `gorm:"index" json:"updated_at"`
}
