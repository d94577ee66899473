package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer belongs to a single shop. ClientID is the idempotency key assigned
// by the shop client that created the record offline; it is nil for records
// created server-side.
type Customer struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"shop_id"`
	Shop         *Shop           `gorm:"foreignKey:ShopID" json:"-"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Phone        string          `gorm:"type:varchar(50)" json:"phone"`
	Email        string          `gorm:"type:varchar(255)" json:"email"`
	Address      string          `gorm:"type:text" json:"address"`
	CreditLimit  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"credit_limit"`
	PaymentTerms string          `gorm:"type:varchar(100)" json:"payment_terms"`
	Synced       bool            `gorm:"not null;default:false" json:"synced"`
	ClientID     *uuid.UUID      `gorm:"type:uuid;index" json:"client_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}
