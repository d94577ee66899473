package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateSale     = "CREATE_SALE"
	ActionCreateInvoice  = "CREATE_INVOICE"
	ActionRecordPayment  = "RECORD_PAYMENT"
	ActionCreateCustomer = "CREATE_CUSTOMER"
	ActionRecordSupply   = "RECORD_SUPPLY"
	ActionInvoiceOverdue = "INVOICE_OVERDUE"
	ActionSaleOverdue    = "SALE_OVERDUE"

	// Sync push records dropped by the shop-access check are skipped silently
	// in the response but must leave an audit trail server-side.
	ActionSyncSkipped = "SYNC_RECORD_SKIPPED"
)

// AuditLog tracks Who, What, and When for ledger and sync mutations
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated sweep
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
