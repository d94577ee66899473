package model

import (
	"time"

	"github.com/google/uuid"
)

// Sync entity type constants
const (
	EntitySale     = "sale"
	EntityCustomer = "customer"
	EntityPayment  = "payment"
)

// SyncApplication records that a client-assigned record id has been applied.
// The unique (entity_type, client_id) pair is the idempotency key: re-pushing
// the same record returns the stored server id instead of applying the record
// (and its stock decrements) a second time.
type SyncApplication struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_entity_client" json:"entity_type"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sync_entity_client" json:"client_id"`
	RecordID   uuid.UUID `gorm:"type:uuid;not null" json:"record_id"`
	ShopID     uuid.UUID `gorm:"type:uuid;not null;index" json:"shop_id"`
	AppliedAt  time.Time `gorm:"autoCreateTime" json:"applied_at"`
}
