// Package auth defines the explicit caller identity threaded through every
// ledger and sync operation in place of ambient request state.
package auth

import "github.com/google/uuid"

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
	ShopID *uuid.UUID // nil for cross-shop admins
}

const roleAdmin = "admin"

// CanAccessShop reports whether the actor may read or mutate the given shop's data.
func (a Actor) CanAccessShop(shopID uuid.UUID) bool {
	if a.Role == roleAdmin {
		return true
	}
	return a.ShopID != nil && *a.ShopID == shopID
}
