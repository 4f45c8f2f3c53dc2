package models

import "time"

// CartItem is a (locality, quantity) pair in an account's cart. Every item is backed by a Hold.
type CartItem struct {
	CartID     string    `json:"cart_id"`
	LocalityID uint      `json:"locality_id"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"added_at"`
}

// Hold is a temporary claim on locality capacity backing a cart item.
type Hold struct {
	CartID     string    `json:"cart_id"`
	LocalityID uint      `json:"locality_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the hold's expiry is at or before now.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
