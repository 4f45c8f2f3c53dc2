// Package inventory holds the locality capacity contract: committed (sold + held) tickets
// never exceed a locality's capacity.
package inventory

import (
	"context"
	"errors"
)

var (
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrLocalityNotFound     = errors.New("locality not found")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
)

// Store adjusts a locality's committed counter.
//
// Reserve is an atomic check-and-increment: it succeeds only if committed+qty <= capacity.
// Release decrements committed by qty, clamped at zero; an underflow is logged, not returned.
type Store interface {
	Reserve(ctx context.Context, localityID uint, qty int) error
	Release(ctx context.Context, localityID uint, qty int) error
}
