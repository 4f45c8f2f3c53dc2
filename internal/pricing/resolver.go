// Package pricing computes cart totals. Everything here is a pure function of its inputs.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponPercentage = errors.New("coupon percentage must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart item.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Discount is the coupon data the resolver needs.
type Discount struct {
	Code       string
	Percentage decimal.Decimal
	ExpiresAt  time.Time
	Active     bool
}

type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Applied  bool
	// Warning explains why a supplied discount was not applied.
	Warning string
}

// Validate reports why d cannot be applied at now, or nil.
func Validate(d Discount, now time.Time) error {
	if !d.Active {
		return ErrCouponInactive
	}
	if !now.Before(d.ExpiresAt) {
		return ErrCouponExpired
	}
	if !d.Percentage.IsPositive() || d.Percentage.GreaterThan(hundred) {
		return ErrCouponPercentage
	}
	return nil
}

// Resolve prices lines and applies d (if non-nil and valid) to the subtotal.
// The total is rounded half-up to cents once; Discount is whatever that rounding leaves.
func Resolve(lines []Line, d *Discount, now time.Time) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	q := Quote{Subtotal: subtotal, Discount: decimal.Zero, Total: subtotal.Round(2)}
	if d == nil {
		return q
	}
	if err := Validate(*d, now); err != nil {
		q.Warning = err.Error()
		return q
	}

	total := subtotal.Sub(subtotal.Mul(d.Percentage).Div(hundred))
	if total.IsNegative() {
		total = decimal.Zero
	}
	q.Total = total.Round(2)
	q.Discount = subtotal.Sub(q.Total)
	q.Applied = true
	return q
}
