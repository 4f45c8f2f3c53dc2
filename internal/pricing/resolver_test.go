package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validCoupon(pct string) *Discount {
	return &Discount{Code: "PROMO", Percentage: d(pct), ExpiresAt: now.Add(24 * time.Hour), Active: true}
}

func TestResolve_NoCoupon(t *testing.T) {
	q := Resolve([]Line{
		{UnitPrice: d("50.00"), Quantity: 3},
		{UnitPrice: d("120.50"), Quantity: 2},
	}, nil, now)

	assert.True(t, q.Subtotal.Equal(d("391.00")))
	assert.True(t, q.Discount.IsZero())
	assert.True(t, q.Total.Equal(d("391.00")))
	assert.False(t, q.Applied)
	assert.Empty(t, q.Warning)
}

func TestResolve_TenPercent(t *testing.T) {
	q := Resolve([]Line{{UnitPrice: d("50.00"), Quantity: 3}}, validCoupon("10"), now)

	assert.True(t, q.Subtotal.Equal(d("150.00")))
	assert.True(t, q.Discount.Equal(d("15.00")))
	assert.True(t, q.Total.Equal(d("135.00")))
	assert.True(t, q.Applied)
}

func TestResolve_RoundsOnceHalfUp(t *testing.T) {
	// Per-line rounding would take 3 x 0.34 = 1.02 off; rounding the total once takes 1.00 off.
	q := Resolve([]Line{
		{UnitPrice: d("3.35"), Quantity: 1},
		{UnitPrice: d("3.35"), Quantity: 1},
		{UnitPrice: d("3.35"), Quantity: 1},
	}, validCoupon("10"), now)

	assert.True(t, q.Subtotal.Equal(d("10.05")))
	// 10.05 - 1.005 = 9.045 -> 9.05
	assert.Equal(t, "9.05", q.Total.StringFixed(2))
	assert.Equal(t, "1.00", q.Discount.StringFixed(2))
}

func TestResolve_FullDiscountClampsAtZero(t *testing.T) {
	q := Resolve([]Line{{UnitPrice: d("80.00"), Quantity: 1}}, validCoupon("100"), now)

	assert.True(t, q.Total.IsZero())
	assert.True(t, q.Discount.Equal(d("80.00")))
}

func TestResolve_InvalidCouponWarns(t *testing.T) {
	lines := []Line{{UnitPrice: d("50.00"), Quantity: 3}}

	tests := []struct {
		name    string
		coupon  *Discount
		warning string
	}{
		{"expired", &Discount{Percentage: d("10"), ExpiresAt: now.Add(-time.Minute), Active: true}, ErrCouponExpired.Error()},
		{"inactive", &Discount{Percentage: d("10"), ExpiresAt: now.Add(time.Hour), Active: false}, ErrCouponInactive.Error()},
		{"over 100", &Discount{Percentage: d("150"), ExpiresAt: now.Add(time.Hour), Active: true}, ErrCouponPercentage.Error()},
		{"zero", &Discount{Percentage: d("0"), ExpiresAt: now.Add(time.Hour), Active: true}, ErrCouponPercentage.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Resolve(lines, tt.coupon, now)
			assert.False(t, q.Applied)
			assert.Equal(t, tt.warning, q.Warning)
			assert.True(t, q.Total.Equal(d("150.00")))
			assert.True(t, q.Discount.IsZero())
		})
	}
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	c := Discount{Percentage: d("5"), ExpiresAt: now, Active: true}
	assert.ErrorIs(t, Validate(c, now), ErrCouponExpired)
	assert.NoError(t, Validate(c, now.Add(-time.Second)))
}
