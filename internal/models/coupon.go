package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
)

// Coupon is owned by the coupon service; this service only reads it.
type Coupon struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Code               string          `gorm:"uniqueIndex;not null" json:"code"`
	Name               string          `json:"name"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"discount_percentage"`
	ExpiresAt          time.Time       `json:"expires_at"`
	Status             CouponStatus    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (c *Coupon) IsActive() bool {
	return c.Status == CouponActive
}
