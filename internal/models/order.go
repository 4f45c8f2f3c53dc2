package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const OrderCommitted OrderStatus = "committed"

// Order records the sale produced by a cart checkout. Payment is handled elsewhere.
type Order struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AccountID  string          `gorm:"not null;index" json:"account_id"`
	CouponCode string          `json:"coupon_code,omitempty"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	Total      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status     OrderStatus     `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
}

type OrderLine struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    string          `gorm:"not null;index;type:varchar(36)" json:"order_id"`
	LocalityID uint            `gorm:"not null" json:"locality_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}
