package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Event is the local copy of an event published by the event service.
type Event struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	City      string    `json:"city"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Localities []Locality `gorm:"foreignKey:EventID" json:"localities,omitempty"`
}

// Locality is a priced capacity tier of an event. Committed counts sold plus held tickets
// and never exceeds Capacity.
type Locality struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	EventID   uint            `gorm:"not null;uniqueIndex:idx_locality_event_name" json:"event_id"`
	Name      string          `gorm:"not null;uniqueIndex:idx_locality_event_name" json:"name"`
	Capacity  int             `gorm:"not null;check:chk_locality_capacity,capacity >= 0" json:"capacity"`
	Committed int             `gorm:"not null;default:0;check:chk_locality_committed,committed <= capacity" json:"committed"`
	Sold      int             `gorm:"not null;default:0;check:chk_locality_sold,sold <= committed" json:"sold"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Remaining is the number of tickets that can still be held.
func (l *Locality) Remaining() int {
	if r := l.Capacity - l.Committed; r > 0 {
		return r
	}
	return 0
}
