package dto

import (
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	"github.com/DarkIsCool10/UniEventos/internal/service"
	"github.com/shopspring/decimal"
)

type HoldResponse struct {
	AccountID  string    `json:"account_id"`
	LocalityID uint      `json:"locality_id"`
	Quantity   int       `json:"quantity"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type CartItemResponse struct {
	LocalityID   uint            `json:"locality_id"`
	EventID      uint            `json:"event_id"`
	LocalityName string          `json:"locality_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

type CartTotalResponse struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	CouponApplied bool            `json:"coupon_applied"`
	CouponWarning string          `json:"coupon_warning,omitempty"`
}

type UnavailableItemResponse struct {
	LocalityID uint   `json:"locality_id"`
	Quantity   int    `json:"quantity"`
	Held       int    `json:"held"`
	Reason     string `json:"reason"`
}

type CartAvailabilityResponse struct {
	Available   bool                      `json:"available"`
	Unavailable []UnavailableItemResponse `json:"unavailable"`
}

type LocalityAvailabilityResponse struct {
	ID        uint            `json:"id"`
	EventID   uint            `json:"event_id"`
	Name      string          `json:"name"`
	Capacity  int             `json:"capacity"`
	Committed int             `json:"committed"`
	Sold      int             `json:"sold"`
	Remaining int             `json:"remaining"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type EventResponse struct {
	ID         uint                           `json:"id"`
	Name       string                         `json:"name"`
	City       string                         `json:"city"`
	StartsAt   time.Time                      `json:"starts_at"`
	Localities []LocalityAvailabilityResponse `json:"localities"`
}

type OrderLineResponse struct {
	LocalityID uint            `json:"locality_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type OrderResponse struct {
	ID         string              `json:"id"`
	AccountID  string              `json:"account_id"`
	CouponCode string              `json:"coupon_code,omitempty"`
	Subtotal   decimal.Decimal     `json:"subtotal"`
	Discount   decimal.Decimal     `json:"discount"`
	Total      decimal.Decimal     `json:"total"`
	Status     models.OrderStatus  `json:"status"`
	Lines      []OrderLineResponse `json:"lines"`
	CreatedAt  time.Time           `json:"created_at"`
}

type ErrorResponse struct {
	Message string                    `json:"message"`
	Items   []UnavailableItemResponse `json:"items,omitempty"`
}

func ToHoldResponse(h models.Hold) HoldResponse {
	return HoldResponse{
		AccountID:  h.CartID,
		LocalityID: h.LocalityID,
		Quantity:   h.Quantity,
		ExpiresAt:  h.ExpiresAt,
	}
}

func ToCartItemResponses(lines []service.CartLine) []CartItemResponse {
	resp := make([]CartItemResponse, len(lines))
	for i, l := range lines {
		resp[i] = CartItemResponse{
			LocalityID:   l.LocalityID,
			EventID:      l.EventID,
			LocalityName: l.LocalityName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			LineTotal:    l.LineTotal,
		}
		if !l.ExpiresAt.IsZero() {
			expires := l.ExpiresAt
			resp[i].ExpiresAt = &expires
		}
	}
	return resp
}

func ToCartTotalResponse(t *service.CartTotal) CartTotalResponse {
	return CartTotalResponse{
		Subtotal:      t.Subtotal,
		Discount:      t.Discount,
		Total:         t.Total,
		CouponCode:    t.CouponCode,
		CouponApplied: t.CouponApplied,
		CouponWarning: t.CouponWarning,
	}
}

func ToUnavailableItemResponses(items []service.UnavailableItem) []UnavailableItemResponse {
	resp := make([]UnavailableItemResponse, len(items))
	for i, it := range items {
		resp[i] = UnavailableItemResponse{
			LocalityID: it.LocalityID,
			Quantity:   it.Quantity,
			Held:       it.Held,
			Reason:     it.Reason,
		}
	}
	return resp
}

func ToLocalityAvailabilityResponse(l *models.Locality) LocalityAvailabilityResponse {
	return LocalityAvailabilityResponse{
		ID:        l.ID,
		EventID:   l.EventID,
		Name:      l.Name,
		Capacity:  l.Capacity,
		Committed: l.Committed,
		Sold:      l.Sold,
		Remaining: l.Remaining(),
		UnitPrice: l.UnitPrice,
	}
}

func ToEventResponse(e *models.Event) EventResponse {
	locs := make([]LocalityAvailabilityResponse, len(e.Localities))
	for i := range e.Localities {
		locs[i] = ToLocalityAvailabilityResponse(&e.Localities[i])
	}
	return EventResponse{
		ID:         e.ID,
		Name:       e.Name,
		City:       e.City,
		StartsAt:   e.StartsAt,
		Localities: locs,
	}
}

func ToOrderResponse(o *models.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineResponse{LocalityID: l.LocalityID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return OrderResponse{
		ID:         o.ID,
		AccountID:  o.AccountID,
		CouponCode: o.CouponCode,
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		Total:      o.Total,
		Status:     o.Status,
		Lines:      lines,
		CreatedAt:  o.CreatedAt,
	}
}
