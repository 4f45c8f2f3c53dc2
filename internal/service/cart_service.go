package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/clock"
	"github.com/DarkIsCool10/UniEventos/internal/inventory"
	"github.com/DarkIsCool10/UniEventos/internal/ledger"
	"github.com/DarkIsCool10/UniEventos/internal/models"
	"github.com/DarkIsCool10/UniEventos/internal/pricing"
	"github.com/DarkIsCool10/UniEventos/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCartRequired          = errors.New("account id is required")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrNotEnoughAvailability = errors.New("not enough availability for the requested quantity")
	ErrLocalityNotFound      = errors.New("locality not found")
	ErrInvalidCoupon         = errors.New("invalid coupon")
)

const (
	ReasonExpired = "expired"
	ReasonNotHeld = "not_held"

	RoutingOrderCommitted = "order.committed"
)

// Notifier publishes integration messages. *rabbitmq.Publisher satisfies it.
type Notifier interface {
	Publish(routingKey string, payload any) error
}

type CartService interface {
	AddItem(ctx context.Context, cartID string, localityID uint, qty int) (models.Hold, error)
	RemoveItem(ctx context.Context, cartID string, localityID uint) error
	ClearCart(ctx context.Context, cartID string) error
	ListItems(ctx context.Context, cartID string) ([]CartLine, error)
	CalculateTotal(ctx context.Context, cartID, couponCode string, strict bool) (*CartTotal, error)
	ValidateAvailability(ctx context.Context, cartID string) ([]UnavailableItem, error)
	Checkout(ctx context.Context, cartID, couponCode string) (*models.Order, error)
}

// CartLine is a cart item joined with its locality and hold.
type CartLine struct {
	LocalityID   uint
	EventID      uint
	LocalityName string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	ExpiresAt    time.Time
}

type CartTotal struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	CouponCode    string
	CouponApplied bool
	CouponWarning string
}

type UnavailableItem struct {
	LocalityID uint
	Quantity   int
	Held       int
	Reason     string
}

// AvailabilityError lists cart items no longer backed by a live hold.
type AvailabilityError struct {
	Items []UnavailableItem
}

func (e *AvailabilityError) Error() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = fmt.Sprintf("locality %d (%s)", it.LocalityID, it.Reason)
	}
	return "items no longer held: " + strings.Join(parts, ", ")
}

func (e *AvailabilityError) Unwrap() error {
	return ledger.ErrHoldExpired
}

type cartService struct {
	ledger     *ledger.Ledger
	items      repository.CartRepository
	localities repository.LocalityRepository
	coupons    repository.CouponRepository
	orders     repository.OrderRepository
	notifier   Notifier
	clock      clock.Clock
	logger     *zap.Logger
}

func NewCartService(
	l *ledger.Ledger,
	items repository.CartRepository,
	localities repository.LocalityRepository,
	coupons repository.CouponRepository,
	orders repository.OrderRepository,
	notifier Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) CartService {
	return &cartService{
		ledger:     l,
		items:      items,
		localities: localities,
		coupons:    coupons,
		orders:     orders,
		notifier:   notifier,
		clock:      clk,
		logger:     logger,
	}
}

// AddItem sets the cart's quantity for a locality, holding the capacity it needs.
func (s *cartService) AddItem(ctx context.Context, cartID string, localityID uint, qty int) (models.Hold, error) {
	if cartID == "" {
		return models.Hold{}, ErrCartRequired
	}
	if qty <= 0 {
		return models.Hold{}, ErrInvalidQuantity
	}

	hold, err := s.ledger.AcquireOrExtend(ctx, cartID, localityID, qty)
	switch {
	case errors.Is(err, inventory.ErrInsufficientCapacity):
		return models.Hold{}, fmt.Errorf("%w: %w", ErrNotEnoughAvailability, err)
	case errors.Is(err, inventory.ErrLocalityNotFound):
		return models.Hold{}, ErrLocalityNotFound
	case err != nil:
		return models.Hold{}, err
	}

	s.logger.Info("cart item held",
		zap.String("cart_id", cartID),
		zap.Uint("locality_id", localityID),
		zap.Int("quantity", hold.Quantity),
		zap.Time("expires_at", hold.ExpiresAt),
	)
	return hold, nil
}

// RemoveItem is idempotent: removing an item that is not in the cart succeeds.
func (s *cartService) RemoveItem(ctx context.Context, cartID string, localityID uint) error {
	if cartID == "" {
		return ErrCartRequired
	}
	if err := s.ledger.Release(ctx, cartID, localityID); err != nil && !errors.Is(err, ledger.ErrHoldNotFound) {
		return err
	}
	return nil
}

func (s *cartService) ClearCart(ctx context.Context, cartID string) error {
	if cartID == "" {
		return ErrCartRequired
	}
	return s.ledger.ReleaseAll(ctx, cartID)
}

func (s *cartService) ListItems(ctx context.Context, cartID string) ([]CartLine, error) {
	items := s.items.List(cartID)
	if len(items) == 0 {
		return []CartLine{}, nil
	}

	prices, err := s.loadLocalities(ctx, localityIDs(items))
	if err != nil {
		return nil, err
	}

	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		line := CartLine{LocalityID: item.LocalityID, Quantity: item.Quantity}
		if loc, ok := prices[item.LocalityID]; ok {
			line.EventID = loc.EventID
			line.LocalityName = loc.Name
			line.UnitPrice = loc.UnitPrice
			line.LineTotal = loc.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		if hold, ok := s.ledger.Hold(cartID, item.LocalityID); ok {
			line.ExpiresAt = hold.ExpiresAt
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// CalculateTotal prices the cart. In strict mode an invalid coupon or an item without a live
// hold is an error; otherwise the coupon problem is reported in CouponWarning.
func (s *cartService) CalculateTotal(ctx context.Context, cartID, couponCode string, strict bool) (*CartTotal, error) {
	if strict {
		unavailable, err := s.ValidateAvailability(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if len(unavailable) > 0 {
			return nil, &AvailabilityError{Items: unavailable}
		}
	}

	lines, err := s.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	priced := make([]pricing.Line, len(lines))
	for i, l := range lines {
		priced[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}

	discount, warning, err := s.resolveCoupon(ctx, couponCode)
	if err != nil {
		return nil, err
	}
	return s.price(priced, couponCode, discount, warning, strict)
}

// ValidateAvailability returns the items whose hold is missing, expired or smaller than the item.
func (s *cartService) ValidateAvailability(_ context.Context, cartID string) ([]UnavailableItem, error) {
	now := s.clock.Now()
	var out []UnavailableItem
	for _, item := range s.items.List(cartID) {
		hold, ok := s.ledger.Hold(cartID, item.LocalityID)
		switch {
		case !ok:
			out = append(out, UnavailableItem{LocalityID: item.LocalityID, Quantity: item.Quantity, Reason: ReasonNotHeld})
		case hold.Expired(now):
			out = append(out, UnavailableItem{LocalityID: item.LocalityID, Quantity: item.Quantity, Held: hold.Quantity, Reason: ReasonExpired})
		case hold.Quantity < item.Quantity:
			out = append(out, UnavailableItem{LocalityID: item.LocalityID, Quantity: item.Quantity, Held: hold.Quantity, Reason: ReasonNotHeld})
		}
	}
	return out, nil
}

// Checkout converts every live hold of the cart into a committed order, or nothing at all.
func (s *cartService) Checkout(ctx context.Context, cartID, couponCode string) (*models.Order, error) {
	if cartID == "" {
		return nil, ErrCartRequired
	}
	unavailable, err := s.ValidateAvailability(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(unavailable) > 0 {
		return nil, &AvailabilityError{Items: unavailable}
	}

	discount, warning, err := s.resolveCoupon(ctx, couponCode)
	if err != nil {
		return nil, err
	}
	if warning == "" && discount != nil {
		if verr := pricing.Validate(*discount, s.clock.Now()); verr != nil {
			warning = verr.Error()
		}
	}
	if warning != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, warning)
	}

	var order *models.Order
	_, err = s.ledger.Commit(ctx, cartID, func(ctx context.Context, holds []models.Hold) error {
		ids := make([]uint, len(holds))
		for i, h := range holds {
			ids[i] = h.LocalityID
		}
		locs, err := s.loadLocalities(ctx, ids)
		if err != nil {
			return err
		}

		priced := make([]pricing.Line, len(holds))
		orderLines := make([]models.OrderLine, len(holds))
		for i, h := range holds {
			loc, ok := locs[h.LocalityID]
			if !ok {
				return fmt.Errorf("locality %d: %w", h.LocalityID, ErrLocalityNotFound)
			}
			priced[i] = pricing.Line{UnitPrice: loc.UnitPrice, Quantity: h.Quantity}
			orderLines[i] = models.OrderLine{LocalityID: h.LocalityID, Quantity: h.Quantity, UnitPrice: loc.UnitPrice}
		}

		total, err := s.price(priced, couponCode, discount, warning, true)
		if err != nil {
			return err
		}

		order = &models.Order{
			ID:         uuid.NewString(),
			AccountID:  cartID,
			CouponCode: couponCode,
			Subtotal:   total.Subtotal,
			Discount:   total.Discount,
			Total:      total.Total,
			Status:     models.OrderCommitted,
			CreatedAt:  s.clock.Now(),
			Lines:      orderLines,
		}
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart checked out",
		zap.String("cart_id", cartID),
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.StringFixed(2)),
	)
	if s.notifier != nil {
		if err := s.notifier.Publish(RoutingOrderCommitted, order); err != nil {
			s.logger.Error("publish order committed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

// resolveCoupon looks the code up. An unknown code is a warning, not an error.
func (s *cartService) resolveCoupon(ctx context.Context, code string) (*pricing.Discount, string, error) {
	if code == "" {
		return nil, "", nil
	}
	coupon, err := s.coupons.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "coupon not found", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("find coupon: %w", err)
	}
	return &pricing.Discount{
		Code:       coupon.Code,
		Percentage: coupon.DiscountPercentage,
		ExpiresAt:  coupon.ExpiresAt,
		Active:     coupon.IsActive(),
	}, "", nil
}

func (s *cartService) price(lines []pricing.Line, code string, discount *pricing.Discount, warning string, strict bool) (*CartTotal, error) {
	q := pricing.Resolve(lines, discount, s.clock.Now())
	if q.Warning != "" {
		warning = q.Warning
	}
	if strict && warning != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, warning)
	}
	return &CartTotal{
		Subtotal:      q.Subtotal,
		Discount:      q.Discount,
		Total:         q.Total,
		CouponCode:    code,
		CouponApplied: q.Applied,
		CouponWarning: warning,
	}, nil
}

func (s *cartService) loadLocalities(ctx context.Context, ids []uint) (map[uint]models.Locality, error) {
	locs, err := s.localities.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load localities: %w", err)
	}
	out := make(map[uint]models.Locality, len(locs))
	for _, l := range locs {
		out[l.ID] = l
	}
	return out, nil
}

func localityIDs(items []models.CartItem) []uint {
	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.LocalityID
	}
	return ids
}
