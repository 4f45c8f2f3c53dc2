// Package ledger tracks the per-cart holds that back cart items with locality capacity.
//
// Every operation touching a (cart, locality) pair runs under that pair's lock, so a
// customer action and the expiry sweep on the same hold are mutually exclusive while
// unrelated carts never contend. The committed counters themselves are guarded by the
// inventory.Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/clock"
	"github.com/DarkIsCool10/UniEventos/internal/inventory"
	"github.com/DarkIsCool10/UniEventos/internal/models"
	"go.uber.org/zap"
)

var (
	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExpired  = errors.New("hold expired")
	ErrEmptyCart    = errors.New("cart is empty")
)

const defaultHoldTTL = 15 * time.Minute

// CartItems is the cart view the ledger keeps in step with its holds.
type CartItems interface {
	Upsert(item models.CartItem)
	Remove(cartID string, localityID uint)
	Get(cartID string, localityID uint) (models.CartItem, bool)
	List(cartID string) []models.CartItem
}

// RecordFunc persists a sale for the given holds. Returning an error aborts the commit.
type RecordFunc func(ctx context.Context, holds []models.Hold) error

type Ledger struct {
	store  inventory.Store
	items  CartItems
	clock  clock.Clock
	ttl    time.Duration
	logger *zap.Logger
	locks  *keyLocks

	mu    sync.Mutex
	holds map[holdKey]models.Hold
}

type Option func(*Ledger)

// WithHoldTTL overrides the default TTL for new and extended holds.
func WithHoldTTL(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.ttl = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(store inventory.Store, items CartItems, clk clock.Clock, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		items:  items,
		clock:  clk,
		ttl:    defaultHoldTTL,
		logger: zap.NewNop(),
		locks:  newKeyLocks(),
		holds:  make(map[holdKey]models.Hold),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AcquireOrExtend makes the hold for (cartID, localityID) cover exactly qty tickets.
//
// Without a hold, qty is reserved and a hold with a fresh expiry is created. With one, only
// the difference is reserved or released; growing the hold (or touching an expired one)
// refreshes its expiry. A capacity rejection leaves hold, cart item and counter untouched.
func (l *Ledger) AcquireOrExtend(ctx context.Context, cartID string, localityID uint, qty int) (models.Hold, error) {
	if qty <= 0 {
		return models.Hold{}, inventory.ErrInvalidQuantity
	}

	key := holdKey{cartID: cartID, localityID: localityID}
	unlock := l.locks.lock(key)
	defer unlock()

	now := l.clock.Now()
	hold, exists := l.get(key)
	if !exists {
		if err := l.store.Reserve(ctx, localityID, qty); err != nil {
			return models.Hold{}, fmt.Errorf("reserve %d on locality %d: %w", qty, localityID, err)
		}
		hold = models.Hold{
			CartID:     cartID,
			LocalityID: localityID,
			Quantity:   qty,
			CreatedAt:  now,
			ExpiresAt:  now.Add(l.ttl),
		}
		l.put(key, hold)
		l.items.Upsert(models.CartItem{CartID: cartID, LocalityID: localityID, Quantity: qty, AddedAt: now})
		return hold, nil
	}

	delta := qty - hold.Quantity
	switch {
	case delta > 0:
		if err := l.store.Reserve(ctx, localityID, delta); err != nil {
			return models.Hold{}, fmt.Errorf("extend hold by %d on locality %d: %w", delta, localityID, err)
		}
	case delta < 0:
		if err := l.store.Release(ctx, localityID, -delta); err != nil {
			return models.Hold{}, fmt.Errorf("shrink hold by %d on locality %d: %w", -delta, localityID, err)
		}
	}
	if delta > 0 || hold.Expired(now) {
		hold.ExpiresAt = now.Add(l.ttl)
	}
	hold.Quantity = qty
	l.put(key, hold)

	item, ok := l.items.Get(cartID, localityID)
	if !ok {
		item = models.CartItem{CartID: cartID, LocalityID: localityID, AddedAt: now}
	}
	item.Quantity = qty
	l.items.Upsert(item)
	return hold, nil
}

// Release destroys the hold for (cartID, localityID) and credits its quantity back.
func (l *Ledger) Release(ctx context.Context, cartID string, localityID uint) error {
	key := holdKey{cartID: cartID, localityID: localityID}
	unlock := l.locks.lock(key)
	defer unlock()

	hold, ok := l.get(key)
	if !ok {
		l.items.Remove(cartID, localityID)
		return ErrHoldNotFound
	}
	return l.releaseLocked(ctx, key, hold)
}

// ReleaseAll releases every hold of the cart and drops its items.
func (l *Ledger) ReleaseAll(ctx context.Context, cartID string) error {
	var errs []error
	for _, key := range l.cartKeys(cartID) {
		unlock := l.locks.lock(key)
		if hold, ok := l.get(key); ok {
			if err := l.releaseLocked(ctx, key, hold); err != nil {
				errs = append(errs, err)
			}
		} else {
			l.items.Remove(key.cartID, key.localityID)
		}
		unlock()
	}
	return errors.Join(errs...)
}

// SweepExpired releases every hold whose expiry has passed and removes its cart item.
// Each hold is released at most once; expiry is re-checked under the key lock.
func (l *Ledger) SweepExpired(ctx context.Context) (int, error) {
	now := l.clock.Now()

	l.mu.Lock()
	var expired []holdKey
	for key, hold := range l.holds {
		if hold.Expired(now) {
			expired = append(expired, key)
		}
	}
	l.mu.Unlock()

	released := 0
	var errs []error
	for _, key := range expired {
		unlock := l.locks.lock(key)
		hold, ok := l.get(key)
		if ok && hold.Expired(now) {
			if err := l.releaseLocked(ctx, key, hold); err != nil {
				errs = append(errs, err)
			} else {
				released++
				l.logger.Debug("hold expired",
					zap.String("cart_id", key.cartID),
					zap.Uint("locality_id", key.localityID),
					zap.Int("quantity", hold.Quantity),
				)
			}
		}
		unlock()
	}
	return released, errors.Join(errs...)
}

// Commit turns every hold of the cart into a sale, all or nothing.
//
// All keys of the cart are locked in a fixed order, every cart item must be covered by a
// live hold, and record must succeed; only then are the holds dropped (capacity stays
// committed) and the items removed.
func (l *Ledger) Commit(ctx context.Context, cartID string, record RecordFunc) ([]models.Hold, error) {
	keys := l.cartKeys(cartID)
	if len(keys) == 0 {
		return nil, ErrEmptyCart
	}

	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, l.locks.lock(key))
	}
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()

	now := l.clock.Now()
	holds := make([]models.Hold, 0, len(keys))
	var stale []string
	for _, key := range keys {
		item, hasItem := l.items.Get(key.cartID, key.localityID)
		hold, hasHold := l.get(key)
		switch {
		case !hasItem && !hasHold:
			continue
		case !hasHold, hold.Expired(now), hasItem && item.Quantity > hold.Quantity:
			stale = append(stale, key.String())
		default:
			holds = append(holds, hold)
		}
	}
	if len(stale) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrHoldExpired, strings.Join(stale, ", "))
	}
	if len(holds) == 0 {
		return nil, ErrEmptyCart
	}

	if err := record(ctx, holds); err != nil {
		return nil, fmt.Errorf("record sale: %w", err)
	}

	for _, hold := range holds {
		l.delete(holdKey{cartID: hold.CartID, localityID: hold.LocalityID})
		l.items.Remove(hold.CartID, hold.LocalityID)
	}
	return holds, nil
}

// Hold returns the current hold for (cartID, localityID), expired or not.
func (l *Ledger) Hold(cartID string, localityID uint) (models.Hold, bool) {
	return l.get(holdKey{cartID: cartID, localityID: localityID})
}

// Holds returns the cart's holds ordered by locality.
func (l *Ledger) Holds(cartID string) []models.Hold {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Hold
	for key, hold := range l.holds {
		if key.cartID == cartID {
			out = append(out, hold)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalityID < out[j].LocalityID })
	return out
}

func (l *Ledger) releaseLocked(ctx context.Context, key holdKey, hold models.Hold) error {
	if err := l.store.Release(ctx, hold.LocalityID, hold.Quantity); err != nil {
		return fmt.Errorf("release hold %s: %w", key, err)
	}
	l.delete(key)
	l.items.Remove(key.cartID, key.localityID)
	return nil
}

// cartKeys returns the keys of every hold and item of the cart, sorted by locality.
func (l *Ledger) cartKeys(cartID string) []holdKey {
	seen := make(map[uint]struct{})

	l.mu.Lock()
	for key := range l.holds {
		if key.cartID == cartID {
			seen[key.localityID] = struct{}{}
		}
	}
	l.mu.Unlock()

	for _, item := range l.items.List(cartID) {
		seen[item.LocalityID] = struct{}{}
	}

	keys := make([]holdKey, 0, len(seen))
	for id := range seen {
		keys = append(keys, holdKey{cartID: cartID, localityID: id})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].localityID < keys[j].localityID })
	return keys
}

func (l *Ledger) get(key holdKey) (models.Hold, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holds[key]
	return h, ok
}

func (l *Ledger) put(key holdKey, hold models.Hold) {
	l.mu.Lock()
	l.holds[key] = hold
	l.mu.Unlock()
}

func (l *Ledger) delete(key holdKey) {
	l.mu.Lock()
	delete(l.holds, key)
	l.mu.Unlock()
}
