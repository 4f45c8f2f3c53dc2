//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/clock"
	"github.com/DarkIsCool10/UniEventos/internal/inventory"
	"github.com/DarkIsCool10/UniEventos/internal/ledger"
	"github.com/DarkIsCool10/UniEventos/internal/models"
	"github.com/DarkIsCool10/UniEventos/internal/repository"
	"github.com/DarkIsCool10/UniEventos/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var eventIDCounter uint = 0

func nextEventID() uint {
	eventIDCounter++
	return eventIDCounter
}

func createTestEvent(t *testing.T, localities ...models.Locality) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:         nextEventID(),
		Name:       "Festival Estereo Picnic",
		City:       "Bogota",
		StartsAt:   time.Now().Add(30 * 24 * time.Hour),
		Localities: localities,
	}
	require.NoError(t, repository.NewEventRepository(testDB, zap.NewNop()).Upsert(context.Background(), event))

	stored, err := repository.NewEventRepository(testDB, zap.NewNop()).FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	return stored
}

func locality(name string, capacity int, price string) models.Locality {
	return models.Locality{Name: name, Capacity: capacity, UnitPrice: decimal.RequireFromString(price)}
}

func reload(t *testing.T, id uint) models.Locality {
	t.Helper()
	var loc models.Locality
	require.NoError(t, testDB.Unscoped().First(&loc, id).Error)
	return loc
}

// 60 concurrent single-ticket reserves on a 50-seat locality: exactly 50 succeed.
func TestConcurrentReserve(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("General", 50, "120000"))
	locID := event.Localities[0].ID
	repo := repository.NewLocalityRepository(testDB, zap.NewNop())

	var ok, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Reserve(context.Background(), locID, 1)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, inventory.ErrInsufficientCapacity):
				atomic.AddInt64(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), ok)
	assert.Equal(t, int64(10), rejected)
	assert.Equal(t, 50, reload(t, locID).Committed)
}

func TestReserve_UnknownAndRemovedLocality(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "350000"))
	repo := repository.NewLocalityRepository(testDB, zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, repo.Reserve(ctx, 999999, 1), inventory.ErrLocalityNotFound)

	require.NoError(t, repo.Reserve(ctx, event.Localities[0].ID, 2))
	require.NoError(t, repository.NewEventRepository(testDB, zap.NewNop()).Delete(ctx, event.ID))

	assert.ErrorIs(t, repo.Reserve(ctx, event.Localities[0].ID, 1), inventory.ErrLocalityNotFound)

	// releases still credit a removed locality
	require.NoError(t, repo.Release(ctx, event.Localities[0].ID, 2))
	assert.Equal(t, 0, reload(t, event.Localities[0].ID).Committed)
}

func TestRelease_ClampsAtSold(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "350000"))
	locID := event.Localities[0].ID
	require.NoError(t, testDB.Model(&models.Locality{}).Where("id = ?", locID).
		Updates(map[string]any{"committed": 3, "sold": 2}).Error)

	repo := repository.NewLocalityRepository(testDB, zap.NewNop())
	require.NoError(t, repo.Release(context.Background(), locID, 5))

	assert.Equal(t, 2, reload(t, locID).Committed)
}

func TestResetHeld(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "350000"), locality("General", 100, "120000"))
	require.NoError(t, testDB.Model(&models.Locality{}).Where("id = ?", event.Localities[0].ID).
		Updates(map[string]any{"committed": 7, "sold": 4}).Error)

	n, err := repository.NewLocalityRepository(testDB, zap.NewNop()).ResetHeld(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 4, reload(t, event.Localities[0].ID).Committed)
}

func TestEventUpsert_RefusesCapacityBelowCommitted(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "350000"))
	locID := event.Localities[0].ID
	require.NoError(t, repository.NewLocalityRepository(testDB, zap.NewNop()).Reserve(context.Background(), locID, 8))

	update := &models.Event{ID: event.ID, Name: event.Name, City: event.City, StartsAt: event.StartsAt,
		Localities: []models.Locality{locality("VIP", 5, "400000")}}
	require.NoError(t, repository.NewEventRepository(testDB, zap.NewNop()).Upsert(context.Background(), update))

	loc := reload(t, locID)
	assert.Equal(t, 10, loc.Capacity)
	assert.Equal(t, "400000.00", loc.UnitPrice.StringFixed(2))
}

func TestCommittedCheckConstraint(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "350000"))

	err := testDB.Exec("UPDATE localities SET committed = 11 WHERE id = ?", event.Localities[0].ID).Error

	assert.Error(t, err)
}

// Full flow against postgres: hold, checkout, order persisted and sold incremented.
func TestCheckout_PersistsOrder(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "50.00"), locality("General", 100, "20.50"))
	vip, general := event.Localities[0], event.Localities[1]
	if vip.Name != "VIP" {
		vip, general = general, vip
	}

	require.NoError(t, testDB.Create(&models.Coupon{
		Code:               "TEN",
		Name:               "Ten percent",
		DiscountPercentage: decimal.NewFromInt(10),
		ExpiresAt:          time.Now().Add(24 * time.Hour),
		Status:             models.CouponActive,
	}).Error)

	localities := repository.NewLocalityRepository(testDB, zap.NewNop())
	orders := repository.NewOrderRepository(testDB)
	items := repository.NewCartRepository()
	clk := clock.NewSystem()
	l := ledger.New(localities, items, clk)
	svc := service.NewCartService(l, items, localities, repository.NewCouponRepository(testDB), orders, nil, clk, zap.NewNop())

	ctx := context.Background()
	_, err := svc.AddItem(ctx, "acc-1", vip.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "acc-1", general.ID, 1)
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, "acc-1", "TEN")
	require.NoError(t, err)

	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
	assert.Equal(t, "108.45", stored.Total.StringFixed(2))

	v := reload(t, vip.ID)
	assert.Equal(t, 2, v.Committed)
	assert.Equal(t, 2, v.Sold)
	g := reload(t, general.ID)
	assert.Equal(t, 1, g.Sold)
}

// Concurrent carts through the ledger on postgres: committed never exceeds capacity.
func TestConcurrentCarts(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, locality("VIP", 10, "350000"))
	locID := event.Localities[0].ID

	localities := repository.NewLocalityRepository(testDB, zap.NewNop())
	l := ledger.New(localities, repository.NewCartRepository(), clock.NewSystem())

	var held int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.AcquireOrExtend(context.Background(), fmt.Sprintf("acc-%d", i), locID, 3); err == nil {
				atomic.AddInt64(&held, 3)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(9), held)
	assert.Equal(t, 9, reload(t, locID).Committed)
}
