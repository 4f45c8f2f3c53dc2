package repository

import (
	"testing"
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCartRepository_UpsertListRemove(t *testing.T) {
	repo := NewCartRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo.Upsert(models.CartItem{CartID: "acc-1", LocalityID: 7, Quantity: 2, AddedAt: now})
	repo.Upsert(models.CartItem{CartID: "acc-1", LocalityID: 3, Quantity: 1, AddedAt: now})
	repo.Upsert(models.CartItem{CartID: "acc-1", LocalityID: 7, Quantity: 4, AddedAt: now})

	items := repo.List("acc-1")
	assert.Len(t, items, 2)
	assert.Equal(t, uint(3), items[0].LocalityID)
	assert.Equal(t, 4, items[1].Quantity)

	repo.Remove("acc-1", 7)
	_, ok := repo.Get("acc-1", 7)
	assert.False(t, ok)

	repo.Remove("acc-1", 3)
	assert.Empty(t, repo.List("acc-1"))
}

func TestCartRepository_CartsAreSeparate(t *testing.T) {
	repo := NewCartRepository()
	repo.Upsert(models.CartItem{CartID: "acc-1", LocalityID: 1, Quantity: 1})

	assert.Empty(t, repo.List("acc-2"))
	repo.Remove("acc-2", 1)

	item, ok := repo.Get("acc-1", 1)
	assert.True(t, ok)
	assert.Equal(t, 1, item.Quantity)
}
