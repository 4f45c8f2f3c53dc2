package repository

import (
	"sort"
	"sync"

	"github.com/DarkIsCool10/UniEventos/internal/models"
)

// CartRepository keeps cart items in process memory, next to the holds that back them.
type CartRepository interface {
	Upsert(item models.CartItem)
	Remove(cartID string, localityID uint)
	Get(cartID string, localityID uint) (models.CartItem, bool)
	List(cartID string) []models.CartItem
}

type cartRepository struct {
	mu    sync.RWMutex
	carts map[string]map[uint]models.CartItem
}

func NewCartRepository() CartRepository {
	return &cartRepository{carts: make(map[string]map[uint]models.CartItem)}
}

func (r *cartRepository) Upsert(item models.CartItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[item.CartID]
	if !ok {
		cart = make(map[uint]models.CartItem)
		r.carts[item.CartID] = cart
	}
	cart[item.LocalityID] = item
}

func (r *cartRepository) Remove(cartID string, localityID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[cartID]
	if !ok {
		return
	}
	delete(cart, localityID)
	if len(cart) == 0 {
		delete(r.carts, cartID)
	}
}

func (r *cartRepository) Get(cartID string, localityID uint) (models.CartItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.carts[cartID][localityID]
	return item, ok
}

// List returns the cart's items ordered by locality id.
func (r *cartRepository) List(cartID string) []models.CartItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]models.CartItem, 0, len(r.carts[cartID]))
	for _, item := range r.carts[cartID] {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LocalityID < items[j].LocalityID })
	return items
}
