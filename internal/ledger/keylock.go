package ledger

import (
	"fmt"
	"sync"
)

type holdKey struct {
	cartID     string
	localityID uint
}

func (k holdKey) String() string {
	return fmt.Sprintf("%s/%d", k.cartID, k.localityID)
}

type refMutex struct {
	sync.Mutex
	refs int
}

// keyLocks hands out one mutex per (cart, locality). Entries are dropped once no caller
// holds or waits on them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[holdKey]*refMutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[holdKey]*refMutex)}
}

func (k *keyLocks) lock(key holdKey) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
