package inventory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type slot struct {
	mu        sync.Mutex
	capacity  int
	committed int
	removed   bool
}

// MemoryStore keeps counters in process memory. Each locality has its own mutex, held only
// across the check-and-update step; the table lock only guards slot lookup.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  map[uint]*slot
	logger *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{slots: make(map[uint]*slot), logger: logger}
}

// Put registers a locality or updates its capacity. Capacity below the current committed
// count is rejected.
func (s *MemoryStore) Put(localityID uint, capacity int) error {
	s.mu.Lock()
	sl, ok := s.slots[localityID]
	if !ok {
		s.slots[localityID] = &slot{capacity: capacity}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if capacity < sl.committed {
		return fmt.Errorf("capacity %d below committed %d: %w", capacity, sl.committed, ErrInsufficientCapacity)
	}
	sl.capacity = capacity
	sl.removed = false
	return nil
}

// Remove marks a locality as gone: further reserves fail, releases still credit it.
func (s *MemoryStore) Remove(localityID uint) {
	if sl := s.slot(localityID); sl != nil {
		sl.mu.Lock()
		sl.removed = true
		sl.mu.Unlock()
	}
}

// Committed returns the locality's committed count and capacity.
func (s *MemoryStore) Committed(localityID uint) (committed, capacity int, err error) {
	sl := s.slot(localityID)
	if sl == nil {
		return 0, 0, ErrLocalityNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.committed, sl.capacity, nil
}

func (s *MemoryStore) Reserve(_ context.Context, localityID uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	sl := s.slot(localityID)
	if sl == nil {
		return ErrLocalityNotFound
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.removed {
		return ErrLocalityNotFound
	}
	if sl.committed+qty > sl.capacity {
		return ErrInsufficientCapacity
	}
	sl.committed += qty
	return nil
}

func (s *MemoryStore) Release(_ context.Context, localityID uint, qty int) error {
	if qty <= 0 {
		return nil
	}
	sl := s.slot(localityID)
	if sl == nil {
		s.logger.Warn("release on unknown locality", zap.Uint("locality_id", localityID), zap.Int("quantity", qty))
		return nil
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if qty > sl.committed {
		s.logger.Warn("committed counter underflow clamped",
			zap.Uint("locality_id", localityID),
			zap.Int("committed", sl.committed),
			zap.Int("quantity", qty),
		)
		sl.committed = 0
		return nil
	}
	sl.committed -= qty
	return nil
}

func (s *MemoryStore) slot(localityID uint) *slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[localityID]
}
