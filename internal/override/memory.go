// Package override holds manual transaction status assignments. The store is
// injected into the presentation layer only; scoring never reads it.
package override

import (
	"context"
	"sort"
	"sync"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// MemoryStore is an in-memory override store with a compare-and-swap
// contract for concurrent writers.
type MemoryStore struct {
	mu        sync.RWMutex
	overrides map[string]domain.Override
}

// NewMemoryStore creates an empty override store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		overrides: make(map[string]domain.Override),
	}
}

// Get returns the override for a transaction, or nil when none is set.
func (s *MemoryStore) Get(ctx context.Context, txID string) (*domain.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ov, ok := s.overrides[txID]
	if !ok {
		return nil, nil
	}
	return &ov, nil
}

// Set stores an override unconditionally.
func (s *MemoryStore) Set(ctx context.Context, ov domain.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[ov.TransactionID] = ov
	return nil
}

// CompareAndSwap stores the override only when the current status equals
// expected. An absent entry matches StatusPending. Returns whether the swap
// happened.
func (s *MemoryStore) CompareAndSwap(ctx context.Context, txID string, expected domain.Status, ov domain.Override) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.overrides[txID]
	currentStatus := domain.StatusPending
	if ok {
		currentStatus = current.Status
	}
	if currentStatus != expected {
		return false, nil
	}

	s.overrides[txID] = ov
	return true, nil
}

// List returns all overrides ordered by transaction id.
func (s *MemoryStore) List(ctx context.Context) ([]domain.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Override, 0, len(s.overrides))
	for _, ov := range s.overrides {
		out = append(out, ov)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TransactionID < out[j].TransactionID
	})
	return out, nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]domain.Override)
	return nil
}
