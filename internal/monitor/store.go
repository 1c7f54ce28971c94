// Package monitor tracks login, request, and transaction behavior and scores
// it for anomalies. Pattern history lives behind PatternStore so the monitor
// itself stays stateless and horizontally scalable.
package monitor

import (
	"context"
	"sync"
	"time"
)

// Pattern kinds used as store namespaces.
const (
	KindLogin       = "login"
	KindRequest     = "request"
	KindTransaction = "transaction"
)

// PatternEntry is one observed event for a key.
type PatternEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	IP           string    `json:"ip,omitempty"`
	Endpoint     string    `json:"endpoint,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Latitude     float64   `json:"latitude,omitempty"`
	Longitude    float64   `json:"longitude,omitempty"`
	HasLocation  bool      `json:"has_location,omitempty"`
	AnomalyScore float64   `json:"anomaly_score"`
}

// PatternStore holds bounded per-key event history. Append trims each key's
// history to limit entries; Recent returns entries newest first.
type PatternStore interface {
	Append(ctx context.Context, kind, key string, entry PatternEntry, limit int) error
	Recent(ctx context.Context, kind, key string, limit int) ([]PatternEntry, error)
	Keys(ctx context.Context, kind string) ([]string, error)
	Close() error
}

// MemoryStore is an in-process PatternStore backed by per-key ring buffers.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string][]PatternEntry
}

// NewMemoryStore creates an in-memory pattern store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string][]PatternEntry),
	}
}

func (s *MemoryStore) Append(ctx context.Context, kind, key string, entry PatternEntry, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.entries[kind]
	if !ok {
		byKey = make(map[string][]PatternEntry)
		s.entries[kind] = byKey
	}

	history := append(byKey[key], entry)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	byKey[key] = history

	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, kind, key string, limit int) ([]PatternEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.entries[kind][key]

	n := len(history)
	if limit > 0 && limit < n {
		n = limit
	}

	// Stored oldest first; return newest first.
	out := make([]PatternEntry, n)
	for i := 0; i < n; i++ {
		out[i] = history[len(history)-1-i]
	}
	return out, nil
}

func (s *MemoryStore) Keys(ctx context.Context, kind string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.entries[kind]
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]map[string][]PatternEntry)
	return nil
}
