package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/salescore/internal/domain/journey"
)

// MemoryStore keeps journeys in process memory. Reads return deep copies so
// callers never share record slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	journeys map[string]journey.Journey
	closed   bool
	opts     storeOptions
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		journeys: make(map[string]journey.Journey),
		opts:     applyOptions(opts),
	}
}

// Load implements journey.Store.
func (s *MemoryStore) Load(_ context.Context, customerID string) (journey.Journey, error) {
	defer observe(BackendMemory, "load", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return journey.Journey{}, ErrStoreClosed
	}
	j, ok := s.journeys[customerID]
	if !ok {
		return journey.Journey{}, journey.ErrNotFound
	}
	return j.Clone(), nil
}

// Append implements journey.Store.
func (s *MemoryStore) Append(_ context.Context, customerID, sessionID string, expectedLen int, rec journey.Record) (journey.Journey, error) {
	defer observe(BackendMemory, "append", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journey.Journey{}, ErrStoreClosed
	}

	current, exists := s.journeys[customerID]
	if err := checkAppend(current, exists, sessionID, expectedLen); err != nil {
		return journey.Journey{}, err
	}
	if !exists {
		current = journey.Journey{CustomerID: customerID, SessionID: sessionID, StartedAt: rec.Timestamp}
	}

	next := current.Clone()
	next.Records = append(next.Records, rec)
	s.journeys[customerID] = next
	return next.Clone(), nil
}

// Reset implements journey.Store.
func (s *MemoryStore) Reset(_ context.Context, customerID, sessionID string, at time.Time) (journey.Journey, error) {
	defer observe(BackendMemory, "reset", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journey.Journey{}, ErrStoreClosed
	}
	j := journey.Journey{CustomerID: customerID, SessionID: sessionID, StartedAt: at, Records: []journey.Record{}}
	s.journeys[customerID] = j
	return j.Clone(), nil
}

// Count implements journey.Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.journeys), nil
}

// Close releases the store. Later calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
