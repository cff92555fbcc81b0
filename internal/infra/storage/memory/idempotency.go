package memory

import (
	"context"
	"sync"
	"time"

	"deskrent/internal/app/middleware"
)

type idempotencyEntry struct {
	rec     middleware.IdempotencyRecord
	pending bool
}

// IdempotencyStore keeps command results in memory for TTL.
type IdempotencyStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]idempotencyEntry
}

// NewIdempotencyStore keeps records forever when ttl is zero.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, items: make(map[string]idempotencyEntry)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[key]
	if !ok || entry.pending || s.expired(entry) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return entry.rec, true, nil
}

func (s *IdempotencyStore) Reserve(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.items[key]; ok && !s.expired(entry) {
		if entry.pending {
			return middleware.IdempotencyRecord{}, false, middleware.ErrIdempotencyInProgress
		}
		return entry.rec, true, nil
	}
	s.items[key] = idempotencyEntry{
		rec:     middleware.IdempotencyRecord{Key: key, OccurredAt: s.now().UTC()},
		pending: true,
	}
	return middleware.IdempotencyRecord{}, false, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, existing := range s.items {
		if s.expired(existing) {
			delete(s.items, key)
		}
	}
	s.items[rec.Key] = idempotencyEntry{rec: rec}
	return nil
}

// Release drops a reservation that never completed; saved records are kept.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.items[key]; ok && entry.pending {
		delete(s.items, key)
	}
	return nil
}

func (s *IdempotencyStore) expired(entry idempotencyEntry) bool {
	return s.ttl > 0 && s.now().Sub(entry.rec.OccurredAt) > s.ttl
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
