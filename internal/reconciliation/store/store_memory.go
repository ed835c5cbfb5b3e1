// Package store holds the reconciliation outbox backends.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketflow/internal/reconciliation"
)

// DefaultMemoryCapacity bounds the in-memory outbox.
const DefaultMemoryCapacity = 10_000

// InMemoryStore keeps records in insertion order. When full, the oldest
// published record is dropped first, then the oldest unpublished one.
type InMemoryStore struct {
	mu       sync.Mutex
	records  []reconciliation.Record
	capacity int
	dropped  int
}

type InMemoryOption func(*InMemoryStore)

func WithCapacity(n int) InMemoryOption {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{capacity: DefaultMemoryCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, rec reconciliation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) >= s.capacity {
		s.evictLocked()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryStore) evictLocked() {
	victim := 0
	for i, r := range s.records {
		if r.PublishedAt != nil {
			victim = i
			break
		}
	}
	if s.records[victim].PublishedAt == nil {
		s.dropped++
	}
	s.records = append(s.records[:victim], s.records[victim+1:]...)
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]reconciliation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconciliation.Record
	for _, r := range s.records {
		if r.PublishedAt != nil {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.records {
		if _, ok := want[s.records[i].ID]; ok && s.records[i].PublishedAt == nil {
			published := at
			s.records[i].PublishedAt = &published
		}
	}
	return nil
}

// WithinTx has no isolation in memory; each call locks on its own.
func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// All returns a copy of every stored record.
func (s *InMemoryStore) All() []reconciliation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconciliation.Record(nil), s.records...)
}

// Dropped reports how many unpublished records were evicted for capacity.
func (s *InMemoryStore) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
