package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketflow/internal/flow/models"
	"ticketflow/pkg/platform/sentinel"
)

type memoryEntry struct {
	snap      models.Snapshot
	expiresAt time.Time
}

// InMemoryStore keeps snapshots in process memory. Used when Redis is not
// configured and in tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryEntry
	clock   func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock sets the clock used for expiry.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[uuid.UUID]memoryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, snap models.Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[snap.FlowID] = memoryEntry{snap: snap, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, flowID uuid.UUID) (models.Snapshot, error) {
	s.mu.RLock()
	entry, ok := s.entries[flowID]
	s.mu.RUnlock()
	if !ok {
		return models.Snapshot{}, fmt.Errorf("flow %s: %w", flowID, sentinel.ErrNotFound)
	}
	if !s.clock().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, flowID)
		s.mu.Unlock()
		return models.Snapshot{}, fmt.Errorf("flow %s: %w", flowID, sentinel.ErrNotFound)
	}
	return entry.snap, nil
}

func (s *InMemoryStore) Delete(_ context.Context, flowID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, flowID)
	return nil
}
