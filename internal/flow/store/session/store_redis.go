package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"ticketflow/internal/flow/models"
	"ticketflow/pkg/platform/sentinel"
)

var loadDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ticketflow_snapshot_load_duration_ms",
	Help:    "Latency of flow snapshot loads from Redis in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const snapshotKeyPrefix = "flow:snapshot:"

// RedisStore keeps snapshots as JSON strings with a TTL, so abandoned flows
// expire on their own.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func snapshotKey(flowID uuid.UUID) string {
	return snapshotKeyPrefix + flowID.String()
}

func (s *RedisStore) Save(ctx context.Context, snap models.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.FlowID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, flowID uuid.UUID) (models.Snapshot, error) {
	start := time.Now()
	defer func() {
		loadDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := s.client.Get(ctx, snapshotKey(flowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, fmt.Errorf("flow %s: %w", flowID, sentinel.ErrNotFound)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load snapshot: %w: %w", sentinel.ErrUnavailable, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, flowID uuid.UUID) error {
	if err := s.client.Del(ctx, snapshotKey(flowID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
