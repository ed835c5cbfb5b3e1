package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ticketflow/pkg/platform/circuit"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 100
)

// ErrRelayPaused is returned by RelayOnce while the broker circuit is open.
var ErrRelayPaused = errors.New("reconciliation relay paused: broker circuit open")

var errPublish = errors.New("publish failed")

// Relay moves unpublished records from the outbox to the publisher.
type Relay struct {
	store     Store
	publisher Publisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	clock     func() time.Time
}

type RelayOption func(*Relay)

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) {
		if b != nil {
			r.breaker = b
		}
	}
}

func WithClock(clock func() time.Time) RelayOption {
	return func(r *Relay) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewRelay(store Store, publisher Publisher, logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		breaker:   circuit.New("reconciliation-relay"),
		logger:    logger,
		interval:  DefaultPollInterval,
		batchSize: DefaultBatchSize,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every poll interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			switch {
			case errors.Is(err, ErrRelayPaused), errors.Is(err, context.Canceled):
			case err != nil:
				r.logger.WarnContext(ctx, "reconciliation relay failed", "error", err)
			case n > 0:
				r.logger.InfoContext(ctx, "reconciliation records relayed", "count", n)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many records were relayed.
// While the circuit is open it only pings the broker.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	if r.breaker.IsOpen() {
		if err := r.publisher.Ping(ctx); err != nil {
			r.breaker.RecordFailure()
			return 0, ErrRelayPaused
		}
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			relayCircuitOpen.Set(0)
			r.logger.InfoContext(ctx, "reconciliation relay circuit closed")
		}
		if r.breaker.IsOpen() {
			return 0, ErrRelayPaused
		}
	}

	var relayed int
	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		records, err := r.store.ListUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := r.publisher.Publish(ctx, records); err != nil {
			return fmt.Errorf("%w: %w", errPublish, err)
		}
		ids := make([]uuid.UUID, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		if err := r.store.MarkPublished(ctx, ids, r.clock()); err != nil {
			return err
		}
		relayed = len(records)
		return nil
	})

	if errors.Is(err, errPublish) {
		relayFailuresTotal.Inc()
		if _, change := r.breaker.RecordFailure(); change.Opened {
			relayCircuitOpen.Set(1)
			r.logger.WarnContext(ctx, "reconciliation relay circuit opened", "error", err)
		}
		return 0, err
	}
	if err != nil {
		return 0, err
	}

	r.breaker.RecordSuccess()
	relayedTotal.Add(float64(relayed))
	return relayed, nil
}
