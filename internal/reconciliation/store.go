package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is an outbox of reconciliation records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// ListUnpublished returns up to limit records, oldest first.
	ListUnpublished(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	// WithinTx runs fn so that a list/publish/mark cycle is atomic where the
	// backend supports it.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher delivers records to operators.
type Publisher interface {
	Publish(ctx context.Context, records []Record) error
	Ping(ctx context.Context) error
}
