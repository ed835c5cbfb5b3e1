package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
)

// Recorder appends records to the outbox and counts them.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, rec Record) error {
	if err := r.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append reconciliation record: %w", err)
	}
	recordsTotal.WithLabelValues(string(rec.Operation), string(rec.FailureKind)).Inc()
	r.logger.InfoContext(ctx, "reconciliation record written",
		"record_id", rec.ID.String(),
		"flow_id", rec.FlowID.String(),
		"operation", string(rec.Operation),
		"failure_kind", string(rec.FailureKind),
	)
	return nil
}
