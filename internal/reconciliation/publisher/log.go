package publisher

import (
	"context"
	"log/slog"

	"ticketflow/internal/reconciliation"
)

// LogPublisher writes records to the log. It is used when no broker is
// configured so failed writes still surface somewhere an operator looks.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, records []reconciliation.Record) error {
	for _, rec := range records {
		p.logger.WarnContext(ctx, "reconciliation required",
			"record_id", rec.ID.String(),
			"flow_id", rec.FlowID.String(),
			"operation", string(rec.Operation),
			"email", rec.Email,
			"failure_kind", string(rec.FailureKind),
			"message", rec.Message,
			"payload", string(rec.Payload),
		)
	}
	return nil
}

func (p *LogPublisher) Ping(context.Context) error {
	return nil
}
