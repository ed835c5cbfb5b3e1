package service

import (
	"context"

	"ticketflow/internal/flow/models"
	"ticketflow/internal/reconciliation"
	"ticketflow/internal/verification"
)

// softWrite is a remote write the participant must never be blocked on.
type softWrite struct {
	op      reconciliation.Operation
	email   string
	payload any
	call    func(ctx context.Context) verification.Outcome
}

// performSoftly runs w and always continues with onAnyOutcome. A failed write
// is logged and recorded for reconciliation after the continuation has
// applied the local state.
func (f *Flow) performSoftly(ctx context.Context, w softWrite, onAnyOutcome func(verification.Outcome) (models.View, error)) (models.View, error) {
	outcome := w.call(ctx)

	view, err := onAnyOutcome(outcome)
	if outcome.OK() {
		return view, err
	}

	f.deps.logger.WarnContext(ctx, "remote write failed, continuing flow",
		"flow_id", f.id.String(),
		"operation", string(w.op),
		"failure_kind", string(outcome.Kind),
		"message", outcome.Message,
	)
	f.recordSoftFailure(ctx, w, outcome)
	return view, err
}

func (f *Flow) recordSoftFailure(ctx context.Context, w softWrite, outcome verification.Outcome) {
	if f.deps.reconciler == nil {
		return
	}
	rec, err := reconciliation.NewRecord(f.id, w.op, w.email, w.payload, outcome, f.deps.clock())
	if err != nil {
		f.deps.logger.ErrorContext(ctx, "failed to build reconciliation record",
			"flow_id", f.id.String(),
			"error", err,
		)
		return
	}
	if err := f.deps.reconciler.Record(ctx, rec); err != nil {
		f.deps.logger.ErrorContext(ctx, "failed to record reconciliation",
			"flow_id", f.id.String(),
			"operation", string(w.op),
			"error", err,
		)
	}
}
