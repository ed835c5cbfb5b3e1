// Package reconciliation records remote writes whose failure was hidden from
// the participant, so operators can correct local/remote drift later.
package reconciliation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ticketflow/internal/verification"
)

// Operation names the write that failed.
type Operation string

const (
	OpSaveStudent   Operation = "save-student"
	OpSaveGuest     Operation = "save-guest"
	OpUpdatePayment Operation = "update-payment"
)

func (o Operation) IsValid() bool {
	return o == OpSaveStudent || o == OpSaveGuest || o == OpUpdatePayment
}

// Record is one pending reconciliation entry.
type Record struct {
	ID          uuid.UUID         `json:"id"`
	FlowID      uuid.UUID         `json:"flow_id"`
	Operation   Operation         `json:"operation"`
	Email       string            `json:"email"`
	Payload     json.RawMessage   `json:"payload"`
	FailureKind verification.Kind `json:"failure_kind"`
	Message     string            `json:"message,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
}

// NewRecord builds a record for a failed write. payload is the request body
// that was sent to the remote service.
func NewRecord(flowID uuid.UUID, op Operation, email string, payload any, outcome verification.Outcome, now time.Time) (Record, error) {
	if !op.IsValid() {
		return Record{}, fmt.Errorf("unknown operation %q", op)
	}
	if outcome.OK() {
		return Record{}, fmt.Errorf("%s succeeded, nothing to reconcile", op)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s payload: %w", op, err)
	}
	return Record{
		ID:          uuid.New(),
		FlowID:      flowID,
		Operation:   op,
		Email:       email,
		Payload:     raw,
		FailureKind: outcome.Kind,
		Message:     outcome.Message,
		CreatedAt:   now,
	}, nil
}
