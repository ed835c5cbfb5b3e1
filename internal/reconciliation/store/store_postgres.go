package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ticketflow/internal/reconciliation"
	"ticketflow/internal/verification"
	txcontext "ticketflow/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// PostgresStore is the transactional outbox for reconciliation records.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the outbox table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create reconciliation schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec reconciliation.Record) error {
	query := `
		INSERT INTO reconciliation_outbox (id, flow_id, operation, email, payload, failure_kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		rec.ID,
		rec.FlowID,
		string(rec.Operation),
		rec.Email,
		[]byte(rec.Payload),
		string(rec.FailureKind),
		rec.Message,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation record: %w", err)
	}
	return nil
}

// ListUnpublished locks the returned rows when called inside WithinTx, so
// concurrent relays skip each other's batches.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]reconciliation.Record, error) {
	query := `
		SELECT id, flow_id, operation, email, payload, failure_kind, message, created_at
		FROM reconciliation_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation outbox: %w", err)
	}
	defer rows.Close()

	var out []reconciliation.Record
	for rows.Next() {
		var (
			rec         reconciliation.Record
			operation   string
			failureKind string
			payload     []byte
		)
		if err := rows.Scan(&rec.ID, &rec.FlowID, &operation, &rec.Email, &payload, &failureKind, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reconciliation record: %w", err)
		}
		rec.Operation = reconciliation.Operation(operation)
		rec.FailureKind = verification.Kind(failureKind)
		rec.Payload = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliation outbox: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	query := `UPDATE reconciliation_outbox SET published_at = $2 WHERE id = ANY($1::uuid[])`
	if _, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query, pq.Array(strIDs), at); err != nil {
		return fmt.Errorf("mark reconciliation records published: %w", err)
	}
	return nil
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}
