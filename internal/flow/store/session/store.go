// Package session persists flow snapshots so a flow survives a process
// restart or lands on another instance.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ticketflow/internal/flow/models"
)

// Store saves and loads flow snapshots. Load returns sentinel.ErrNotFound for
// unknown or expired flows.
type Store interface {
	Save(ctx context.Context, snap models.Snapshot, ttl time.Duration) error
	Load(ctx context.Context, flowID uuid.UUID) (models.Snapshot, error)
	Delete(ctx context.Context, flowID uuid.UUID) error
}
