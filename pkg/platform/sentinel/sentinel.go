package sentinel

import "errors"

// Sentinel errors describe infrastructure facts. Stores return them (optionally
// wrapped with %w) and services translate them into domain errors.
//
//   - ErrNotFound: no snapshot or record exists for the key, or it expired
//   - ErrInvalidState: the flow is on a screen where the requested step has no edge
//   - ErrUnavailable: a backing service (redis, postgres, broker) is unreachable
//
// Input validation failures belong in pkg/domain-errors, not here.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
