package service

import (
	dErrors "ticketflow/pkg/domain-errors"
)

var (
	// ErrBusy is returned while a remote call of the same flow is in flight.
	ErrBusy = dErrors.New(dErrors.CodeBusy, "a request for this flow is already in progress")
	// ErrFlowNotFound is returned for unknown or expired flows.
	ErrFlowNotFound = dErrors.New(dErrors.CodeNotFound, "flow not found")
)

func unavailable(err error) error {
	return dErrors.Wrap(err, dErrors.CodeConflict, "action not available on this screen")
}
