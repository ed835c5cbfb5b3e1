package service

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks VerificationClient,Reconciler

import (
	"context"

	"ticketflow/internal/reconciliation"
	"ticketflow/internal/verification"
)

// VerificationClient is the remote verification and registration service.
type VerificationClient interface {
	RequestCode(ctx context.Context, email string) verification.Outcome
	ConfirmCode(ctx context.Context, email, code string) verification.Outcome
	SubmitStudent(ctx context.Context, p verification.StudentProfile) verification.Outcome
	SubmitGuest(ctx context.Context, p verification.GuestProfile) verification.Outcome
	ConfirmPayment(ctx context.Context, p verification.PaymentUpdate) verification.Outcome
}

// Reconciler receives writes that failed remotely but were shown as done.
type Reconciler interface {
	Record(ctx context.Context, rec reconciliation.Record) error
}
