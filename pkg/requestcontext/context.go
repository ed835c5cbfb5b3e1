// Package requestcontext provides HTTP-independent accessors for request-scoped
// values. Middleware sets them; services and loggers read them without pulling
// in net/http.
//
//	requestID := requestcontext.RequestID(ctx)
//	flowID := requestcontext.FlowID(ctx)
package requestcontext

import (
	"context"

	"github.com/google/uuid"
)

type (
	requestIDKey struct{}
	flowIDKey    struct{}
)

// Exported keys for tests that need context.WithValue directly.
var (
	ContextKeyRequestID = requestIDKey{}
	ContextKeyFlowID    = flowIDKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// FlowID retrieves the authenticated flow ID. Returns uuid.Nil if not set.
func FlowID(ctx context.Context) uuid.UUID {
	if flowID, ok := ctx.Value(ContextKeyFlowID).(uuid.UUID); ok {
		return flowID
	}
	return uuid.Nil
}

// WithFlowID injects the flow ID bound to the caller's token.
func WithFlowID(ctx context.Context, flowID uuid.UUID) context.Context {
	return context.WithValue(ctx, ContextKeyFlowID, flowID)
}
