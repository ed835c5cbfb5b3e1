package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "ticketflow/pkg/domain-errors"
	"ticketflow/pkg/platform/httputil"
	"ticketflow/pkg/requestcontext"
)

// FlowTokenValidator resolves a bearer token to the flow it was issued for.
type FlowTokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// RequireFlowToken authenticates the bearer token and checks it was issued for
// the flow named by the {param} URL segment. On success the flow ID is put on
// the context.
func RequireFlowToken(validator FlowTokenValidator, param string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			flowID, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			if urlID := chi.URLParam(r, param); urlID != flowID.String() {
				logger.WarnContext(ctx, "unauthorized access - token bound to another flow",
					"request_id", requestID,
					"token_flow_id", flowID.String(),
					"path_flow_id", urlID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Token does not match flow"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithFlowID(ctx, flowID)))
		})
	}
}
