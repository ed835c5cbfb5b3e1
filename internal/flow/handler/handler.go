// Package handler serves the display API: it lets a front end create a flow,
// render its view and press its buttons.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ticketflow/internal/flow/models"
	"ticketflow/internal/platform/metrics"
	"ticketflow/internal/platform/middleware"
	dErrors "ticketflow/pkg/domain-errors"
	"ticketflow/pkg/platform/httputil"
	"ticketflow/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,TokenIssuer

// Service is the flow registry.
type Service interface {
	Create(ctx context.Context) (models.View, error)
	View(ctx context.Context, id uuid.UUID) (models.View, error)
	Dispatch(ctx context.Context, id uuid.UUID, action models.Action) (models.View, error)
	EditFields(ctx context.Context, id uuid.UUID, kind models.FlowKind, fields map[string]any) (models.View, error)
	OpenOverlay(ctx context.Context, id uuid.UUID, o models.Overlay) (models.View, error)
	CloseOverlay(ctx context.Context, id uuid.UUID) (models.View, error)
	End(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer signs the bearer token handed out with a new flow.
type TokenIssuer interface {
	Issue(flowID uuid.UUID, ttl time.Duration) (string, error)
}

// Handler handles the flow endpoints.
type Handler struct {
	logger    *slog.Logger
	flows     Service
	tokens    TokenIssuer
	validator middleware.FlowTokenValidator
	metrics   *metrics.Metrics
	tokenTTL  time.Duration
	timeout   time.Duration
}

// New creates a flow Handler. tokenTTL should match the session TTL so a
// token never outlives the flow it names.
func New(
	flows Service,
	tokens TokenIssuer,
	validator middleware.FlowTokenValidator,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		logger:    logger,
		flows:     flows,
		tokens:    tokens,
		validator: validator,
		metrics:   metrics,
		tokenTTL:  tokenTTL,
		timeout:   30 * time.Second,
	}
}

// Register registers the flow routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	flowRouter := chi.NewRouter()
	flowRouter.Use(middleware.Recovery(h.logger))
	flowRouter.Use(middleware.RequestID)
	flowRouter.Use(middleware.Logger(h.logger))
	flowRouter.Use(middleware.Timeout(h.timeout))
	flowRouter.Use(middleware.ContentTypeJSON)
	flowRouter.Use(middleware.LatencyMiddleware(h.metrics))

	flowRouter.Post("/flows", h.handleCreate)
	flowRouter.Route("/flows/{flowID}", func(fr chi.Router) {
		fr.Use(middleware.RequireFlowToken(h.validator, "flowID", h.logger))
		fr.Get("/", h.handleView)
		fr.Delete("/", h.handleEnd)
		fr.Post("/fields", h.handleEditFields)
		fr.Post("/actions", h.handleAction)
		fr.Put("/overlay", h.handleOpenOverlay)
		fr.Delete("/overlay", h.handleCloseOverlay)
	})

	r.Mount("/", flowRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	view, err := h.flows.Create(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create flow",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.tokens.Issue(view.FlowID, h.tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue flow token",
			"request_id", requestID,
			"flow_id", view.FlowID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue flow token"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, CreateFlowResponse{
		FlowID: view.FlowID,
		Token:  token,
		View:   view,
	})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.flows.View(ctx, requestcontext.FlowID(ctx))
	h.respond(w, r, "view", view, err)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.flows.End(ctx, requestcontext.FlowID(ctx)); err != nil {
		h.respond(w, r, "end", models.View{}, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEditFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req EditFieldsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := req.Validate(); msg != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return
	}

	view, err := h.flows.EditFields(ctx, requestcontext.FlowID(ctx), req.Flow, req.Fields)
	h.respond(w, r, "edit fields", view, err)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ActionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := req.Validate(); msg != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return
	}

	view, err := h.flows.Dispatch(ctx, requestcontext.FlowID(ctx), req.Action)
	h.respond(w, r, string(req.Action), view, err)
}

func (h *Handler) handleOpenOverlay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req OverlayRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := req.Validate(); msg != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return
	}

	view, err := h.flows.OpenOverlay(ctx, requestcontext.FlowID(ctx), req.Overlay)
	h.respond(w, r, "open overlay", view, err)
}

func (h *Handler) handleCloseOverlay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.flows.CloseOverlay(ctx, requestcontext.FlowID(ctx))
	h.respond(w, r, "close overlay", view, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// respond writes the view, or the error with a log line whose level follows
// the error's class.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, view models.View, err error) {
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, view)
		return
	}

	ctx := r.Context()
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"flow_id", requestcontext.FlowID(ctx).String(),
		"op", op,
		"error", err,
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && domainErr.Code != dErrors.CodeInternal {
		h.logger.InfoContext(ctx, "flow request refused", attrs...)
	} else {
		h.logger.ErrorContext(ctx, "flow request failed", attrs...)
	}
	httputil.WriteError(w, err)
}
