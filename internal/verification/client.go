// Package verification is the HTTP client for the remote verification and
// registration service.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWriteTimeout bounds the save-profile calls.
const DefaultWriteTimeout = 10 * time.Second

// MessageMalformedResponse is reported when the service answers with a body
// that is not the expected JSON.
const MessageMalformedResponse = "Server response error. Please try again."

const maxResponseBytes = 1 << 20

// Remote endpoints.
const (
	pathSendOTP       = "/api/send-otp"
	pathVerifyOTP     = "/api/verify-otp"
	pathSaveStudent   = "/api/save-student"
	pathSaveGuest     = "/api/save-guest"
	pathUpdatePayment = "/api/update-payment-status"
)

// Operation names used for spans, metrics and reconciliation records.
const (
	OpSendOTP       = "send-otp"
	OpVerifyOTP     = "verify-otp"
	OpSaveStudent   = "save-student"
	OpSaveGuest     = "save-guest"
	OpUpdatePayment = "update-payment"
)

// StudentProfile is the save-student payload.
type StudentProfile struct {
	Name          string `json:"name"`
	RegNo         string `json:"regNo"`
	Department    string `json:"department"`
	Year          string `json:"year"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PaymentStatus string `json:"paymentStatus"`
}

// GuestProfile is the save-guest payload.
type GuestProfile struct {
	Name       string `json:"name"`
	RollNo     string `json:"rollNo"`
	College    string `json:"college"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// PaymentUpdate is the update-payment-status payload.
type PaymentUpdate struct {
	Email         string `json:"email"`
	TransactionID string `json:"transactionId"`
	PaymentStatus string `json:"paymentStatus"`
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type remoteResponse struct {
	Success  bool   `json:"success"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// callMode selects how a call is checked and bounded.
type callMode uint8

const (
	// strictStatus treats a non-2xx response as a rejection.
	strictStatus callMode = 1 << iota
	// bounded applies the write timeout.
	bounded
)

// Client calls the verification service.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	writeTimeout time.Duration
	tracer       trace.Tracer
	logger       *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithWriteTimeout overrides the timeout applied to save-profile calls.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		writeTimeout: DefaultWriteTimeout,
		tracer:       otel.Tracer("ticketflow/verification"),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestCode asks the service to email a one-time code.
func (c *Client) RequestCode(ctx context.Context, email string) Outcome {
	resp, outcome, ok := c.post(ctx, OpSendOTP, pathSendOTP, sendOTPRequest{Email: email}, 0)
	if !ok {
		return outcome
	}
	if !resp.Success {
		return Rejected(resp.Message)
	}
	return Success(resp.Message)
}

// ConfirmCode checks a one-time code. verified=false is a rejection.
func (c *Client) ConfirmCode(ctx context.Context, email, code string) Outcome {
	resp, outcome, ok := c.post(ctx, OpVerifyOTP, pathVerifyOTP, verifyOTPRequest{Email: email, OTP: code}, 0)
	if !ok {
		return outcome
	}
	if !resp.Verified {
		return Rejected(resp.Message)
	}
	return Success(resp.Message)
}

// SubmitStudent saves a student registration.
func (c *Client) SubmitStudent(ctx context.Context, p StudentProfile) Outcome {
	return c.write(ctx, OpSaveStudent, pathSaveStudent, p, strictStatus|bounded)
}

// SubmitGuest saves a guest registration.
func (c *Client) SubmitGuest(ctx context.Context, p GuestProfile) Outcome {
	return c.write(ctx, OpSaveGuest, pathSaveGuest, p, strictStatus|bounded)
}

// ConfirmPayment records the transaction id the student entered. It has no
// client-side timeout.
func (c *Client) ConfirmPayment(ctx context.Context, p PaymentUpdate) Outcome {
	return c.write(ctx, OpUpdatePayment, pathUpdatePayment, p, strictStatus)
}

func (c *Client) write(ctx context.Context, op, path string, body any, mode callMode) Outcome {
	resp, outcome, ok := c.post(ctx, op, path, body, mode)
	if !ok {
		return outcome
	}
	if !resp.Success {
		return Rejected(resp.Message)
	}
	return Success(resp.Message)
}

// post performs one call. When ok is false the returned Outcome is final and
// the response must be ignored.
func (c *Client) post(ctx context.Context, op, path string, body any, mode callMode) (resp remoteResponse, outcome Outcome, ok bool) {
	ctx, span := c.tracer.Start(ctx, "verification."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("verification.operation", op)),
	)
	start := time.Now()
	defer func() {
		kind := outcome.Kind
		if ok {
			kind = KindSuccess
			if (op == OpVerifyOTP && !resp.Verified) || (op != OpVerifyOTP && !resp.Success) {
				kind = KindRejected
			}
		}
		observe(op, kind, time.Since(start))
		span.SetAttributes(attribute.String("verification.outcome", string(kind)))
		if kind == KindTransportFailure {
			span.SetStatus(codes.Error, outcome.Message)
		}
		span.End()
	}()

	if mode&bounded != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return resp, TransportFailure(fmt.Errorf("encode %s request: %w", op, err)), false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return resp, TransportFailure(fmt.Errorf("build %s request: %w", op, err)), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "verification call failed",
			"operation", op,
			"error", err,
		)
		return resp, TransportFailure(fmt.Errorf("%s: %w", op, err)), false
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return resp, TransportFailure(fmt.Errorf("read %s response: %w", op, err)), false
	}

	if mode&strictStatus != 0 && (httpResp.StatusCode < 200 || httpResp.StatusCode > 299) {
		message := fmt.Sprintf("HTTP error! status: %d", httpResp.StatusCode)
		var decoded remoteResponse
		if json.Unmarshal(raw, &decoded) == nil && decoded.Message != "" {
			message = decoded.Message
		}
		return resp, Rejected(message), false
	}

	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.WarnContext(ctx, "verification response is not JSON",
			"operation", op,
			"status", httpResp.StatusCode,
			"error", err,
		)
		return resp, Rejected(MessageMalformedResponse), false
	}
	return resp, Outcome{}, true
}
