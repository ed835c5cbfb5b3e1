// Package e2e drives the display API end to end: a real flow service and
// handler behind an httptest server, talking to a scripted fake of the
// verification service.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ticketflow/internal/flow/handler"
	"ticketflow/internal/flow/service"
	"ticketflow/internal/flow/store/session"
	"ticketflow/internal/platform/logger"
	"ticketflow/internal/reconciliation"
	reconstore "ticketflow/internal/reconciliation/store"
	"ticketflow/internal/verification"
	"ticketflow/pkg/flowtoken"
	"ticketflow/pkg/testutil/fakeremote"
)

// TestContext holds one scenario's server, fake remote and last response.
type TestContext struct {
	remote    *fakeremote.Server
	remoteSrv *httptest.Server
	server    *httptest.Server
	flows     *service.Service
	outbox    *reconstore.InMemoryStore

	flowID string
	token  string

	lastStatus  int
	lastBody    []byte
	lastElapsed time.Duration
}

// NewTestContext starts a fresh stack for a scenario.
func NewTestContext() *TestContext {
	log := logger.Discard()

	remote := fakeremote.New()
	remoteSrv := httptest.NewServer(remote.Handler())

	client := verification.New(remoteSrv.URL,
		verification.WithWriteTimeout(200*time.Millisecond),
		verification.WithLogger(log),
	)
	outbox := reconstore.NewInMemory()
	flows := service.New(client, session.NewInMemory(), log,
		service.WithReconciler(reconciliation.NewRecorder(outbox, log)),
	)
	tokens := flowtoken.New("e2e-signing-key", "ticketflow")

	r := chi.NewRouter()
	handler.New(flows, tokens, tokens, log, nil, time.Hour).Register(r)

	return &TestContext{
		remote:    remote,
		remoteSrv: remoteSrv,
		server:    httptest.NewServer(r),
		flows:     flows,
		outbox:    outbox,
	}
}

// Close stops both servers.
func (tc *TestContext) Close() {
	tc.server.Close()
	tc.remoteSrv.Close()
}

func (tc *TestContext) Remote() *fakeremote.Server {
	return tc.remote
}

func (tc *TestContext) Reconciliation() []reconciliation.Record {
	return tc.outbox.All()
}

// Tick advances every flow's clock by n seconds.
func (tc *TestContext) Tick(n int) {
	for range n {
		tc.flows.TickAll()
	}
}

// CreateFlow starts a flow and keeps its id and token for later requests.
func (tc *TestContext) CreateFlow() error {
	if err := tc.do(http.MethodPost, "/flows", nil, false); err != nil {
		return err
	}
	if tc.lastStatus != http.StatusCreated {
		return fmt.Errorf("create flow: status %d: %s", tc.lastStatus, tc.lastBody)
	}
	var resp handler.CreateFlowResponse
	if err := json.Unmarshal(tc.lastBody, &resp); err != nil {
		return err
	}
	tc.flowID = resp.FlowID.String()
	tc.token = resp.Token
	// Keep the view as the last body so assertions see the initial screen.
	view, err := json.Marshal(resp.View)
	if err != nil {
		return err
	}
	tc.lastBody = view
	return nil
}

func (tc *TestContext) FlowPath(suffix string) string {
	return "/flows/" + tc.flowID + suffix
}

// POST sends an authenticated JSON request for the current flow.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, true)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body, true)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, true)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil, true)
}

// Unauthenticated sends a request without the flow token.
func (tc *TestContext) Unauthenticated(method, path string) error {
	return tc.do(method, path, nil, false)
}

func (tc *TestContext) do(method, path string, body any, auth bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	start := time.Now()
	resp, err := tc.server.Client().Do(req)
	tc.lastElapsed = time.Since(start)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastStatusCode() int {
	return tc.lastStatus
}

// GetLastDuration is how long the last request took to answer.
func (tc *TestContext) GetLastDuration() time.Duration {
	return tc.lastElapsed
}

// GetResponseField reads a dotted path such as "student_otp.resend_timer"
// from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}
