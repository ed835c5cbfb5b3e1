package flow

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"ticketflow/internal/reconciliation"
	"ticketflow/pkg/testutil/fakeremote"
)

// TestContext is what the flow steps need from the scenario.
type TestContext interface {
	CreateFlow() error
	FlowPath(suffix string) string
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	Unauthenticated(method, path string) error
	Remote() *fakeremote.Server
	Reconciliation() []reconciliation.Record
	Tick(n int)
	GetResponseField(field string) (any, error)
}

var remotePaths = map[string]string{
	"send-otp":              fakeremote.PathSendOTP,
	"verify-otp":            fakeremote.PathVerifyOTP,
	"save-student":          fakeremote.PathSaveStudent,
	"save-guest":            fakeremote.PathSaveGuest,
	"update-payment-status": fakeremote.PathUpdatePayment,
}

// RegisterSteps registers the registration-flow step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &flowSteps{tc: tc}

	ctx.Step(`^a new registration flow$`, steps.newFlow)
	ctx.Step(`^the remote service accepts everything$`, steps.remoteAccepts)
	ctx.Step(`^the remote "([^"]*)" endpoint rejects with "([^"]*)"$`, steps.remoteRejects)
	ctx.Step(`^the remote "([^"]*)" endpoint is unreachable$`, steps.remoteDrops)
	ctx.Step(`^the remote "([^"]*)" endpoint hangs$`, steps.remoteHangs)
	ctx.Step(`^the remote expects code "([^"]*)" for "([^"]*)"$`, steps.remoteExpectsCode)

	ctx.Step(`^I press "([^"]*)"$`, steps.press)
	ctx.Step(`^I fill in the (student|guest) form:$`, steps.fillForm)
	ctx.Step(`^I tick the payment confirmation$`, steps.tickPaymentConfirmation)
	ctx.Step(`^I open the "([^"]*)" overlay$`, steps.openOverlay)
	ctx.Step(`^I close the overlay$`, steps.closeOverlay)
	ctx.Step(`^I look at the flow$`, steps.lookAtFlow)
	ctx.Step(`^I look at the flow without a token$`, steps.lookWithoutToken)
	ctx.Step(`^(\d+) seconds pass$`, steps.secondsPass)

	ctx.Step(`^the screen should be "([^"]*)"$`, steps.screenShouldBe)
	ctx.Step(`^the remote should have received (\d+) "([^"]*)" calls?$`, steps.remoteCallCount)
	ctx.Step(`^the remote "([^"]*)" call should carry "([^"]*)" = "([^"]*)"$`, steps.remoteCallCarries)
	ctx.Step(`^a reconciliation record for "([^"]*)" should exist$`, steps.reconciliationExists)
	ctx.Step(`^no reconciliation record should exist$`, steps.noReconciliation)
}

type flowSteps struct {
	tc TestContext
}

func (s *flowSteps) newFlow(context.Context) error {
	return s.tc.CreateFlow()
}

func (s *flowSteps) remoteAccepts(context.Context) error {
	s.tc.Remote().Reset()
	return nil
}

func (s *flowSteps) remotePath(name string) (string, error) {
	path, ok := remotePaths[name]
	if !ok {
		return "", fmt.Errorf("unknown remote endpoint %q", name)
	}
	return path, nil
}

func (s *flowSteps) remoteRejects(_ context.Context, name, message string) error {
	path, err := s.remotePath(name)
	if err != nil {
		return err
	}
	s.tc.Remote().Set(path, fakeremote.Reject(message))
	return nil
}

func (s *flowSteps) remoteDrops(_ context.Context, name string) error {
	path, err := s.remotePath(name)
	if err != nil {
		return err
	}
	s.tc.Remote().Set(path, fakeremote.Dropped)
	return nil
}

func (s *flowSteps) remoteHangs(_ context.Context, name string) error {
	path, err := s.remotePath(name)
	if err != nil {
		return err
	}
	s.tc.Remote().Set(path, fakeremote.Hang(2*time.Second))
	return nil
}

func (s *flowSteps) remoteExpectsCode(_ context.Context, code, email string) error {
	s.tc.Remote().ExpectCode(email, code)
	return nil
}

func (s *flowSteps) press(_ context.Context, action string) error {
	return s.tc.POST(s.tc.FlowPath("/actions"), map[string]string{"action": action})
}

func (s *flowSteps) fillForm(_ context.Context, kind string, table *godog.Table) error {
	fields := make(map[string]any, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("form rows need a field and a value")
		}
		fields[row.Cells[0].Value] = row.Cells[1].Value
	}
	return s.edit(kind, fields)
}

func (s *flowSteps) tickPaymentConfirmation(context.Context) error {
	return s.edit("student", map[string]any{"payment_confirmed": true})
}

func (s *flowSteps) edit(kind string, fields map[string]any) error {
	return s.tc.POST(s.tc.FlowPath("/fields"), map[string]any{"flow": kind, "fields": fields})
}

func (s *flowSteps) openOverlay(_ context.Context, overlay string) error {
	return s.tc.PUT(s.tc.FlowPath("/overlay"), map[string]string{"overlay": overlay})
}

func (s *flowSteps) closeOverlay(context.Context) error {
	return s.tc.DELETE(s.tc.FlowPath("/overlay"))
}

func (s *flowSteps) lookAtFlow(context.Context) error {
	return s.tc.GET(s.tc.FlowPath(""))
}

func (s *flowSteps) lookWithoutToken(context.Context) error {
	return s.tc.Unauthenticated(http.MethodGet, s.tc.FlowPath(""))
}

func (s *flowSteps) secondsPass(_ context.Context, n int) error {
	s.tc.Tick(n)
	return nil
}

func (s *flowSteps) screenShouldBe(ctx context.Context, want string) error {
	if err := s.lookAtFlow(ctx); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("screen")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected screen %q, got %v", want, got)
	}
	return nil
}

func (s *flowSteps) remoteCallCount(_ context.Context, want int, name string) error {
	path, err := s.remotePath(name)
	if err != nil {
		return err
	}
	if got := len(s.tc.Remote().CallsTo(path)); got != want {
		return fmt.Errorf("expected %d %s calls, got %d", want, name, got)
	}
	return nil
}

func (s *flowSteps) remoteCallCarries(_ context.Context, name, key, want string) error {
	path, err := s.remotePath(name)
	if err != nil {
		return err
	}
	calls := s.tc.Remote().CallsTo(path)
	if len(calls) == 0 {
		return fmt.Errorf("no %s call received", name)
	}
	got := calls[len(calls)-1].Body[key]
	if b, ok := got.(bool); ok {
		got = strconv.FormatBool(b)
	}
	if got != want {
		return fmt.Errorf("expected %s.%s=%q, got %v", name, key, want, got)
	}
	return nil
}

func (s *flowSteps) reconciliationExists(_ context.Context, op string) error {
	for _, rec := range s.tc.Reconciliation() {
		if string(rec.Operation) == op {
			return nil
		}
	}
	return fmt.Errorf("no reconciliation record for %s", op)
}

func (s *flowSteps) noReconciliation(context.Context) error {
	if n := len(s.tc.Reconciliation()); n != 0 {
		return fmt.Errorf("expected no reconciliation records, got %d", n)
	}
	return nil
}
