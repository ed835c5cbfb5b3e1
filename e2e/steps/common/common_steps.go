package common

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
)

// TestContext is what the generic assertions need from the scenario.
type TestContext interface {
	GetLastStatusCode() int
	GetLastDuration() time.Duration
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers status and response-field assertions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response should arrive within (\d+) seconds?$`, steps.arrivedWithin)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.fieldShouldBeNumber)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should not be empty$`, steps.fieldShouldNotBeEmpty)
	ctx.Step(`^the response should not contain "([^"]*)"$`, steps.fieldShouldBeAbsent)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.GetLastStatusCode(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) arrivedWithin(_ context.Context, seconds int) error {
	limit := time.Duration(seconds) * time.Second
	if got := s.tc.GetLastDuration(); got > limit {
		return fmt.Errorf("expected a response within %s, took %s", limit, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s=%q, got %v", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeNumber(_ context.Context, field string, want int) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := got.(float64)
	if !ok || int(n) != want {
		return fmt.Errorf("expected %s=%d, got %v", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(_ context.Context, field, want string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, _ := strconv.ParseBool(want)
	if v, ok := got.(bool); !ok || v != b {
		return fmt.Errorf("expected %s=%s, got %v", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldNotBeEmpty(_ context.Context, field string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got == nil || got == "" {
		return fmt.Errorf("expected %s to be set", field)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeAbsent(_ context.Context, field string) error {
	if got, err := s.tc.GetResponseField(field); err == nil && got != "" {
		return fmt.Errorf("expected no %s, got %v", field, got)
	}
	return nil
}
