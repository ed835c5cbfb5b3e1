package e2e

import (
	"github.com/cucumber/godog"

	"ticketflow/e2e/steps/common"
	"ticketflow/e2e/steps/flow"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	flow.RegisterSteps(ctx, tc)
}
