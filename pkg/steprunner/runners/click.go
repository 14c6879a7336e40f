package runners

import (
	"context"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

type ClickRunner struct {
	StepCtx types.ExecutionContext

	query elementQuery
}

func init() {
	steprunner.RegisterSessionRunnerFactory("click", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ClickRunner{StepCtx: ctx}, nil
	})
}

func (cr *ClickRunner) Validate() error {
	step := cr.StepCtx.Step
	if err := step.DecodePayload(&cr.query); err != nil {
		return err
	}
	return cr.query.validate("click", step.ID)
}

func (cr *ClickRunner) Run(ctx context.Context) types.StepResult {
	el, strategy, err := findElement(ctx, cr.StepCtx.Session, cr.query)
	if err != nil {
		return types.Fail("%v", capitalize(err.Error()))
	}
	if err := el.Click(ctx); err != nil {
		return types.Fail("Couldn't click element with %s: %v", cr.query.describe(), err)
	}
	return types.Pass("Clicked element found by %s.", strategy)
}
