package runners

import (
	"context"
	"fmt"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

type TypeRunner struct {
	StepCtx types.ExecutionContext

	payload typePayload
	keys    []string
}

type typePayload struct {
	Keys         any `yaml:"keys"`
	elementQuery `yaml:",inline"`
}

func init() {
	steprunner.RegisterSessionRunnerFactory("type", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &TypeRunner{StepCtx: ctx}, nil
	})
}

func (tr *TypeRunner) Validate() error {
	step := tr.StepCtx.Step

	if err := step.DecodePayload(&tr.payload); err != nil {
		return err
	}
	if tr.payload.Keys == nil {
		return fmt.Errorf("type step %q must define 'keys'", step.ID)
	}
	keys, err := keysFromValue(tr.payload.Keys)
	if err != nil {
		return fmt.Errorf("type step %q: %w", step.ID, err)
	}
	tr.keys = keys

	q := tr.payload.elementQuery
	if q.Selector != "" || q.ElementText != "" {
		return q.validate("type", step.ID)
	}
	return nil
}

func (tr *TypeRunner) Run(ctx context.Context) types.StepResult {
	sess := tr.StepCtx.Session
	q := tr.payload.elementQuery

	var el types.Element
	target := "the active element"
	if q.Selector != "" || q.ElementText != "" {
		found, _, err := findElement(ctx, sess, q)
		if err != nil {
			return types.Fail("%v", capitalize(err.Error()))
		}
		el = found
		target = "element with " + q.describe()
	} else {
		active, err := sess.ActiveElement(ctx)
		if err != nil {
			return types.Fail("Couldn't get the active element: %v", err)
		}
		el = active
	}

	if err := el.SendKeys(ctx, translateKeys(tr.keys)); err != nil {
		return types.Fail("Couldn't type into %s: %v", target, err)
	}
	return types.Pass("Typed %d key sequence(s) into %s.", len(tr.keys), target)
}
