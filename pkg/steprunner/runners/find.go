package runners

import (
	"context"
	"fmt"
	"strings"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

type FindRunner struct {
	StepCtx types.ExecutionContext

	payload findPayload
	keys    []string
}

type findPayload struct {
	elementQuery `yaml:",inline"`
	MoveTo       bool `yaml:"moveTo,omitempty"`
	Click        bool `yaml:"click,omitempty"`
	Type         any  `yaml:"type,omitempty"`
}

func init() {
	steprunner.RegisterSessionRunnerFactory("find", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &FindRunner{StepCtx: ctx}, nil
	})
}

func (fr *FindRunner) Validate() error {
	step := fr.StepCtx.Step

	if err := step.DecodePayload(&fr.payload); err != nil {
		return err
	}
	if err := fr.payload.elementQuery.validate("find", step.ID); err != nil {
		return err
	}
	if fr.payload.Type != nil {
		keys, err := keysFromValue(fr.payload.Type)
		if err != nil {
			return fmt.Errorf("find step %q: 'type': %w", step.ID, err)
		}
		fr.keys = keys
	}
	return nil
}

func (fr *FindRunner) Run(ctx context.Context) types.StepResult {
	sess := fr.StepCtx.Session
	p := fr.payload

	el, strategy, err := findElement(ctx, sess, p.elementQuery)
	if err != nil {
		return types.Fail("%v", capitalize(err.Error()))
	}
	fr.StepCtx.Logger.Debug().Str("strategy", strategy).Msg("Found element")

	outputs := map[string]any{"strategy": strategy}
	if text, err := el.Text(ctx); err == nil {
		outputs["text"] = text
	}

	if p.MoveTo {
		if err := el.MoveTo(ctx); err != nil {
			return types.Fail("Found element, but couldn't move to it: %v", err).WithOutputs(outputs)
		}
	}
	if p.Click {
		if err := el.Click(ctx); err != nil {
			return types.Fail("Found element, but couldn't click it: %v", err).WithOutputs(outputs)
		}
	}
	if len(fr.keys) > 0 {
		if err := el.SendKeys(ctx, translateKeys(fr.keys)); err != nil {
			return types.Fail("Found element, but couldn't type into it: %v", err).WithOutputs(outputs)
		}
	}

	return types.Pass("Found element by %s.", strategy).WithOutputs(outputs)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
