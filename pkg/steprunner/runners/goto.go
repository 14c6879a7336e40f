package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

const (
	defaultGoToTimeout = 30000
	readyPollInterval  = 100 * time.Millisecond
)

type GoToRunner struct {
	StepCtx types.ExecutionContext

	payload goToPayload
	url     string
}

type goToPayload struct {
	URL     string `yaml:"url"`
	Origin  string `yaml:"origin,omitempty"`
	Timeout int    `yaml:"timeout,omitempty"`
}

func init() {
	steprunner.RegisterSessionRunnerFactory("goTo", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &GoToRunner{StepCtx: ctx}, nil
	})
}

func (gr *GoToRunner) Validate() error {
	step := gr.StepCtx.Step

	if err := step.DecodePayload(&gr.payload); err != nil {
		return err
	}
	if gr.payload.URL == "" {
		return fmt.Errorf("goTo step %q must define 'url'", step.ID)
	}
	if gr.payload.Timeout < 0 {
		return fmt.Errorf("goTo step %q: 'timeout' must not be negative", step.ID)
	}

	u, err := NormalizeURL(gr.payload.URL, originFor(gr.StepCtx, gr.payload.Origin, ""))
	if err != nil {
		return fmt.Errorf("goTo step %q: %w", step.ID, err)
	}
	gr.url = u
	return nil
}

func (gr *GoToRunner) Run(ctx context.Context) types.StepResult {
	sess := gr.StepCtx.Session

	if err := sess.Navigate(ctx, gr.url); err != nil {
		return types.Fail("Couldn't open %s: %v", gr.url, err)
	}
	outputs := map[string]any{"url": gr.url}

	timeout := gr.payload.Timeout
	if timeout == 0 {
		timeout = defaultGoToTimeout
	}
	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)
	for {
		state, err := sess.ExecuteScript(ctx, "return document.readyState")
		if err == nil && state == "complete" {
			return types.Pass("Opened %s.", gr.url).WithOutputs(outputs)
		}
		if time.Now().After(deadline) {
			return types.Warn("Opened %s, but the page didn't finish loading within %dms.", gr.url, timeout).WithOutputs(outputs)
		}
		select {
		case <-ctx.Done():
			return types.Fail("Navigation interrupted: %v", ctx.Err()).WithOutputs(outputs)
		case <-time.After(readyPollInterval):
		}
	}
}
