package runners

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

const defaultWait = 5000 * time.Millisecond

type WaitRunner struct {
	StepCtx types.ExecutionContext

	duration time.Duration
	skip     bool
}

type waitPayload struct {
	Wait any `yaml:"wait"`
}

func init() {
	steprunner.RegisterRunnerFactory("wait", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &WaitRunner{StepCtx: ctx}, nil
	})
}

// ParseWaitDuration interprets a wait value: true (or no value) waits the
// default 5s, false skips, numbers and numeric strings are milliseconds.
func ParseWaitDuration(v any) (d time.Duration, skip bool, err error) {
	var ms float64
	switch t := v.(type) {
	case nil:
		return defaultWait, false, nil
	case bool:
		if !t {
			return 0, true, nil
		}
		return defaultWait, false, nil
	case int:
		ms = float64(t)
	case int64:
		ms = float64(t)
	case uint64:
		ms = float64(t)
	case float64:
		ms = t
	case string:
		ms, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false, fmt.Errorf("wait value %q is not a number", t)
		}
	default:
		return 0, false, fmt.Errorf("wait value %v has unsupported type %T", v, v)
	}
	if ms < 0 {
		return 0, false, fmt.Errorf("wait value %v must not be negative", v)
	}
	return time.Duration(ms * float64(time.Millisecond)), false, nil
}

func (wr *WaitRunner) Validate() error {
	step := wr.StepCtx.Step

	var p waitPayload
	if err := step.DecodePayload(&p); err != nil {
		return err
	}
	d, skip, err := ParseWaitDuration(p.Wait)
	if err != nil {
		return fmt.Errorf("wait step %q: %w", step.ID, err)
	}
	wr.duration, wr.skip = d, skip
	return nil
}

func (wr *WaitRunner) Run(ctx context.Context) types.StepResult {
	if wr.skip {
		return types.Skip("Wait is disabled.")
	}

	timer := time.NewTimer(wr.duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return types.Pass("Waited %dms.", wr.duration.Milliseconds())
	case <-ctx.Done():
		return types.Fail("Wait interrupted: %v", ctx.Err())
	}
}

// Duration is the wait resolved by Validate.
func (wr *WaitRunner) Duration() time.Duration {
	return wr.duration
}
