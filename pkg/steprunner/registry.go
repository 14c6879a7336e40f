package steprunner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/arnavsurve/specrun/pkg/log"
	"github.com/arnavsurve/specrun/pkg/types"
)

type RunnerFactory func(ctx types.ExecutionContext) (StepRunner, error)

type registration struct {
	factory      RunnerFactory
	needsSession bool
}

// registry stores each action's factory. It is filled from init functions
// and read-only afterwards.
var registry = map[string]registration{}

// RegisterRunnerFactory is called in each runner's init() function to make
// the action available to GetRunner and Dispatch.
func RegisterRunnerFactory(action string, factory RunnerFactory) {
	registry[action] = registration{factory: factory}
}

// RegisterSessionRunnerFactory registers an action that drives a live
// application session.
func RegisterSessionRunnerFactory(action string, factory RunnerFactory) {
	registry[action] = registration{factory: factory, needsSession: true}
}

// RequiresSession reports whether action needs a live session.
func RequiresSession(action string) bool {
	return registry[action].needsSession
}

// Actions lists the registered action names.
func Actions() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetRunner returns a new runner for the step's action.
func GetRunner(ctx types.ExecutionContext) (StepRunner, error) {
	reg, ok := registry[ctx.Step.Action]
	if !ok {
		return nil, fmt.Errorf("no runner registered for action: %s", ctx.Step.Action)
	}
	if ctx.Logger == nil {
		ctx.Logger = log.NewNopLogger()
	}
	return reg.factory(ctx)
}

// Dispatch validates and runs one step. It never panics and never returns an
// error: every failure, including a panic inside a runner, becomes a FAIL
// result.
func Dispatch(ctx context.Context, execCtx types.ExecutionContext) (result types.StepResult) {
	action := execCtx.Step.Action
	if execCtx.Logger == nil {
		execCtx.Logger = log.NewNopLogger()
	}

	defer func() {
		if r := recover(); r != nil {
			execCtx.Logger.Error().
				Str("stack", string(debug.Stack())).
				Msgf("Recovered from panic in %s step", action)
			result = types.Fail("Action %s panicked: %v", action, r)
		}
	}()

	reg, ok := registry[action]
	if !ok {
		return types.Fail("Unsupported action: %s", action)
	}
	if reg.needsSession && execCtx.Session == nil {
		return types.Fail("Action %s requires an application session, but this context has none", action)
	}

	runner, err := reg.factory(execCtx)
	if err != nil {
		return types.Fail("Couldn't create runner for %s step: %v", action, err)
	}
	if err := runner.Validate(); err != nil {
		return types.Fail("Invalid step: %v", err)
	}

	result = runner.Run(ctx)
	if !result.Status.Valid() {
		return types.Fail("Action %s returned an unknown status %q", action, result.Status)
	}
	return result
}
