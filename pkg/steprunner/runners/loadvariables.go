package runners

import (
	"context"
	"fmt"
	"sort"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/joho/godotenv"
)

type LoadVariablesRunner struct {
	StepCtx types.ExecutionContext

	path string
}

type loadVariablesPayload struct {
	LoadVariables string `yaml:"loadVariables"`
}

func init() {
	steprunner.RegisterRunnerFactory("loadVariables", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &LoadVariablesRunner{StepCtx: ctx}, nil
	})
}

func (lr *LoadVariablesRunner) Validate() error {
	step := lr.StepCtx.Step

	var p loadVariablesPayload
	if err := step.DecodePayload(&p); err != nil {
		return err
	}
	if p.LoadVariables == "" {
		return fmt.Errorf("loadVariables step %q must define 'loadVariables'", step.ID)
	}
	lr.path = core.ResolvePathFromSpec(lr.StepCtx.SpecDir, p.LoadVariables)
	return nil
}

func (lr *LoadVariablesRunner) Run(_ context.Context) types.StepResult {
	if lr.StepCtx.Vars == nil {
		return types.Fail("No variable store is available to load %s into.", lr.path)
	}

	loaded, err := godotenv.Read(lr.path)
	if err != nil {
		return types.Fail("Couldn't read variables from %s: %v", lr.path, err)
	}

	names := make([]string, 0, len(loaded))
	for k, v := range loaded {
		lr.StepCtx.Vars.Set(k, v)
		names = append(names, k)
	}
	sort.Strings(names)

	return types.Pass("Loaded %d variable(s) from %s.", len(names), lr.path).
		WithOutputs(map[string]any{"variables": names})
}
