package core

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

// ValidateSpecStructure checks ids and that every step names an action.
func ValidateSpecStructure(spec *types.Spec) error {
	if spec.ID == "" {
		return fmt.Errorf("spec is missing 'id'")
	}
	if len(spec.Tests) == 0 {
		return fmt.Errorf("spec %q has no tests", spec.ID)
	}

	apiNames := make(map[string]bool)
	for i, api := range spec.APIs {
		if api.Name == "" {
			return fmt.Errorf("api %d is missing 'name'", i)
		}
		if apiNames[api.Name] {
			return fmt.Errorf("duplicate api name: %q", api.Name)
		}
		apiNames[api.Name] = true
	}

	testIDs := make(map[string]bool)
	for i, test := range spec.Tests {
		if test.ID == "" {
			return fmt.Errorf("test %d is missing 'id'", i)
		}
		if testIDs[test.ID] {
			return fmt.Errorf("duplicate test id: %q", test.ID)
		}
		testIDs[test.ID] = true

		stepIDs := make(map[string]bool)
		for j, step := range test.Steps {
			if step.Action == "" {
				return fmt.Errorf("step %d of test %q is missing 'action'", j, test.ID)
			}
			if step.ID == "" {
				continue
			}
			if stepIDs[step.ID] {
				return fmt.Errorf("duplicate step id %q in test %q", step.ID, test.ID)
			}
			stepIDs[step.ID] = true
		}
	}
	return nil
}

// ValidateSpecRunners validates every step payload without running it.
// Variables are resolved where they can be; references to results of earlier
// steps cannot be known yet, so such steps are validated as written. Steps
// without an id are reported as <test id>#<position>.
func ValidateSpecRunners(spec *types.Spec, cfg *types.RunConfig, vars types.Variables) error {
	specDir := filepath.Dir(spec.File)
	var errs []error
	for ti := range spec.Tests {
		test := &spec.Tests[ti]
		for si, step := range test.Steps {
			if step.ID == "" {
				step.ID = fmt.Sprintf("%s#%d", test.ID, si+1)
			}
			if resolved, err := ResolveStepVariables(&step, vars, nil); err == nil {
				step = *resolved
			}

			ctx := types.ExecutionContext{
				Step:    step,
				Vars:    vars,
				Config:  cfg,
				Spec:    spec,
				SpecDir: specDir,
			}
			runner, err := steprunner.GetRunner(ctx)
			if err != nil {
				errs = append(errs, fmt.Errorf("test %q: getting runner for %s step: %w", test.ID, step.Action, err))
				continue
			}
			if err := runner.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("test %q: validating %s step: %w", test.ID, step.Action, err))
			}
		}
	}
	return errors.Join(errs...)
}
