package runners

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

const defaultScreenshotVariation = 0.05

type ScreenshotRunner struct {
	StepCtx types.ExecutionContext

	payload persistOptions
}

func init() {
	steprunner.RegisterSessionRunnerFactory("saveScreenshot", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ScreenshotRunner{StepCtx: ctx}, nil
	})
}

func (sr *ScreenshotRunner) Validate() error {
	step := sr.StepCtx.Step

	if err := step.DecodePayload(&sr.payload); err != nil {
		return err
	}
	if sr.payload.Path != "" && filepath.Ext(sr.payload.Path) != ".png" {
		return fmt.Errorf("saveScreenshot step %q: 'path' must end in .png", step.ID)
	}
	return sr.payload.validate("saveScreenshot", step.ID)
}

func (sr *ScreenshotRunner) Run(ctx context.Context) types.StepResult {
	p := sr.payload
	if p.Path == "" {
		p.Path = sr.StepCtx.Step.ID + ".png"
	}

	defaultDir := "."
	if sr.StepCtx.Config != nil {
		defaultDir = sr.StepCtx.Config.MediaDirectory
	}
	path := p.target(sr.StepCtx.SpecDir, defaultDir)

	png, err := sr.StepCtx.Session.Screenshot(ctx)
	if err != nil {
		return types.Fail("Couldn't capture screenshot: %v", err)
	}

	policy, _ := p.policy()
	result, err := persist(path, png, p.maxVariation(defaultScreenshotVariation), policy, pixelVariation)
	if err != nil {
		return types.Fail("Couldn't save screenshot: %v", err)
	}
	if result.Outputs == nil {
		result.Outputs = map[string]any{}
	}
	result.Outputs["path"] = path
	return result
}
