package runners

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/arnavsurve/specrun/pkg/recording"
	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

type StartRecordingRunner struct {
	StepCtx types.ExecutionContext

	payload startRecordingPayload
}

type startRecordingPayload struct {
	Path      string `yaml:"path,omitempty"`
	Directory string `yaml:"directory,omitempty"`
	Interval  int    `yaml:"interval,omitempty"`
}

type StopRecordingRunner struct {
	StepCtx types.ExecutionContext
}

func init() {
	steprunner.RegisterSessionRunnerFactory("startRecording", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &StartRecordingRunner{StepCtx: ctx}, nil
	})
	steprunner.RegisterSessionRunnerFactory("stopRecording", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &StopRecordingRunner{StepCtx: ctx}, nil
	})
}

func (sr *StartRecordingRunner) Validate() error {
	step := sr.StepCtx.Step

	if err := step.DecodePayload(&sr.payload); err != nil {
		return err
	}
	if sr.payload.Interval < 0 {
		return fmt.Errorf("startRecording step %q: 'interval' must not be negative", step.ID)
	}
	if sr.payload.Path != "" && filepath.Ext(sr.payload.Path) != ".gif" {
		return fmt.Errorf("startRecording step %q: 'path' must end in .gif", step.ID)
	}
	if sr.StepCtx.State == nil {
		return fmt.Errorf("startRecording step %q has no context state to keep the recording in", step.ID)
	}
	return nil
}

func (sr *StartRecordingRunner) Run(ctx context.Context) types.StepResult {
	p := sr.payload
	name := p.Path
	if name == "" {
		name = sr.StepCtx.Step.ID + ".gif"
	}

	defaultDir := "."
	if sr.StepCtx.Config != nil {
		defaultDir = sr.StepCtx.Config.RecordingDirectory
	}
	path := persistOptions{Path: name, Directory: p.Directory}.target(sr.StepCtx.SpecDir, defaultDir)

	interval := time.Duration(p.Interval) * time.Millisecond
	rec := recording.New(sr.StepCtx.Session, path, interval, sr.StepCtx.Logger)
	if !sr.StepCtx.State.SetRecorder(rec) {
		return types.Fail("A recording is already running in this context.")
	}
	rec.Start(ctx)
	return types.Pass("Started recording to %s.", path).WithOutputs(map[string]any{"path": path})
}

func (sr *StopRecordingRunner) Validate() error {
	if len(sr.StepCtx.Step.Payload) > 0 {
		return fmt.Errorf("stopRecording step %q takes no options", sr.StepCtx.Step.ID)
	}
	return nil
}

func (sr *StopRecordingRunner) Run(ctx context.Context) types.StepResult {
	var rec types.Recorder
	if sr.StepCtx.State != nil {
		rec = sr.StepCtx.State.TakeRecorder()
	}
	if rec == nil {
		return types.Fail("No recording is running in this context.")
	}

	path, err := rec.Stop(ctx)
	if err != nil {
		return types.Fail("Couldn't save recording: %v", err)
	}
	return types.Pass("Saved recording to %s.", path).WithOutputs(map[string]any{"path": path})
}
