package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/google/uuid"
)

// SessionProvider opens and closes application sessions for contexts.
type SessionProvider interface {
	Start(ctx context.Context, c types.Context) (types.Session, error)
	Stop(ctx context.Context, s types.Session)
	Close() error
}

// ResultObserver is told about every result as soon as it is produced.
type ResultObserver interface {
	ObserveResult(level string, status types.Status)
	ObserveStep(action string, status types.Status, elapsed time.Duration)
}

// Result levels passed to ResultObserver.ObserveResult.
const (
	LevelSpec    = "spec"
	LevelTest    = "test"
	LevelContext = "context"
	LevelStep    = "step"
)

// Engine runs specs sequentially: specs, then tests, then contexts, then
// steps. Nothing that goes wrong inside a context aborts the run.
type Engine struct {
	Logger   types.Logger
	Config   *types.RunConfig
	Sessions SessionProvider
	Observer ResultObserver
	Vars     *VarStore
	RunID    string
}

func NewEngine(cfg *types.RunConfig, logger types.Logger, sessions SessionProvider) *Engine {
	return &Engine{
		Logger:   logger,
		Config:   cfg,
		Sessions: sessions,
	}
}

// run holds what lives for one call to Run.
type run struct {
	vars    *VarStore
	summary *types.Summary
}

// Run executes specs and returns the complete report. The session provider
// is closed before Run returns.
func (e *Engine) Run(ctx context.Context, specs []types.Spec) (*types.RunReport, error) {
	if e.Config == nil {
		return nil, fmt.Errorf("running specs: no run config")
	}

	runID := e.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &types.RunReport{RunID: runID, Specs: make([]types.SpecResult, 0, len(specs))}

	vars := e.Vars
	if vars == nil {
		vars = NewVarStore(nil)
		if e.Config.EnvFile != "" {
			if _, err := vars.LoadEnvFile(e.Config.EnvFile); err != nil {
				return nil, err
			}
		}
	}
	r := &run{vars: vars, summary: &report.Summary}

	if e.Sessions != nil {
		defer func() {
			if err := e.Sessions.Close(); err != nil {
				e.Logger.Warn().Err(err).Msg("Couldn't shut down the automation server")
			}
		}()
	}

	e.Logger.Info().Msgf("Starting run %s with %d spec(s)", runID, len(specs))
	for i := range specs {
		report.Specs = append(report.Specs, e.runSpec(ctx, r, &specs[i]))
	}
	report.Status = rollupSpecs(report.Specs)

	e.Logger.Info().Msgf("Run finished with status %s", report.Status)
	return report, nil
}

func (e *Engine) runSpec(ctx context.Context, r *run, spec *types.Spec) types.SpecResult {
	logger := e.Logger.With().Str("spec_id", spec.ID).Logger()
	logger.Info().Msgf("Running spec %q", spec.ID)

	result := types.SpecResult{
		SpecID:      spec.ID,
		Description: spec.Description,
		File:        spec.File,
		Tests:       make([]types.TestResult, 0, len(spec.Tests)),
	}
	for i := range spec.Tests {
		result.Tests = append(result.Tests, e.runTest(ctx, r, logger, spec, &spec.Tests[i]))
	}
	result.Status = rollupTests(result.Tests)
	e.record(r, LevelSpec, result.Status)
	return result
}

func (e *Engine) runTest(ctx context.Context, r *run, logger types.Logger, spec *types.Spec, test *types.Test) types.TestResult {
	logger = logger.With().Str("test_id", test.ID).Logger()
	logger.Info().Msgf("Running test %q", test.ID)

	result := types.TestResult{TestID: test.ID, Description: test.Description}
	platform := e.Config.Environment.Platform
	steps := assignStepIDs(test.Steps)

	var contexts []types.Context
	needsSession := requiresSession(steps)
	if needsSession {
		configured := SelectContexts(test, spec, e.Config)
		contexts = ResolveContexts(configured, e.Config.Environment.Apps, platform)
	} else {
		contexts = []types.Context{{Platforms: []string{platform}}}
	}

	if len(contexts) == 0 {
		logger.Warn().Msgf("No supported context for test %q on %s", test.ID, platform)
		cr := types.ContextResult{
			Platform:    platform,
			Status:      types.StatusSkipped,
			Description: fmt.Sprintf("No supported context for platform %s", platform),
			Steps:       []types.StepReport{},
		}
		e.record(r, LevelContext, cr.Status)
		result.Contexts = []types.ContextResult{cr}
	}

	for _, c := range contexts {
		result.Contexts = append(result.Contexts, e.runContext(ctx, r, logger, spec, steps, c, needsSession))
	}

	result.Status = rollupContexts(result.Contexts)
	e.record(r, LevelTest, result.Status)
	logger.Info().Msgf("Test %q finished with status %s", test.ID, result.Status)
	return result
}

func (e *Engine) runContext(
	ctx context.Context,
	r *run,
	logger types.Logger,
	spec *types.Spec,
	steps []types.Step,
	c types.Context,
	needsSession bool,
) types.ContextResult {
	platform := e.Config.Environment.Platform
	cr := types.ContextResult{App: c.App.Name, Platform: platform, Steps: make([]types.StepReport, 0, len(steps))}
	if c.App.Name != "" {
		logger = logger.With().Str("app", c.App.Name).Logger()
	}

	var session types.Session
	if needsSession {
		if e.Sessions == nil {
			cr.Status = types.StatusSkipped
			cr.Description = fmt.Sprintf("Skipping %s on %s: no session provider configured", c.App.Name, platform)
			e.record(r, LevelContext, cr.Status)
			return cr
		}
		s, err := e.Sessions.Start(ctx, c)
		if err != nil {
			logger.Warn().Err(err).Msgf("Couldn't start %s session", c.App.Name)
			cr.Status = types.StatusSkipped
			cr.Description = fmt.Sprintf("Skipping %s on %s: %v", c.App.Name, platform, err)
			e.record(r, LevelContext, cr.Status)
			return cr
		}
		session = s
		defer e.Sessions.Stop(ctx, session)
	}

	state := &types.ContextState{}
	defer func() {
		if rec := state.TakeRecorder(); rec != nil {
			if path, err := rec.Stop(ctx); err != nil {
				logger.Warn().Err(err).Msg("Couldn't finish recording left running at end of context")
			} else {
				logger.Info().Msgf("Saved recording left running at end of context to %s", path)
			}
		}
	}()

	results := make(StepResultsContext, len(steps))
	specDir := filepath.Dir(spec.File)
	for _, step := range steps {
		report := e.runStep(ctx, r, logger, types.ExecutionContext{
			Step:    step,
			Session: session,
			Vars:    r.vars,
			Results: results,
			Config:  e.Config,
			Spec:    spec,
			SpecDir: specDir,
			State:   state,
		})
		cr.Steps = append(cr.Steps, report)
		results[step.ID] = report.StepResult
	}

	cr.Status = rollupSteps(cr.Steps)
	e.record(r, LevelContext, cr.Status)
	return cr
}

func (e *Engine) runStep(ctx context.Context, r *run, logger types.Logger, execCtx types.ExecutionContext) types.StepReport {
	step := execCtx.Step
	stepLogger := logger.With().Str("step_id", step.ID).Str("action", step.Action).Logger()
	report := types.StepReport{StepID: step.ID, Action: step.Action}

	var elapsed time.Duration
	resolved, err := ResolveStepVariables(&step, r.vars, execCtx.Results)
	if err != nil {
		report.StepResult = types.Fail("Couldn't resolve variables: %v", err)
	} else {
		execCtx.Step = *resolved
		execCtx.Logger = stepLogger
		stepLogger.Info().Msgf("Running %s step", step.Action)

		start := time.Now()
		report.StepResult = steprunner.Dispatch(ctx, execCtx)
		elapsed = time.Since(start)
		if e.Observer != nil {
			e.Observer.ObserveStep(step.Action, report.Status, elapsed)
		}
	}

	stepLogger.At(types.LevelFor(report.Status)).
		Str("status", string(report.Status)).
		Dur("elapsed", elapsed).
		Msg(report.Description)

	e.record(r, LevelStep, report.Status)
	return report
}

// record bumps the summary counter of level as soon as a result exists.
func (e *Engine) record(r *run, level string, status types.Status) {
	switch level {
	case LevelSpec:
		r.summary.Specs.Add(status)
	case LevelTest:
		r.summary.Tests.Add(status)
	case LevelContext:
		r.summary.Contexts.Add(status)
	case LevelStep:
		r.summary.Steps.Add(status)
	}
	if e.Observer != nil {
		e.Observer.ObserveResult(level, status)
	}
}

// assignStepIDs returns a copy of steps where every step has an id, so the
// same step keeps its id across contexts.
func assignStepIDs(steps []types.Step) []types.Step {
	out := make([]types.Step, len(steps))
	for i, s := range steps {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		out[i] = s
	}
	return out
}

func requiresSession(steps []types.Step) bool {
	for _, s := range steps {
		if steprunner.RequiresSession(s.Action) {
			return true
		}
	}
	return false
}
