package runners

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/arnavsurve/specrun/internal/procutil"
	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

const (
	defaultShellTimeout = 60000
	shellWaitDelay      = time.Second
)

type ShellRunner struct {
	StepCtx types.ExecutionContext

	payload shellPayload
}

// shellPayload is shared by runShell and runCode.
type shellPayload struct {
	Command          string            `yaml:"command"`
	Args             []string          `yaml:"args,omitempty"`
	ExitCodes        []int             `yaml:"exitCodes,omitempty"`
	Output           string            `yaml:"output,omitempty"`
	Timeout          int               `yaml:"timeout,omitempty"`
	WorkingDirectory string            `yaml:"workingDirectory,omitempty"`
	SetVariables     []variableCapture `yaml:"setVariables,omitempty"`
	persistOptions   `yaml:",inline"`
}

func init() {
	steprunner.RegisterRunnerFactory("runShell", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ShellRunner{StepCtx: ctx}, nil
	})
}

func (sr *ShellRunner) Validate() error {
	step := sr.StepCtx.Step

	if err := step.DecodePayload(&sr.payload); err != nil {
		return err
	}
	if sr.payload.Command == "" {
		return fmt.Errorf("runShell step %q must define 'command'", step.ID)
	}
	return sr.payload.validate("runShell", step.ID)
}

func (p *shellPayload) validate(action, stepID string) error {
	if p.Timeout < 0 {
		return fmt.Errorf("%s step %q: 'timeout' must not be negative", action, stepID)
	}
	if len(p.ExitCodes) == 0 {
		p.ExitCodes = []int{0}
	}
	if p.Output != "" {
		if _, err := compileMatcher(p.Output); err != nil {
			return fmt.Errorf("%s step %q: 'output': %w", action, stepID, err)
		}
	}
	if err := validateCaptures(action, stepID, p.SetVariables); err != nil {
		return err
	}
	return p.persistOptions.validate(action, stepID)
}

func (sr *ShellRunner) Run(ctx context.Context) types.StepResult {
	return executeCommand(ctx, sr.StepCtx, sr.payload)
}

// executeCommand runs the command under a hard timeout and checks its exit
// code, output, captures and persisted stdout.
func executeCommand(ctx context.Context, execCtx types.ExecutionContext, p shellPayload) types.StepResult {
	logger := execCtx.Logger

	timeoutMs := p.Timeout
	if timeoutMs == 0 {
		timeoutMs = defaultShellTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	cmd := shellCommand(ctx, p.Command, p.Args)
	cmd.Dir = core.ResolvePathFromSpec(execCtx.SpecDir, p.WorkingDirectory)
	procutil.ConfigureProcessGroup(cmd)
	cmd.Cancel = func() error {
		return procutil.KillProcessTree(cmd.Process.Pid)
	}
	cmd.WaitDelay = shellWaitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	logger.Info().Str("command", p.Command).Msg("Starting command")
	runErr := cmd.Run()

	steprunner.LogBuffer(strings.NewReader(stderrBuf.String()), "STDERR", logger, "shell_line")
	steprunner.LogBuffer(strings.NewReader(stdoutBuf.String()), "STDOUT", logger, "shell_line")

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.Fail("Command timed out after %dms.", timeoutMs)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return types.Fail("Couldn't run command: %v", runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	stdout := strings.TrimSpace(stdoutBuf.String())
	stderr := strings.TrimSpace(stderrBuf.String())
	outputs := map[string]any{
		"stdout":   stdout,
		"stderr":   stderr,
		"exitCode": exitCode,
	}

	var structured any
	if err := json.Unmarshal([]byte(stdout), &structured); err == nil {
		logger.Debug().Msg("Command output was valid JSON, promoting to structured output.")
		outputs["json"] = structured
	}

	if !slices.Contains(p.ExitCodes, exitCode) {
		return types.Fail("Returned exit code %d. Expected one of %v.", exitCode, p.ExitCodes).WithOutputs(outputs)
	}

	if p.Output != "" {
		match, _ := compileMatcher(p.Output)
		if !match(stdout) && !match(stderr) {
			return types.Fail("Couldn't find expected output (%s) in command output.", p.Output).WithOutputs(outputs)
		}
	}

	result := types.Pass("Returned exit code %d.", exitCode)
	if missing := applyCaptures(p.SetVariables, stdout, outputs, execCtx.Vars); len(missing) > 0 {
		result = withWarning(result, "Couldn't set variables %v from command output.", missing)
	}

	if p.enabled() {
		policy, _ := p.policy()
		path := p.target(execCtx.SpecDir, ".")
		saved, err := persist(path, []byte(stdout), p.maxVariation(0), policy, textVariation)
		if err != nil {
			return types.Fail("Couldn't save command output: %v", err).WithOutputs(outputs)
		}
		outputs["path"] = path
		if saved.Status == types.StatusWarning {
			result = withWarning(result, "%s", saved.Description)
		} else {
			result.Description += " " + saved.Description
		}
	}

	return result.WithOutputs(outputs)
}

func shellCommand(ctx context.Context, command string, args []string) *exec.Cmd {
	if len(args) > 0 {
		// #nosec G204
		return exec.CommandContext(ctx, command, args...)
	}
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	// #nosec G204
	return exec.CommandContext(ctx, "sh", "-c", command)
}
