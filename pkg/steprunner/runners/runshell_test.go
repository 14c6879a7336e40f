package runners_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/steprunner/runners"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRunner_Validate(t *testing.T) {
	tests := []struct {
		name        string
		payload     map[string]any
		shouldError bool
		errorMsg    string
	}{
		{
			name:    "Valid command",
			payload: map[string]any{"command": "echo hello"},
		},
		{
			name:    "Valid with checks",
			payload: map[string]any{"command": "echo hello", "exitCodes": []any{0, 1}, "output": "/hel+o/"},
		},
		{
			name:        "Missing command",
			payload:     map[string]any{},
			shouldError: true,
			errorMsg:    "must define 'command'",
		},
		{
			name:        "Negative timeout",
			payload:     map[string]any{"command": "true", "timeout": -1},
			shouldError: true,
			errorMsg:    "'timeout' must not be negative",
		},
		{
			name:        "Bad output pattern",
			payload:     map[string]any{"command": "true", "output": "/([/"},
			shouldError: true,
			errorMsg:    "invalid pattern",
		},
		{
			name:        "Capture without name",
			payload:     map[string]any{"command": "true", "setVariables": []any{map[string]any{"regex": "x"}}},
			shouldError: true,
			errorMsg:    "must define 'name'",
		},
		{
			name:        "Unknown overwrite policy",
			payload:     map[string]any{"command": "true", "path": "out.txt", "overwrite": "sometimes"},
			shouldError: true,
			errorMsg:    "'overwrite' must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := &runners.ShellRunner{StepCtx: newStepCtx("runShell", tt.payload)}
			err := sh.Validate()

			if tt.shouldError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShellRunner_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}
	if testing.Short() {
		t.Skip("Skipping shell execution tests in short mode")
	}

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus types.Status
		wantDesc   string
	}{
		{
			name:       "Exit zero passes",
			payload:    map[string]any{"command": "exit 0", "exitCodes": []any{0}},
			wantStatus: types.StatusPass,
		},
		{
			name:       "Unexpected exit code fails",
			payload:    map[string]any{"command": "exit 1", "exitCodes": []any{0}},
			wantStatus: types.StatusFail,
			wantDesc:   "Returned exit code 1. Expected one of [0].",
		},
		{
			name:       "Expected non-zero exit code passes",
			payload:    map[string]any{"command": "exit 1", "exitCodes": []any{1}},
			wantStatus: types.StatusPass,
		},
		{
			name:       "Literal output found",
			payload:    map[string]any{"command": "echo hello world", "output": "lo wor"},
			wantStatus: types.StatusPass,
		},
		{
			name:       "Regex output found on stderr",
			payload:    map[string]any{"command": "echo oops 42 >&2", "output": "/oops [0-9]+/"},
			wantStatus: types.StatusPass,
		},
		{
			name:       "Output missing fails",
			payload:    map[string]any{"command": "echo hello", "output": "goodbye"},
			wantStatus: types.StatusFail,
			wantDesc:   "Couldn't find expected output",
		},
		{
			name:       "Timeout fails",
			payload:    map[string]any{"command": "sleep 5", "timeout": 100},
			wantStatus: types.StatusFail,
			wantDesc:   "timed out after 100ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := &runners.ShellRunner{StepCtx: newStepCtx("runShell", tt.payload)}
			require.NoError(t, sh.Validate())

			result := sh.Run(context.Background())
			assert.Equal(t, tt.wantStatus, result.Status, result.Description)
			if tt.wantDesc != "" {
				assert.Contains(t, result.Description, tt.wantDesc)
			}
		})
	}
}

func TestShellRunner_OutputsAndVariables(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}

	ctx := newStepCtx("runShell", map[string]any{
		"command": `echo '{"token":"abc-123","count":2}'`,
		"setVariables": []any{
			map[string]any{"name": "TOKEN", "regex": `"token":"([^"]+)"`},
			map[string]any{"name": "COUNT", "path": "json.count"},
		},
	})
	sh := &runners.ShellRunner{StepCtx: ctx}
	require.NoError(t, sh.Validate())

	result := sh.Run(context.Background())
	require.Equal(t, types.StatusPass, result.Status, result.Description)
	assert.Equal(t, 0, result.Outputs["exitCode"])
	assert.Equal(t, map[string]any{"token": "abc-123", "count": float64(2)}, result.Outputs["json"])

	token, ok := ctx.Vars.Get("TOKEN")
	require.True(t, ok)
	assert.Equal(t, "abc-123", token)
	count, ok := ctx.Vars.Get("COUNT")
	require.True(t, ok)
	assert.Equal(t, "2", count)
}

func TestShellRunner_PersistsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	run := func(command string, extra map[string]any) types.StepResult {
		payload := map[string]any{"command": command, "path": path, "maxVariation": 0.1}
		for k, v := range extra {
			payload[k] = v
		}
		sh := &runners.ShellRunner{StepCtx: newStepCtx("runShell", payload)}
		require.NoError(t, sh.Validate())
		return sh.Run(context.Background())
	}

	first := run("echo aaaaaaaaaa", nil)
	assert.Equal(t, types.StatusPass, first.Status, first.Description)
	assertFile(t, path, "aaaaaaaaaa")

	within := run("echo aaaaaaaaab", nil)
	assert.Equal(t, types.StatusPass, within.Status, within.Description)
	assertFile(t, path, "aaaaaaaaaa")

	beyondKept := run("echo bbbbbbbbbb", nil)
	assert.Equal(t, types.StatusWarning, beyondKept.Status, beyondKept.Description)
	assertFile(t, path, "aaaaaaaaaa")

	beyondReplaced := run("echo bbbbbbbbbb", map[string]any{"overwrite": "byVariation"})
	assert.Equal(t, types.StatusWarning, beyondReplaced.Status, beyondReplaced.Description)
	assertFile(t, path, "bbbbbbbbbb")

	forced := run("echo bbbbbbbbbc", map[string]any{"overwrite": true})
	assert.Equal(t, types.StatusPass, forced.Status, forced.Description)
	assertFile(t, path, "bbbbbbbbbc")
}

func assertFile(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestCodeRunner(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus types.Status
		wantDesc   string
	}{
		{
			name:       "output matches",
			payload:    map[string]any{"language": "bash", "code": "echo ran from $0", "output": "/ran from .*\\.sh/"},
			wantStatus: types.StatusPass,
		},
		{
			name:       "exit code checked",
			payload:    map[string]any{"language": "bash", "code": "exit 3", "exitCodes": []any{0}},
			wantStatus: types.StatusFail,
			wantDesc:   "Returned exit code 3",
		},
		{
			name:       "unsupported language",
			payload:    map[string]any{"language": "cobol", "code": "DISPLAY 'HI'"},
			wantStatus: types.StatusFail,
			wantDesc:   "unsupported language",
		},
		{
			name:       "command is rejected",
			payload:    map[string]any{"language": "bash", "code": "true", "command": "ls"},
			wantStatus: types.StatusFail,
			wantDesc:   "must not define 'command'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := steprunner.Dispatch(context.Background(), newStepCtx("runCode", tt.payload))
			assert.Equal(t, tt.wantStatus, result.Status, result.Description)
			if tt.wantDesc != "" {
				assert.Contains(t, result.Description, tt.wantDesc)
			}
		})
	}
}
