package runners_test

import (
	"context"
	"testing"
	"time"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/steprunner/runners"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWaitDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		want     time.Duration
		wantSkip bool
		wantErr  bool
	}{
		{name: "true waits the default", value: true, want: 5000 * time.Millisecond},
		{name: "missing waits the default", value: nil, want: 5000 * time.Millisecond},
		{name: "false skips", value: false, wantSkip: true},
		{name: "integer milliseconds", value: 250, want: 250 * time.Millisecond},
		{name: "float milliseconds", value: 1.5, want: 1500 * time.Microsecond},
		{name: "numeric string", value: "2000", want: 2000 * time.Millisecond},
		{name: "padded numeric string", value: " 10 ", want: 10 * time.Millisecond},
		{name: "non-numeric string", value: "abc", wantErr: true},
		{name: "negative", value: -5, wantErr: true},
		{name: "list", value: []any{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skip, err := runners.ParseWaitDuration(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWaitRunner_ThroughDispatch(t *testing.T) {
	tests := []struct {
		name       string
		wait       any
		wantStatus types.Status
		wantDesc   string
	}{
		{name: "short wait passes", wait: 10, wantStatus: types.StatusPass, wantDesc: "Waited 10ms."},
		{name: "numeric string passes", wait: "20", wantStatus: types.StatusPass, wantDesc: "Waited 20ms."},
		{name: "false is skipped", wait: false, wantStatus: types.StatusSkipped},
		{name: "garbage fails", wait: "abc", wantStatus: types.StatusFail, wantDesc: `"abc" is not a number`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := steprunner.Dispatch(context.Background(), newStepCtx("wait", map[string]any{"wait": tt.wait}))
			assert.Equal(t, tt.wantStatus, result.Status, result.Description)
			if tt.wantDesc != "" {
				assert.Contains(t, result.Description, tt.wantDesc)
			}
		})
	}
}

func TestWaitRunner_StopsOnCancel(t *testing.T) {
	w := &runners.WaitRunner{StepCtx: newStepCtx("wait", map[string]any{"wait": 60000})}
	require.NoError(t, w.Validate())
	assert.Equal(t, time.Minute, w.Duration())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := w.Run(ctx)
	assert.Equal(t, types.StatusFail, result.Status)
}
