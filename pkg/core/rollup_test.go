package core_test

import (
	"testing"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestRollup(t *testing.T) {
	const (
		pass = types.StatusPass
		fail = types.StatusFail
		warn = types.StatusWarning
		skip = types.StatusSkipped
	)

	tests := []struct {
		name     string
		statuses []types.Status
		want     types.Status
	}{
		{name: "empty", statuses: nil, want: skip},
		{name: "all pass", statuses: []types.Status{pass, pass}, want: pass},
		{name: "fail wins", statuses: []types.Status{pass, warn, fail, skip}, want: fail},
		{name: "warning beats pass", statuses: []types.Status{pass, warn}, want: warn},
		{name: "warning beats skipped", statuses: []types.Status{skip, warn}, want: warn},
		{name: "all skipped", statuses: []types.Status{skip, skip}, want: skip},
		{name: "pass with some skipped", statuses: []types.Status{skip, pass, skip}, want: pass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.Rollup(tt.statuses...))
		})
	}
}

func TestRollup_OrderIndependent(t *testing.T) {
	statuses := []types.Status{types.StatusSkipped, types.StatusPass, types.StatusWarning}
	want := core.Rollup(statuses...)
	for i := range statuses {
		rotated := append(append([]types.Status{}, statuses[i:]...), statuses[:i]...)
		assert.Equal(t, want, core.Rollup(rotated...))
	}
}
