package metrics_test

import (
	"testing"
	"time"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/metrics"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	var rec core.ResultObserver = metrics.NewRecorder(reg)

	rec.ObserveResult(core.LevelStep, types.StatusPass)
	rec.ObserveResult(core.LevelStep, types.StatusPass)
	rec.ObserveResult(core.LevelStep, types.StatusFail)
	rec.ObserveResult(core.LevelSpec, types.StatusFail)
	rec.ObserveStep("wait", types.StatusPass, 20*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "specrun_results_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, l := range m.GetLabel() {
				key += l.GetValue() + "/"
			}
			counts[key] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"step/PASS/": 2,
		"step/FAIL/": 1,
		"spec/FAIL/": 1,
	}, counts)

	series, err := testutil.GatherAndCount(reg, "specrun_results_total", "specrun_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, series)
}
