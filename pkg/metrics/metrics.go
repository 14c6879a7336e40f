package metrics

import (
	"time"

	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsNamespace = "specrun"

// Recorder mirrors run results into Prometheus metrics.
type Recorder struct {
	resultsTotal *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewRecorder registers the run metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		resultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "results_total",
			Help:      "Count of results by level and status",
		}, []string{
			"level",
			"status",
		}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of steps by action and status",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{
			"action",
			"status",
		}),
	}
}

func (r *Recorder) ObserveResult(level string, status types.Status) {
	r.resultsTotal.WithLabelValues(level, status.String()).Inc()
}

func (r *Recorder) ObserveStep(action string, status types.Status, elapsed time.Duration) {
	r.stepDuration.WithLabelValues(action, status.String()).Observe(elapsed.Seconds())
}
