package retryability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeOK = "ok"

// Metrics holds the reconstruction Prometheus metrics.
type Metrics struct {
	reconstructions *prometheus.CounterVec
	lookupDuration  *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them on reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reconstructions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrywrites_reconstructions_total",
				Help: "Total number of retried writes reconstructed, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		lookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrywrites_image_lookup_seconds",
				Help:    "Duration of pre/post-image lookups in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"found"},
		),
	}
}

// observeReconstruction records one reconstruction. The outcome label is the
// error code, "ok", or "error" for lookup failures that carry no code.
func (m *Metrics) observeReconstruction(command CommandKind, err error) {
	if m == nil {
		return
	}
	m.reconstructions.WithLabelValues(string(command), outcomeLabel(err)).Inc()
}

func (m *Metrics) observeLookup(d time.Duration, found bool, err error) {
	if m == nil {
		return
	}
	label := "true"
	switch {
	case err != nil:
		label = "error"
	case !found:
		label = "false"
	}
	m.lookupDuration.WithLabelValues(label).Observe(d.Seconds())
}

func outcomeLabel(err error) string {
	if err == nil {
		return outcomeOK
	}
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
