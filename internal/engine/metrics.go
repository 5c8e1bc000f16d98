package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the engine does. With a nil registerer the metrics
// still work but are not exported.
type Metrics struct {
	Gestures     *prometheus.CounterVec
	Commits      prometheus.Counter
	Updates      *prometheus.CounterVec
	UpdateErrors *prometheus.CounterVec
	Selected     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Gestures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkview",
			Name:      "gestures_total",
			Help:      "Brush gesture events received, by view and phase.",
		}, []string{"view", "phase"}),
		Commits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "linkview",
			Name:      "selection_commits_total",
			Help:      "Selections committed to the shared state.",
		}),
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkview",
			Name:      "view_updates_total",
			Help:      "View updates run after a state change.",
		}, []string{"view"}),
		UpdateErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkview",
			Name:      "view_update_errors_total",
			Help:      "View updates that kept the previous drawing.",
		}, []string{"view"}),
		Selected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "linkview",
			Name:      "selected_records",
			Help:      "Records in the current selection.",
		}),
	}
}
