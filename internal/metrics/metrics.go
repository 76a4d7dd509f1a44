package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "charging_station_"

// Metrics bundles the station's prometheus collectors.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionsStopped prometheus.Counter
	SessionSeconds  prometheus.Histogram
	SessionCost     prometheus.Counter
	UpstreamErrors  *prometheus.CounterVec
}

// New registers the station collectors on the given registerer (defaults
// to the global registry when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "sessions_started_total",
			Help: "Charging sessions opened by an accepted credential",
		}),
		SessionsStopped: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "sessions_stopped_total",
			Help: "Charging sessions closed",
		}),
		SessionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "session_duration_seconds",
			Help:    "Length of completed charging sessions",
			Buckets: prometheus.ExponentialBuckets(30, 2, 12),
		}),
		SessionCost: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "session_cost_total",
			Help: "Accumulated cost of completed sessions",
		}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "upstream_errors_total",
			Help: "Billing backend call failures by operation",
		}, []string{"operation"}),
	}
}
