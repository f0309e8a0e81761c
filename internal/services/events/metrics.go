package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsPublisher counts events by type and outcome
type MetricsPublisher struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetricsPublisher registers the session counters on reg
func NewMetricsPublisher(reg prometheus.Registerer) (*MetricsPublisher, error) {
	p := &MetricsPublisher{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Session lifecycle events by type and outcome.",
		}, []string{"type", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_rotate_failures_total",
			Help: "Failed refresh token rotations by kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{p.events, p.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *MetricsPublisher) Publish(_ context.Context, event Event) {
	p.events.WithLabelValues(event.Type, event.Outcome).Inc()
	if event.Type == TokenRotateFailed && event.Kind != "" {
		p.failures.WithLabelValues(event.Kind).Inc()
	}
}
