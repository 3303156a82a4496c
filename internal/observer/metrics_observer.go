package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver exports session events as Prometheus metrics
type MetricsObserver struct {
	events      *prometheus.CounterVec
	predictions *prometheus.CounterVec
	latency     prometheus.Histogram
}

// NewMetricsObserver creates a metrics observer and registers its collectors with reg
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slc",
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event_type"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slc",
			Name:      "predictions_total",
			Help:      "Finished prediction requests by source and outcome.",
		}, []string{"source", "outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slc",
			Name:      "prediction_duration_seconds",
			Help:      "Round-trip time of prediction requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(o.events, o.predictions, o.latency)
	return o
}

// OnEvent handles session events by updating metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SessionEvent) {
	o.events.WithLabelValues(string(event.EventType)).Inc()

	switch event.EventType {
	case PredictionCompleted:
		o.predictions.WithLabelValues(event.Source, "success").Inc()
		o.latency.Observe(event.Duration.Seconds())
	case PredictionFailed:
		o.predictions.WithLabelValues(event.Source, "error").Inc()
		o.latency.Observe(event.Duration.Seconds())
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
