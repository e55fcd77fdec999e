// Package telemetry turns dashboard events into Prometheus metrics and log
// lines.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// Prometheus implements dashboard.Telemetry with a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	storeWrites    *prometheus.CounterVec
	writeDuration  prometheus.Histogram
	datasetErrors  *prometheus.CounterVec
	corruptWidgets prometheus.Counter
}

var _ dashboard.Telemetry = (*Prometheus)(nil)

// NewPrometheus registers the dashboard collectors on a new registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportboard_events_total",
				Help: "Total number of dashboard events",
			},
			[]string{"event"},
		),
		storeWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportboard_store_writes_total",
				Help: "Total number of layout store writes",
			},
			[]string{"result"}, // success/failure
		),
		writeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reportboard_store_write_duration_seconds",
				Help:    "Layout store write duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		datasetErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportboard_dataset_errors_total",
				Help: "Total number of failed dataset fetches",
			},
			[]string{"data_source"},
		),
		corruptWidgets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reportboard_corrupted_widgets_total",
				Help: "Total number of rendered widgets whose report was missing",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Record implements dashboard.Telemetry.
func (p *Prometheus) Record(_ context.Context, event string, payload map[string]any) {
	p.events.WithLabelValues(event).Inc()
	switch event {
	case dashboard.EventWriteSuccess:
		p.storeWrites.WithLabelValues("success").Inc()
		p.observeElapsed(payload)
	case dashboard.EventWriteFailure:
		p.storeWrites.WithLabelValues("failure").Inc()
		p.observeElapsed(payload)
	case dashboard.EventDatasetFailure:
		source, _ := payload["data_source"].(string)
		p.datasetErrors.WithLabelValues(source).Inc()
	case dashboard.EventWidgetCorrupted:
		p.corruptWidgets.Inc()
	}
}

func (p *Prometheus) observeElapsed(payload map[string]any) {
	if elapsed, ok := payload["elapsed"].(time.Duration); ok {
		p.writeDuration.Observe(elapsed.Seconds())
	}
}

// Logger writes every event at debug level.
type Logger struct {
	logger *zap.Logger
}

// NewLogger builds a logging sink.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// Record implements dashboard.Telemetry.
func (l *Logger) Record(_ context.Context, event string, payload map[string]any) {
	l.logger.Debug("dashboard event", zap.String("event", event), zap.Any("payload", payload))
}

// Multi fans events out to every sink.
type Multi []dashboard.Telemetry

// Record implements dashboard.Telemetry.
func (m Multi) Record(ctx context.Context, event string, payload map[string]any) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(ctx, event, payload)
		}
	}
}
