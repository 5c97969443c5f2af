package handlers

import (
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonr-io/keybridge/engine"
)

// Metrics holds the Prometheus metrics of the bridge.
type Metrics struct {
	CallsTotal        *prometheus.CounterVec
	CallDuration      *prometheus.HistogramVec
	ConnectionsTotal  *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the bridge metrics and registers them on reg. A nil
// reg uses a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keybridge_engine_calls_total",
				Help: "Engine calls served, by function and status",
			},
			[]string{"fn", "status"},
		),

		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keybridge_engine_call_duration_seconds",
				Help:    "Engine call latency distribution",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"fn"},
		),

		ConnectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keybridge_engine_connections_total",
				Help: "Engine websocket connections, by result",
			},
			[]string{"result"},
		),

		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "keybridge_engine_connections_active",
				Help: "Currently open engine websocket connections",
			},
		),

		gatherer: reg,
	}
}

// Observer records each engine call. Unknown function names share one
// label value.
func (m *Metrics) Observer() engine.Observer {
	return func(fn string, elapsed time.Duration, err error) {
		if !slices.Contains(engine.Functions, fn) {
			fn = "unknown"
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.CallsTotal.WithLabelValues(fn, status).Inc()
		m.CallDuration.WithLabelValues(fn).Observe(elapsed.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
