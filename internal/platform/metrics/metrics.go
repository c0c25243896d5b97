package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "route_engine"

// Metrics holds the service's Prometheus collectors.
//
// All Record methods are safe on a nil *Metrics, so components can be
// built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RoutesGenerated *prometheus.CounterVec
	RouteEstimates  *prometheus.CounterVec
	GeocodeLookups  *prometheus.CounterVec
	OptimizerCalls  *prometheus.CounterVec
	OptimizerState  prometheus.Gauge
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	m.RoutesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_generated_total",
			Help:      "Routes created, by creation mode",
		},
		[]string{"mode"},
	)

	m.RouteEstimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_estimates_total",
			Help:      "Route distance/time estimates, by the strategy that produced them",
		},
		[]string{"source"},
	)

	m.GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Geocode lookups, by outcome",
		},
		[]string{"outcome"},
	)

	m.OptimizerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_calls_total",
			Help:      "External route optimizer calls, by outcome",
		},
		[]string{"outcome"},
	)

	m.OptimizerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "optimizer_circuit_state",
			Help:      "Optimizer circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RoutesGenerated,
		m.RouteEstimates,
		m.GeocodeLookups,
		m.OptimizerCalls,
		m.OptimizerState,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordRoutes(mode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RoutesGenerated.WithLabelValues(mode).Add(float64(n))
}

func (m *Metrics) RecordEstimate(source string) {
	if m == nil {
		return
	}
	m.RouteEstimates.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordGeocode(outcome string) {
	if m == nil {
		return
	}
	m.GeocodeLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordOptimizerCall(outcome string) {
	if m == nil {
		return
	}
	m.OptimizerCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetOptimizerState(state int) {
	if m == nil {
		return
	}
	m.OptimizerState.Set(float64(state))
}
