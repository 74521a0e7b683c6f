package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace         = "fastlane"
	promRouteSubsystem    = "route"
	promDispatchSubsystem = "dispatch"
	promBinderSubsystem   = "binder"
	promServeSubsystem    = "serve"
	promCustomSubsystem   = "custom"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	routeLookupM     *prometheus.HistogramVec
	routeInvalidM    *prometheus.GaugeVec
	dispatchM        *prometheus.CounterVec
	binderFallbackM  *prometheus.CounterVec
	serveM           *prometheus.HistogramVec
	serveRouteM      *prometheus.HistogramVec
	customHistogramM *prometheus.HistogramVec
	customCounterM   *prometheus.CounterVec
	customGaugeM     *prometheus.GaugeVec

	opts     Options
	registry *prometheus.Registry
	handler  http.Handler
}

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	buckets := opts.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	routeLookup := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promRouteSubsystem,
		Name:      "lookup_duration_seconds",
		Help:      "Duration in seconds of a route lookup.",
		Buckets:   buckets,
	}, []string{})

	routeInvalid := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: promRouteSubsystem,
		Name:      "invalid",
		Help:      "Route definitions rejected by the routing, by reason.",
	}, []string{"route_id", "reason"})

	dispatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promDispatchSubsystem,
		Name:      "total",
		Help:      "Total number of requests by serving path.",
	}, []string{"path"})

	binderFallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promBinderSubsystem,
		Name:      "fallback_total",
		Help:      "Total number of fast path matches falling back to the general binding.",
	}, []string{"route"})

	serve := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promServeSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of serving a request.",
		Buckets:   buckets,
	}, []string{"code", "method"})

	serveRoute := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promServeSubsystem,
		Name:      "route_duration_seconds",
		Help:      "Duration in seconds of serving a route.",
		Buckets:   buckets,
	}, []string{"code", "method", "route"})

	customCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promCustomSubsystem,
		Name:      "total",
		Help:      "Total number of custom metrics.",
	}, []string{"key"})

	customGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: promCustomSubsystem,
		Name:      "gauges",
		Help:      "Gauges number of custom metrics.",
	}, []string{"key"})

	customHistogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promCustomSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of custom metrics.",
		Buckets:   buckets,
	}, []string{"key"})

	p := &Prometheus{
		routeLookupM:     routeLookup,
		routeInvalidM:    routeInvalid,
		dispatchM:        dispatch,
		binderFallbackM:  binderFallback,
		serveM:           serve,
		serveRouteM:      serveRoute,
		customCounterM:   customCounter,
		customGaugeM:     customGauge,
		customHistogramM: customHistogram,

		registry: prometheus.NewRegistry(),
		opts:     opts,
	}

	p.registerMetrics()
	return p
}

// sinceS returns the seconds passed since the start time until now.
func (p *Prometheus) sinceS(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.routeLookupM)
	p.registry.MustRegister(p.routeInvalidM)
	p.registry.MustRegister(p.dispatchM)
	p.registry.MustRegister(p.binderFallbackM)
	p.registry.MustRegister(p.serveM)
	p.registry.MustRegister(p.serveRouteM)
	p.registry.MustRegister(p.customCounterM)
	p.registry.MustRegister(p.customHistogramM)
	p.registry.MustRegister(p.customGaugeM)

	// Register prometheus runtime collectors if required.
	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

func (p *Prometheus) CreateHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) getHandler() http.Handler {
	if p.handler != nil {
		return p.handler
	}

	p.handler = p.CreateHandler()
	return p.handler
}

// RegisterHandler satisfies Metrics interface.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.getHandler())
}

// MeasureSince satisfies Metrics interface.
func (p *Prometheus) MeasureSince(key string, start time.Time) {
	p.customHistogramM.WithLabelValues(key).Observe(p.sinceS(start))
}

// IncCounter satisfies Metrics interface.
func (p *Prometheus) IncCounter(key string) {
	p.customCounterM.WithLabelValues(key).Inc()
}

// UpdateGauge satisfies Metrics interface.
func (p *Prometheus) UpdateGauge(key string, v float64) {
	p.customGaugeM.WithLabelValues(key).Set(v)
}

// MeasureRouteLookup satisfies Metrics interface.
func (p *Prometheus) MeasureRouteLookup(start time.Time) {
	p.routeLookupM.WithLabelValues().Observe(p.sinceS(start))
}

// IncDispatch satisfies Metrics interface.
func (p *Prometheus) IncDispatch(path string) {
	p.dispatchM.WithLabelValues(path).Inc()
}

// IncBinderFallback satisfies Metrics interface.
func (p *Prometheus) IncBinderFallback(routeID string) {
	p.binderFallbackM.WithLabelValues(routeID).Inc()
}

// MeasureServe satisfies Metrics interface.
func (p *Prometheus) MeasureServe(routeID, method string, code int, start time.Time) {
	method = measuredMethod(method)
	t := p.sinceS(start)
	p.serveM.WithLabelValues(fmt.Sprint(code), method).Observe(t)
	if p.opts.EnableServeRouteMetrics {
		p.serveRouteM.WithLabelValues(fmt.Sprint(code), method, routeID).Observe(t)
	}
}

// SetInvalidRoute satisfies Metrics interface.
func (p *Prometheus) SetInvalidRoute(routeID, reason string) {
	p.routeInvalidM.DeletePartialMatch(prometheus.Labels{"route_id": routeID})
	p.routeInvalidM.WithLabelValues(routeID, reason).Set(1)
}

// DeleteInvalidRoute satisfies Metrics interface.
func (p *Prometheus) DeleteInvalidRoute(routeID string) {
	p.routeInvalidM.DeletePartialMatch(prometheus.Labels{"route_id": routeID})
}

func (p *Prometheus) Close() {}
