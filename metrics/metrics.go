package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind selects the metrics backend.
type Kind int

const (
	UnknownKind Kind = iota
	CodaHaleKind
	PrometheusKind
	AllKind
)

// Serving paths of a request, used as the dispatch metrics keys.
const (
	DispatchFast = "fast"
	DispatchSlow = "slow"
	DispatchNone = "none"
)

func (k Kind) String() string {
	switch k {
	case AllKind:
		return "all"
	case CodaHaleKind:
		return "codahale"
	case PrometheusKind:
		return "prometheus"
	default:
		return "unknown"
	}
}

// ParseMetricsKind parses the name of a metrics backend. Empty and
// unknown names default to CodaHale.
func ParseMetricsKind(t string) Kind {
	switch strings.ToLower(t) {
	case "all":
		return AllKind
	case "prometheus":
		return PrometheusKind
	default:
		return CodaHaleKind
	}
}

// Options for initializing metrics collection.
type Options struct {
	// the metrics exposing format
	Format Kind

	// Common prefix for the keys of the different collected metrics.
	Prefix string

	// If set, garbage collector metrics are collected in addition to
	// the http traffic metrics.
	EnableDebugGcMetrics bool

	// If set, Go runtime metrics are collected in addition to the http
	// traffic metrics.
	EnableRuntimeMetrics bool

	// If set, the serve metrics are collected per route, otherwise only
	// combined.
	EnableServeRouteMetrics bool

	// Sample timers with an exponentially decaying reservoir instead of
	// a uniform one. Only used by the CodaHale backend.
	UseExpDecaySample bool

	// Histogram buckets of the Prometheus backend. Defaults to
	// prometheus.DefBuckets.
	HistogramBuckets []float64
}

// Metrics is the generic interface that all the required backends
// should implement.
type Metrics interface {
	MeasureSince(key string, start time.Time)
	IncCounter(key string)
	UpdateGauge(key string, value float64)

	// MeasureRouteLookup measures the time of finding the route of a
	// request, including the evaluation of the short-circuit plan.
	MeasureRouteLookup(start time.Time)

	// IncDispatch counts the requests by the path that served them:
	// fast, slow, or none when no route matched.
	IncDispatch(path string)

	// IncBinderFallback counts the requests matched by the fast path
	// that needed to fall back to the general binding.
	IncBinderFallback(routeID string)

	MeasureServe(routeID, method string, code int, start time.Time)
	SetInvalidRoute(routeID, reason string)
	DeleteInvalidRoute(routeID string)
	RegisterHandler(path string, mux *http.ServeMux)
	Close()
}

var (
	// Void discards all the measurements.
	Void Metrics = NewVoid()

	// Default is used when no metrics backend was configured.
	Default = Void
)

// NewMetrics creates the metrics backend selected by the options.
func NewMetrics(o Options) Metrics {
	switch o.Format {
	case AllKind:
		return NewAll(o)
	case PrometheusKind:
		return NewPrometheus(o)
	default:
		return NewCodaHale(o)
	}
}

// NewHandler returns a collection of metrics handlers, serving the
// metrics of the backend under the provided path.
func NewHandler(path string, m Metrics) http.Handler {
	mux := http.NewServeMux()
	m.RegisterHandler(path, mux)
	return mux
}

func serveRouteKey(routeID, method string, code int) string {
	return fmt.Sprintf(KeyServeRoute, routeID, measuredMethod(method), code)
}

var measuredMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// non-standard methods are measured under a single key, to keep the
// number of the keys bounded
func measuredMethod(m string) string {
	if measuredMethods[m] {
		return m
	}

	return "_unknownmethod_"
}
