package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
)

const (
	KeyRouteLookup     = "routelookup"
	KeyDispatch        = "dispatch.%s"
	KeyBinderFallback  = "binderfallback.%s"
	KeyBinderFallbacks = "all.binderfallback"
	KeyServeRoute      = "serveroute.%s.%s.%d"
	KeyServeCombined   = "all.serve"
	KeyInvalidRoutes   = "route.invalid.%s"

	statsRefreshDuration = time.Duration(5 * time.Second)

	defaultUniformReservoirSize  = 1024
	defaultExpDecayReservoirSize = 1028
	defaultExpDecayAlpha         = 0.015
)

// CodaHale is the CodaHale format backend, implements Metrics interface in DropWizard's CodaHale metrics format.
type CodaHale struct {
	reg           metrics.Registry
	createTimer   func() metrics.Timer
	createCounter func() metrics.Counter
	createGauge   func() metrics.GaugeFloat64
	options       Options
	handler       http.Handler

	mu            sync.Mutex
	invalidRoutes map[string]string
	quit          chan struct{}
}

// NewCodaHale returns a new CodaHale backend of metrics.
func NewCodaHale(o Options) *CodaHale {
	c := &CodaHale{}
	c.reg = metrics.NewRegistry()

	c.createTimer = func() metrics.Timer {
		sample := metrics.NewUniformSample(defaultUniformReservoirSize)
		if o.UseExpDecaySample {
			sample = metrics.NewExpDecaySample(defaultExpDecayReservoirSize, defaultExpDecayAlpha)
		}

		return metrics.NewCustomTimer(metrics.NewHistogram(sample), metrics.NewMeter())
	}

	c.createCounter = metrics.NewCounter
	c.createGauge = metrics.NewGaugeFloat64
	c.options = o
	c.invalidRoutes = make(map[string]string)
	c.quit = make(chan struct{})

	if o.EnableDebugGcMetrics {
		metrics.RegisterDebugGCStats(c.reg)
		go c.collectStats(func() { metrics.CaptureDebugGCStatsOnce(c.reg) })
	}

	if o.EnableRuntimeMetrics {
		metrics.RegisterRuntimeMemStats(c.reg)
		go c.collectStats(func() { metrics.CaptureRuntimeMemStatsOnce(c.reg) })
	}

	return c
}

// NewVoid returns a CodaHale backend that discards all the
// measurements.
func NewVoid() *CodaHale {
	c := &CodaHale{}
	c.reg = metrics.NewRegistry()
	c.createTimer = func() metrics.Timer { return metrics.NilTimer{} }
	c.createCounter = func() metrics.Counter { return metrics.NilCounter{} }
	c.createGauge = func() metrics.GaugeFloat64 { return metrics.NilGaugeFloat64{} }
	c.invalidRoutes = make(map[string]string)
	c.quit = make(chan struct{})
	return c
}

func (c *CodaHale) collectStats(capture func()) {
	ticker := time.NewTicker(statsRefreshDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			capture()
		case <-c.quit:
			return
		}
	}
}

func (c *CodaHale) getTimer(key string) metrics.Timer {
	return c.reg.GetOrRegister(key, c.createTimer).(metrics.Timer)
}

func (c *CodaHale) updateTimer(key string, d time.Duration) {
	if t := c.getTimer(key); t != nil {
		t.Update(d)
	}
}

func (c *CodaHale) MeasureSince(key string, start time.Time) {
	c.measureSince(key, start)
}

func (c *CodaHale) getGauge(key string) metrics.GaugeFloat64 {
	return c.reg.GetOrRegister(key, c.createGauge).(metrics.GaugeFloat64)
}

func (c *CodaHale) UpdateGauge(key string, v float64) {
	if t := c.getGauge(key); t != nil {
		t.Update(v)
	}
}

func (c *CodaHale) IncCounter(key string) {
	c.incCounter(key, 1)
}

func (c *CodaHale) measureSince(key string, start time.Time) {
	c.updateTimer(key, time.Since(start))
}

func (c *CodaHale) MeasureRouteLookup(start time.Time) {
	c.measureSince(KeyRouteLookup, start)
}

func (c *CodaHale) IncDispatch(path string) {
	c.incCounter(fmt.Sprintf(KeyDispatch, path), 1)
}

func (c *CodaHale) IncBinderFallback(routeID string) {
	c.incCounter(KeyBinderFallbacks, 1)
	c.incCounter(fmt.Sprintf(KeyBinderFallback, routeID), 1)
}

func (c *CodaHale) MeasureServe(routeID, method string, code int, start time.Time) {
	c.measureSince(KeyServeCombined, start)
	if c.options.EnableServeRouteMetrics {
		c.measureSince(serveRouteKey(routeID, method, code), start)
	}
}

func (c *CodaHale) getCounter(key string) metrics.Counter {
	return c.reg.GetOrRegister(key, c.createCounter).(metrics.Counter)
}

func (c *CodaHale) incCounter(key string, value int64) {
	if c := c.getCounter(key); c != nil {
		c.Inc(value)
	}
}

// updates the invalid route gauges of all the reasons, expects the
// mutex locked
func (c *CodaHale) updateInvalidRoutes(reasons ...string) {
	counts := make(map[string]int)
	for _, r := range c.invalidRoutes {
		counts[r]++
	}

	for _, r := range reasons {
		c.UpdateGauge(fmt.Sprintf(KeyInvalidRoutes, r), float64(counts[r]))
	}
}

func (c *CodaHale) SetInvalidRoute(routeID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous, had := c.invalidRoutes[routeID]
	c.invalidRoutes[routeID] = reason
	if had && previous != reason {
		c.updateInvalidRoutes(previous, reason)
		return
	}

	c.updateInvalidRoutes(reason)
}

func (c *CodaHale) DeleteInvalidRoute(routeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reason, had := c.invalidRoutes[routeID]
	if !had {
		return
	}

	delete(c.invalidRoutes, routeID)
	c.updateInvalidRoutes(reason)
}

func (c *CodaHale) RegisterHandler(path string, handler *http.ServeMux) {
	h := c.getHandler(path)
	handler.Handle(path, h)
}

func (c *CodaHale) CreateHandler(path string) http.Handler {
	return &codaHaleMetricsHandler{path: path, registry: c.reg, options: c.options}
}

func (c *CodaHale) getHandler(path string) http.Handler {
	if c.handler != nil {
		return c.handler
	}

	c.handler = c.CreateHandler(path)
	return c.handler
}

// Close stops collecting the runtime statistics.
func (c *CodaHale) Close() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
}

type codaHaleMetricsHandler struct {
	path     string
	registry metrics.Registry
	options  Options
}

// serves all the metrics, or the ones selected by the last path
// segment, as a key or a key prefix
func (c *codaHaleMetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" && r.Method != "HEAD" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, key := path.Split(strings.TrimPrefix(r.URL.Path, c.path))
	selected := filterMetrics(c.registry, c.options.Prefix, key)
	if len(selected) == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(selected)
}

func filterMetrics(reg metrics.Registry, prefix, key string) codaHaleMetrics {
	selected := make(codaHaleMetrics)
	canonicalKey := strings.TrimPrefix(key, prefix)
	if m := reg.Get(canonicalKey); m != nil {
		selected[key] = m
		return selected
	}

	reg.Each(func(name string, i interface{}) {
		if strings.HasPrefix(name, canonicalKey) {
			selected[prefix+name] = i
		}
	})

	return selected
}

var (
	percentiles     = []float64{0.5, 0.75, 0.95, 0.99, 0.999}
	percentileNames = []string{"median", "75%", "95%", "99%", "99.9%"}
)

type distribution interface {
	Count() int64
	Min() int64
	Max() int64
	Mean() float64
	StdDev() float64
	Percentiles([]float64) []float64
}

func distributionValues(d distribution) map[string]interface{} {
	values := map[string]interface{}{
		"count":  d.Count(),
		"min":    d.Min(),
		"max":    d.Max(),
		"mean":   d.Mean(),
		"stddev": d.StdDev(),
	}

	for i, p := range d.Percentiles(percentiles) {
		values[percentileNames[i]] = p
	}

	return values
}

func metricValues(metric interface{}) (string, map[string]interface{}) {
	switch m := metric.(type) {
	case metrics.Gauge:
		return "gauges", map[string]interface{}{"value": m.Value()}
	case metrics.GaugeFloat64:
		return "gauges", map[string]interface{}{"value": m.Value()}
	case metrics.Counter:
		return "counters", map[string]interface{}{"count": m.Count()}
	case metrics.Histogram:
		return "histograms", distributionValues(m.Snapshot())
	case metrics.Timer:
		t := m.Snapshot()
		values := distributionValues(t)
		values["1m.rate"] = t.Rate1()
		values["5m.rate"] = t.Rate5()
		values["15m.rate"] = t.Rate15()
		values["mean.rate"] = t.RateMean()
		return "timers", values
	default:
		return "unknown", map[string]interface{}{"error": fmt.Sprintf("unknown metrics type %T", m)}
	}
}

type codaHaleMetrics map[string]interface{}

// MarshalJSON groups the metrics by their family: gauges, counters,
// histograms and timers.
func (sm codaHaleMetrics) MarshalJSON() ([]byte, error) {
	data := make(map[string]map[string]interface{})
	for name, metric := range sm {
		family, values := metricValues(metric)
		if data[family] == nil {
			data[family] = make(map[string]interface{})
		}

		data[family][name] = values
	}

	return json.Marshal(data)
}
