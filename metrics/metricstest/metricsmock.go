// Package metricstest provides a metrics implementation recording the
// measurements in memory, to be used in tests.
package metricstest

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zalando/fastlane/metrics"
)

type MockMetrics struct {
	Prefix string

	mu sync.Mutex

	// Metrics gathering
	counters map[string]int64
	gauges   map[string]float64
	measures map[string][]time.Duration
	Now      time.Time
}

//
// Public thread safe access to metrics
//

func (m *MockMetrics) WithCounters(f func(counters map[string]int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	f(m.counters)
}

func (m *MockMetrics) WithMeasures(f func(measures map[string][]time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.measures == nil {
		m.measures = make(map[string][]time.Duration)
	}
	f(m.measures)
}

func (m *MockMetrics) WithGauges(f func(map[string]float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gauges == nil {
		m.gauges = make(map[string]float64)
	}

	f(m.gauges)
}

//
// Interface Metrics
//

func (m *MockMetrics) MeasureSince(key string, start time.Time) {
	now := m.Now
	if now.IsZero() {
		now = time.Now()
	}

	key = m.Prefix + key
	m.WithMeasures(func(measures map[string][]time.Duration) {
		measures[key] = append(measures[key], now.Sub(start))
	})
}

func (m *MockMetrics) IncCounter(key string) {
	key = m.Prefix + key
	m.WithCounters(func(counters map[string]int64) {
		counters[key]++
	})
}

func (m *MockMetrics) UpdateGauge(key string, value float64) {
	key = m.Prefix + key
	m.WithGauges(func(g map[string]float64) {
		g[key] = value
	})
}

func (m *MockMetrics) MeasureRouteLookup(start time.Time) {
	m.MeasureSince(metrics.KeyRouteLookup, start)
}

func (m *MockMetrics) IncDispatch(path string) {
	m.IncCounter(fmt.Sprintf(metrics.KeyDispatch, path))
}

func (m *MockMetrics) IncBinderFallback(routeID string) {
	m.IncCounter(fmt.Sprintf(metrics.KeyBinderFallback, routeID))
}

func (m *MockMetrics) MeasureServe(routeID, method string, code int, start time.Time) {
	m.MeasureSince(fmt.Sprintf(metrics.KeyServeRoute, routeID, method, code), start)
}

func (m *MockMetrics) SetInvalidRoute(routeID, reason string) {
	m.DeleteInvalidRoute(routeID)
	m.UpdateGauge(fmt.Sprintf("route.invalid.%s..%s", routeID, reason), 1)
}

// DeleteInvalidRoute resets all the invalid route gauges of the route.
func (m *MockMetrics) DeleteInvalidRoute(routeID string) {
	prefix := m.Prefix + fmt.Sprintf("route.invalid.%s..", routeID)
	m.WithGauges(func(g map[string]float64) {
		for k := range g {
			if strings.HasPrefix(k, prefix) {
				g[k] = 0
			}
		}
	})
}

func (*MockMetrics) RegisterHandler(string, *http.ServeMux) {}

func (*MockMetrics) Close() {}

//
// Test access
//

func (m *MockMetrics) Counter(key string) (v int64, ok bool) {
	m.WithCounters(func(c map[string]int64) {
		v, ok = c[key]
	})

	return
}

func (m *MockMetrics) Gauge(key string) (v float64, ok bool) {
	m.WithGauges(func(g map[string]float64) {
		v, ok = g[key]
	})

	return
}

func (m *MockMetrics) Timer(key string) (d []time.Duration, ok bool) {
	m.WithMeasures(func(measures map[string][]time.Duration) {
		d, ok = measures[key]
	})

	return
}

// InvalidRoute returns the reason of an invalid route, if it is set.
func (m *MockMetrics) InvalidRoute(routeID string) (reason string, ok bool) {
	prefix := m.Prefix + fmt.Sprintf("route.invalid.%s..", routeID)
	m.WithGauges(func(g map[string]float64) {
		for k, v := range g {
			if v == 1 && strings.HasPrefix(k, prefix) {
				reason, ok = k[len(prefix):], true
				return
			}
		}
	})

	return
}
