package metricstest

import (
	"testing"
	"testing/synctest"
	"time"
)

func TestMockMetrics(t *testing.T) {
	m := &MockMetrics{}

	t.Run("test-measure-since", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			key := "test-measure-since"
			start := time.Now()
			time.Sleep(2 * time.Second)
			m.MeasureSince(key, start)

			if a, ok := m.Timer(key); !ok {
				t.Fatalf("Failed to find measure %q", key)
			} else if len(a) != 1 || a[0] != 2*time.Second {
				t.Fatalf("Failed to have one measurement of 2s, got: %v", a)
			}
		})
	})

	t.Run("test-inc-counter", func(t *testing.T) {
		key := "test-inc-counter"
		m.IncCounter(key)
		m.IncCounter(key)
		if i, ok := m.Counter(key); !ok {
			t.Fatalf("Failed to find counter %q", key)
		} else if i != 2 {
			t.Fatalf("Failed to get the right value after inc: %d", i)
		}
	})

	t.Run("test-dispatch", func(t *testing.T) {
		m.IncDispatch("fast")
		if i, ok := m.Counter("dispatch.fast"); !ok || i != 1 {
			t.Fatalf("Failed to get the right dispatch count: %d", i)
		}

		m.IncBinderFallback("r1")
		if i, ok := m.Counter("binderfallback.r1"); !ok || i != 1 {
			t.Fatalf("Failed to get the right fallback count: %d", i)
		}
	})

	t.Run("test-invalid-route", func(t *testing.T) {
		routeID := "my-route"
		m.SetInvalidRoute(routeID, "foo")

		if r, ok := m.InvalidRoute(routeID); !ok || r != "foo" {
			t.Fatalf("Failed to find invalid route %q: %q", routeID, r)
		}

		m.DeleteInvalidRoute(routeID)
		if _, ok := m.InvalidRoute(routeID); ok {
			t.Fatalf("Failed to delete invalid route %q", routeID)
		}
	})

	t.Run("test-gauge", func(t *testing.T) {
		key := "my-gauge"

		m.UpdateGauge(key, 5.4)

		if f, ok := m.Gauge(key); !ok {
			t.Fatalf("Failed to find value %q", key)
		} else if f != 5.4 {
			t.Fatalf("Failed to get the right value: %0.2f", f)
		}
	})
}
