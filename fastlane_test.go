package fastlane

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/fastlane/backend"
	"github.com/zalando/fastlane/logging"
	"github.com/zalando/fastlane/metrics"
	"github.com/zalando/fastlane/metrics/metricstest"
	"github.com/zalando/fastlane/routesfile"
	"github.com/zalando/fastlane/routing"
	"github.com/zalando/fastlane/routing/testdataclient"
)

const (
	listenDelay   = 15 * time.Millisecond
	listenTimeout = 9 * listenDelay
	runTimeout    = time.Second
)

const testRoutes = `routes:
- id: search
  path: /search
  method: GET
  parameters:
  - name: q
    source: query
    required: true
  backend:
    type: echo
- id: health
  path: /healthz
  backend:
    type: static
    body: ok
`

func findAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func waitConn(req func() (*http.Response, error)) (*http.Response, error) {
	to := time.After(listenTimeout)
	for {
		rsp, err := req()
		if err == nil {
			return rsp, nil
		}

		select {
		case <-to:
			return nil, err
		default:
			time.Sleep(listenDelay)
		}
	}
}

func waitConnGet(url string) (*http.Response, error) {
	return waitConn(func() (*http.Response, error) {
		return http.Get(url)
	})
}

func writeRoutesFile(t *testing.T, content string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
	return name
}

func readBody(t *testing.T, rsp *http.Response) string {
	t.Helper()

	defer rsp.Body.Close()
	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	return string(b)
}

type running struct {
	cancel func()
	done   chan error
}

func run(t *testing.T, o Options) *running {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- RunWithShutdown(ctx, o) }()
	t.Cleanup(func() { r.stop(t) })
	return r
}

func (r *running) stop(t *testing.T) error {
	t.Helper()

	r.cancel()
	select {
	case err, ok := <-r.done:
		if ok {
			close(r.done)
		}

		return err
	case <-time.After(runTimeout):
		t.Fatal("timeout waiting for the shutdown")
		return nil
	}
}

func TestOptionsBackendRegistry(t *testing.T) {
	o := &Options{CustomBackends: []backend.Spec{backend.NewStatus()}}
	r := o.backendRegistry()
	assert.Contains(t, r, backend.StaticName)
	assert.Contains(t, r, backend.EchoName)
	assert.Contains(t, r, backend.StatusName)
}

func TestOptionsMetricsBackend(t *testing.T) {
	mtr := &metricstest.MockMetrics{}
	o := &Options{MetricsBackend: mtr}
	assert.Same(t, mtr, o.metrics())

	o = &Options{MetricsFlavour: metrics.PrometheusKind}
	assert.IsType(t, &metrics.Prometheus{}, o.metrics())
}

func TestCreateDataClients(t *testing.T) {
	routesFile := writeRoutesFile(t, testRoutes)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testRoutes)
	}))
	defer remote.Close()

	custom := testdataclient.New(nil)

	for _, tt := range []struct {
		title   string
		options Options
		clients int
		owned   int
		err     bool
	}{{
		title: "none",
	}, {
		title:   "routes file",
		options: Options{RoutesFile: routesFile},
		clients: 1,
	}, {
		title:   "watched routes file",
		options: Options{RoutesFile: routesFile, WatchRoutesFile: true},
		clients: 1,
		owned:   1,
	}, {
		title:   "missing routes file",
		options: Options{RoutesFile: filepath.Join(t.TempDir(), "missing.yaml")},
		err:     true,
	}, {
		title:   "remote routes",
		options: Options{RoutesURLs: []string{remote.URL}},
		clients: 1,
		owned:   1,
	}, {
		title:   "unavailable remote routes",
		options: Options{RoutesURLs: []string{remote.URL, "http://127.0.0.1:1/routes.yaml"}},
		err:     true,
	}, {
		title: "all",
		options: Options{
			RoutesFile:        routesFile,
			RoutesURLs:        []string{remote.URL, routesFile},
			CustomDataClients: []routing.DataClient{custom},
		},
		clients: 4,
		owned:   2,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			clients, owned, err := createDataClients(tt.options)
			defer func() {
				for _, c := range owned {
					c.Close()
				}
			}()

			if tt.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, clients, tt.clients)
			assert.Len(t, owned, tt.owned)
		})
	}
}

func TestRunServesRoutes(t *testing.T) {
	address := findAddress(t)
	support := findAddress(t)
	r := run(t, Options{
		Address:            address,
		SupportListener:    support,
		RoutesFile:         writeRoutesFile(t, testRoutes),
		WaitFirstRouteLoad: true,
		AccessLogDisabled:  true,
		MetricsBackend:     &metricstest.MockMetrics{},
	})

	rsp, err := waitConnGet("http://" + address + "/search?q=fastlane")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.JSONEq(t, `{"q": "fastlane"}`, readBody(t, rsp))

	rsp, err = http.Get("http://" + address + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, "ok", readBody(t, rsp))

	rsp, err = http.Get("http://" + address + "/search")
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, err = waitConnGet("http://" + support + "/routes")
	require.NoError(t, err)
	assert.Equal(t, "application/json", rsp.Header.Get("Content-Type"))

	var doc routesfile.Document
	require.NoError(t, json.Unmarshal([]byte(readBody(t, rsp)), &doc))
	var ids []string
	for _, d := range doc.Routes {
		ids = append(ids, d.ID)
	}

	assert.ElementsMatch(t, []string{"search", "health"}, ids)

	rsp, err = http.Get("http://" + support + "/plan")
	require.NoError(t, err)
	plan := readBody(t, rsp)
	assert.Contains(t, plan, "/search")
	assert.Contains(t, plan, "/healthz")

	assert.NoError(t, r.stop(t))
}

func TestRunSupportMetrics(t *testing.T) {
	address := findAddress(t)
	support := findAddress(t)
	run(t, Options{
		Address:           address,
		SupportListener:   support,
		AccessLogDisabled: true,
		MetricsFlavour:    metrics.PrometheusKind,
	})

	rsp, err := waitConnGet("http://" + support + "/metrics")
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
}

func TestRunFailsWithoutRoutesFile(t *testing.T) {
	err := RunWithShutdown(context.Background(), Options{
		Address:           findAddress(t),
		RoutesFile:        filepath.Join(t.TempDir(), "missing.yaml"),
		AccessLogDisabled: true,
		MetricsBackend:    &metricstest.MockMetrics{},
	})

	assert.Error(t, err)
}

func TestRunFailsWhenAddressInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	done := make(chan error, 1)
	go func() {
		done <- RunWithShutdown(context.Background(), Options{
			Address:           l.Addr().String(),
			AccessLogDisabled: true,
			MetricsBackend:    &metricstest.MockMetrics{},
		})
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(runTimeout):
		t.Fatal("timeout waiting for the listener error")
	}
}

func TestRunWritesLogFiles(t *testing.T) {
	dir := t.TempDir()
	appLog := filepath.Join(dir, "application.log")
	accessLog := filepath.Join(dir, "access.log")
	address := findAddress(t)
	t.Cleanup(func() {
		logging.Init(logging.Options{ApplicationLogOutput: os.Stderr, AccessLogDisabled: true})
	})

	r := run(t, Options{
		Address:              address,
		RoutesFile:           writeRoutesFile(t, testRoutes),
		WaitFirstRouteLoad:   true,
		ApplicationLogOutput: appLog,
		AccessLogOutput:      accessLog,
		MetricsBackend:       &metricstest.MockMetrics{},
	})

	rsp, err := waitConnGet("http://" + address + "/healthz")
	require.NoError(t, err)
	rsp.Body.Close()
	require.NoError(t, r.stop(t))

	b, err := os.ReadFile(accessLog)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"GET /healthz HTTP/1.1" 200`)

	b, err = os.ReadFile(appLog)
	require.NoError(t, err)
	assert.Contains(t, string(b), "first load complete")
}
