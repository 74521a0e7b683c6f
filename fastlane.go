package fastlane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zalando/fastlane/backend"
	"github.com/zalando/fastlane/logging"
	"github.com/zalando/fastlane/metrics"
	"github.com/zalando/fastlane/routesfile"
	"github.com/zalando/fastlane/routing"
	"github.com/zalando/fastlane/server"
	"github.com/zalando/fastlane/shortcircuit"
)

const (
	defaultSourcePollTimeout = 30 * time.Millisecond
	defaultShutdownTimeout   = 5 * time.Second
	defaultRoutesURLsTimeout = 10 * time.Second
)

// Options to start fastlane.
type Options struct {

	// Network address that fastlane should listen on.
	Address string

	// Network address of the support endpoints: /metrics, /routes and
	// /plan. When empty, no support listener is started.
	SupportListener string

	// When set, the listeners are started only after the first batch of
	// routes was loaded.
	WaitFirstRouteLoad bool

	// Maximum time to wait for the in-flight requests on shutdown.
	ShutdownTimeout time.Duration

	// File containing the route definitions, in YAML or JSON format.
	RoutesFile string

	// When set, the routes file is polled for changes.
	WatchRoutesFile bool

	// URLs of remote route files, polled for changes. Local paths are
	// accepted, too.
	RoutesURLs []string

	// Timeout of a single download of a remote route file.
	RoutesURLsTimeout time.Duration

	// Log the downloads of the remote route files.
	RemoteRoutesVerbose bool

	// Additional route sources.
	CustomDataClients []routing.DataClient

	// Polling interval of the route sources.
	SourcePollTimeout time.Duration

	// When set, every request is routed by the general router.
	DisableFastPath bool

	// Backends registered in addition to the builtin ones.
	CustomBackends []backend.Spec

	// Short-circuit binders. When nil, the default binders are used.
	Binders *shortcircuit.BinderRegistry

	// Maximum size of the buffered request bodies.
	MaxBodyBytes int64

	// Compress the responses with gzip, when accepted by the client.
	EnableCompression bool

	// Minimum size of the compressed responses.
	CompressionMinSize int

	// Server timeouts and limits, see http.Server.
	ReadTimeoutServer  time.Duration
	ReadHeaderTimeout  time.Duration
	WriteTimeoutServer time.Duration
	IdleTimeoutServer  time.Duration
	MaxHeaderBytes     int

	// Output file of the application log. When empty, stderr is used.
	ApplicationLogOutput string

	// Minimum level of the application log entries.
	ApplicationLogLevel log.Level

	// Prefix of the application log entries.
	ApplicationLogPrefix string

	// Log the application entries in JSON format.
	ApplicationLogJSONEnabled bool

	// Output file of the access log. When empty, stderr is used.
	AccessLogOutput string

	// Disables the access log.
	AccessLogDisabled bool

	// Log the access entries in JSON format.
	AccessLogJSONEnabled bool

	// Metrics format, CodaHale when not set.
	MetricsFlavour metrics.Kind

	// Common prefix of the metrics keys.
	MetricsPrefix string

	EnableRuntimeMetrics     bool
	EnableDebugGcMetrics     bool
	EnableServeRouteMetrics  bool
	MetricsUseExpDecaySample bool
	HistogramMetricBuckets   []float64

	// Metrics backend used instead of the one created from the metrics
	// options.
	MetricsBackend metrics.Metrics
}

type closer interface {
	Close()
}

func openLogFile(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
}

func initLog(o Options) ([]io.Closer, error) {
	var (
		closers         []io.Closer
		logOutput       io.Writer
		accessLogOutput io.Writer
	)

	if o.ApplicationLogOutput != "" {
		f, err := openLogFile(o.ApplicationLogOutput)
		if err != nil {
			return nil, err
		}

		closers = append(closers, f)
		logOutput = f
	}

	if !o.AccessLogDisabled && o.AccessLogOutput != "" {
		f, err := openLogFile(o.AccessLogOutput)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}

			return nil, err
		}

		closers = append(closers, f)
		accessLogOutput = f
	}

	logging.Init(logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogOutput:      logOutput,
		ApplicationLogLevel:       o.ApplicationLogLevel,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogOutput:           accessLogOutput,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
	})

	return closers, nil
}

func (o *Options) metrics() metrics.Metrics {
	if o.MetricsBackend != nil {
		return o.MetricsBackend
	}

	return metrics.NewMetrics(metrics.Options{
		Format:                  o.MetricsFlavour,
		Prefix:                  o.MetricsPrefix,
		EnableDebugGcMetrics:    o.EnableDebugGcMetrics,
		EnableRuntimeMetrics:    o.EnableRuntimeMetrics,
		EnableServeRouteMetrics: o.EnableServeRouteMetrics,
		UseExpDecaySample:       o.MetricsUseExpDecaySample,
		HistogramBuckets:        o.HistogramMetricBuckets,
	})
}

func (o *Options) backendRegistry() backend.Registry {
	r := backend.NewRegistry()
	r.Register(o.CustomBackends...)
	return r
}

// createDataClients returns all the route sources, and the ones owned
// by fastlane, that need to be closed on shutdown.
func createDataClients(o Options) ([]routing.DataClient, []closer, error) {
	var (
		clients []routing.DataClient
		owned   []closer
	)

	closeOwned := func() {
		for _, c := range owned {
			c.Close()
		}
	}

	if o.RoutesFile != "" {
		if o.WatchRoutesFile {
			w := routesfile.Watch(o.RoutesFile)
			clients = append(clients, w)
			owned = append(owned, w)
		} else {
			f, err := routesfile.Open(o.RoutesFile)
			if err != nil {
				return nil, nil, fmt.Errorf("error while opening the routes file: %w", err)
			}

			clients = append(clients, f)
		}
	}

	timeout := o.RoutesURLsTimeout
	if timeout <= 0 {
		timeout = defaultRoutesURLsTimeout
	}

	for _, u := range o.RoutesURLs {
		c, err := routesfile.RemoteWatch(&routesfile.RemoteWatchOptions{
			RemoteFile:    u,
			Verbose:       o.RemoteRoutesVerbose,
			FailOnStartup: true,
			HTTPTimeout:   timeout,
		})
		if err != nil {
			closeOwned()
			return nil, nil, fmt.Errorf("error while loading the remote routes %s: %w", u, err)
		}

		clients = append(clients, c)
		owned = append(owned, c)
	}

	clients = append(clients, o.CustomDataClients...)
	return clients, owned, nil
}

func routesHandler(rt *routing.Routing) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes := rt.Routes()
		doc := routesfile.Document{Routes: make([]*routing.Def, 0, len(routes))}
		for _, ri := range routes {
			def := ri.Def
			doc.Routes = append(doc.Routes, &def)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			log.Errorf("Failed to write the routes: %v", err)
		}
	})
}

func planHandler(rt *routing.Routing) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, rt.Plan())
	})
}

func supportHandler(rt *routing.Routing, m metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	m.RegisterHandler("/metrics", mux)
	mux.Handle("/routes", routesHandler(rt))
	mux.Handle("/plan", planHandler(rt))
	return mux
}

func listenAndServe(srv *http.Server, name string) error {
	log.Infof("%s listener on %v", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener: %w", name, err)
	}

	return nil
}

func shutdown(servers []*http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("Failed to shut down the listener on %s: %v", srv.Addr, err)
		}
	}
}

// RunWithShutdown starts fastlane, and blocks until the context is
// canceled or one of the listeners fails. On cancellation, the
// in-flight requests are finished within the shutdown timeout.
func RunWithShutdown(ctx context.Context, o Options) error {
	logClosers, err := initLog(o)
	if err != nil {
		return err
	}

	defer func() {
		for _, c := range logClosers {
			c.Close()
		}
	}()

	mtr := o.metrics()
	metrics.Default = mtr
	defer mtr.Close()

	dataClients, owned, err := createDataClients(o)
	if err != nil {
		return err
	}

	defer func() {
		for _, c := range owned {
			c.Close()
		}
	}()

	if len(dataClients) == 0 {
		log.Warning("route data source not enabled, no routes will be served")
	}

	if o.SourcePollTimeout <= 0 {
		o.SourcePollTimeout = defaultSourcePollTimeout
	}

	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}

	rt := routing.New(routing.Options{
		DataClients:     dataClients,
		PollTimeout:     o.SourcePollTimeout,
		Backends:        o.backendRegistry(),
		Binders:         o.Binders,
		DisableFastPath: o.DisableFastPath,
		Metrics:         mtr,
		Log:             &logging.DefaultLog{},
	})
	defer rt.Close()

	if o.WaitFirstRouteLoad {
		select {
		case <-rt.FirstLoad():
			log.Info("Dataclients are updated once, first load complete")
		case <-ctx.Done():
			return nil
		}
	}

	handler, err := server.New(server.Options{
		Router:             rt,
		MaxBodyBytes:       o.MaxBodyBytes,
		Metrics:            mtr,
		AccessLogDisabled:  o.AccessLogDisabled,
		EnableCompression:  o.EnableCompression,
		CompressionMinSize: o.CompressionMinSize,
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{{
		Addr:              o.Address,
		Handler:           handler,
		ReadTimeout:       o.ReadTimeoutServer,
		ReadHeaderTimeout: o.ReadHeaderTimeout,
		WriteTimeout:      o.WriteTimeoutServer,
		IdleTimeout:       o.IdleTimeoutServer,
		MaxHeaderBytes:    o.MaxHeaderBytes,
	}}

	names := []string{"main"}
	if o.SupportListener != "" {
		servers = append(servers, &http.Server{
			Addr:              o.SupportListener,
			Handler:           supportHandler(rt, mtr),
			ReadHeaderTimeout: o.ReadHeaderTimeout,
		})

		names = append(names, "support")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		g.Go(func() error { return listenAndServe(srv, names[i]) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down the listeners")
		shutdown(servers, o.ShutdownTimeout)
		return nil
	})

	return g.Wait()
}

// Run starts fastlane, and blocks until SIGINT or SIGTERM is received.
func Run(o Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunWithShutdown(ctx, o)
}
