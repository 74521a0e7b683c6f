package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/zalando/fastlane"
	"github.com/zalando/fastlane/metrics"
	"github.com/zalando/fastlane/server"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address            string        `yaml:"address"`
	SupportListener    string        `yaml:"support-listener"`
	WaitFirstRouteLoad bool          `yaml:"wait-first-route-load"`
	ShutdownTimeout    time.Duration `yaml:"shutdown-timeout"`

	// route sources:
	RoutesFile          string        `yaml:"routes-file"`
	WatchRoutesFile     bool          `yaml:"watch-routes-file"`
	RoutesURLs          *listFlag     `yaml:"routes-urls"`
	RoutesURLsTimeout   time.Duration `yaml:"routes-urls-timeout"`
	SourcePollTimeout   int64         `yaml:"source-poll-timeout"`
	DisableFastPath     bool          `yaml:"disable-fast-path"`
	RemoteRoutesVerbose bool          `yaml:"routes-urls-verbose"`

	// server:
	MaxBodyBytes       int64         `yaml:"max-body-bytes"`
	EnableCompression  bool          `yaml:"enable-compression"`
	CompressionMinSize int           `yaml:"compression-min-size"`
	ReadTimeoutServer  time.Duration `yaml:"read-timeout-server"`
	ReadHeaderTimeout  time.Duration `yaml:"read-header-timeout-server"`
	WriteTimeoutServer time.Duration `yaml:"write-timeout-server"`
	IdleTimeoutServer  time.Duration `yaml:"idle-timeout-server"`
	MaxHeaderBytes     int           `yaml:"max-header-bytes"`

	// logging:
	ApplicationLog            string    `yaml:"application-log"`
	ApplicationLogLevel       log.Level `yaml:"-"`
	ApplicationLogLevelString string    `yaml:"application-log-level"`
	ApplicationLogPrefix      string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled bool      `yaml:"application-log-json-enabled"`
	AccessLog                 string    `yaml:"access-log"`
	AccessLogDisabled         bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled      bool      `yaml:"access-log-json-enabled"`

	// metrics:
	MetricsFlavour               *listFlag `yaml:"metrics-flavour"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	EnableRuntimeMetrics         bool      `yaml:"runtime-metrics"`
	EnableDebugGcMetrics         bool      `yaml:"debug-gc-metrics"`
	EnableServeRouteMetrics      bool      `yaml:"serve-route-metrics"`
	MetricsUseExpDecaySample     bool      `yaml:"metrics-exp-decay-sample"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`
	HistogramMetricBuckets       []float64 `yaml:"-"`
}

const (
	defaultSourcePollTimeout   = int64(3000)
	defaultShutdownTimeout     = 5 * time.Second
	defaultRoutesURLsTimeout   = 10 * time.Second
	defaultReadHeaderTimeout   = 60 * time.Second
	defaultIdleTimeoutServer   = 60 * time.Second
	defaultMaxHeaderBytes      = 1 << 20
	defaultApplicationLogLevel = "INFO"
	defaultMetricsPrefix       = "fastlane."
	defaultSupportListener     = ":9911"
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.MetricsFlavour = commaListFlag("codahale", "prometheus")
	cfg.RoutesURLs = commaListFlag()

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", ":9090", "network address that fastlane should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", defaultSupportListener, "network address used for exposing the /metrics, /routes and /plan endpoints. An empty value disables the support listener.")
	flag.BoolVar(&cfg.WaitFirstRouteLoad, "wait-first-route-load", false, "prevent starting the listener before the first batch of routes were loaded")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "maximum time to wait for the in-flight requests when shutting down")

	// route sources:
	flag.StringVar(&cfg.RoutesFile, "routes-file", "", "file containing the route definitions in YAML or JSON format")
	flag.BoolVar(&cfg.WatchRoutesFile, "watch-routes-file", false, "poll the routes file for changes")
	flag.Var(cfg.RoutesURLs, "routes-urls", "comma separated URLs to route definition files, polled for changes")
	flag.DurationVar(&cfg.RoutesURLsTimeout, "routes-urls-timeout", defaultRoutesURLsTimeout, "timeout of a single download of the remote route files")
	flag.BoolVar(&cfg.RemoteRoutesVerbose, "routes-urls-verbose", false, "log the download of the remote route files")
	flag.Int64Var(&cfg.SourcePollTimeout, "source-poll-timeout", defaultSourcePollTimeout, "polling timeout of the routing data sources, in milliseconds")
	flag.BoolVar(&cfg.DisableFastPath, "disable-fast-path", false, "route every request with the general router, without the short-circuit plan")

	// server:
	flag.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", server.DefaultMaxBodyBytes, "maximum size of the buffered request bodies")
	flag.BoolVar(&cfg.EnableCompression, "enable-compression", false, "gzip compress the responses when the client accepts it")
	flag.IntVar(&cfg.CompressionMinSize, "compression-min-size", 0, "minimum size of the compressed responses, when 0 the library default applies")
	flag.DurationVar(&cfg.ReadTimeoutServer, "read-timeout-server", 0, "set ReadTimeout for http server connections")
	flag.DurationVar(&cfg.ReadHeaderTimeout, "read-header-timeout-server", defaultReadHeaderTimeout, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.WriteTimeoutServer, "write-timeout-server", 0, "set WriteTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeoutServer, "idle-timeout-server", defaultIdleTimeoutServer, "set IdleTimeout for http server connections")
	flag.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", defaultMaxHeaderBytes, "set MaxHeaderBytes for http server connections")

	// logging:
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", defaultApplicationLogLevel, "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", "[APP]", "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.StringVar(&cfg.AccessLog, "access-log", "", "output file for the access log, When not set, /dev/stderr is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")

	// metrics:
	flag.Var(cfg.MetricsFlavour, "metrics-flavour", "Metrics flavour is used to change the exposed metrics format. Supported metric formats: 'codahale' and 'prometheus', you can select both of them")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", defaultMetricsPrefix, "allows setting a custom path prefix for the metrics keys")
	flag.BoolVar(&cfg.EnableRuntimeMetrics, "runtime-metrics", true, "enables reporting of the Go runtime statistics exported in runtime and specifically runtime.MemStats")
	flag.BoolVar(&cfg.EnableDebugGcMetrics, "debug-gc-metrics", false, "enables reporting of the Go garbage collector statistics exported in debug.GCStats")
	flag.BoolVar(&cfg.EnableServeRouteMetrics, "serve-route-metrics", false, "enables reporting total serve time metrics for each route")
	flag.BoolVar(&cfg.MetricsUseExpDecaySample, "metrics-exp-decay-sample", false, "use exponentially decaying sample in metrics")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for prometheus histograms, must be a comma-separated list of numbers")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max-body-bytes: %d", c.MaxBodyBytes)
	}

	if c.SourcePollTimeout <= 0 {
		return fmt.Errorf("invalid source-poll-timeout: %d", c.SourcePollTimeout)
	}

	if c.CompressionMinSize < 0 {
		return fmt.Errorf("invalid compression-min-size: %d", c.CompressionMinSize)
	}

	if c.WatchRoutesFile && c.RoutesFile == "" {
		return fmt.Errorf("watch-routes-file requires a routes-file")
	}

	_, err = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	return err
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	return nil
}

func (c *Config) metricsKind() metrics.Kind {
	kind := metrics.UnknownKind
	for _, s := range c.MetricsFlavour.values {
		kind |= metrics.ParseMetricsKind(s)
	}

	if kind == metrics.UnknownKind {
		kind = metrics.CodaHaleKind
	}

	return kind
}

func (c *Config) ToOptions() fastlane.Options {
	return fastlane.Options{
		// generic:
		Address:            c.Address,
		SupportListener:    c.SupportListener,
		WaitFirstRouteLoad: c.WaitFirstRouteLoad,
		ShutdownTimeout:    c.ShutdownTimeout,

		// route sources:
		RoutesFile:          c.RoutesFile,
		WatchRoutesFile:     c.WatchRoutesFile,
		RoutesURLs:          c.RoutesURLs.values,
		RoutesURLsTimeout:   c.RoutesURLsTimeout,
		RemoteRoutesVerbose: c.RemoteRoutesVerbose,
		SourcePollTimeout:   time.Duration(c.SourcePollTimeout) * time.Millisecond,
		DisableFastPath:     c.DisableFastPath,

		// server:
		MaxBodyBytes:       c.MaxBodyBytes,
		EnableCompression:  c.EnableCompression,
		CompressionMinSize: c.CompressionMinSize,
		ReadTimeoutServer:  c.ReadTimeoutServer,
		ReadHeaderTimeout:  c.ReadHeaderTimeout,
		WriteTimeoutServer: c.WriteTimeoutServer,
		IdleTimeoutServer:  c.IdleTimeoutServer,
		MaxHeaderBytes:     c.MaxHeaderBytes,

		// logging:
		ApplicationLogOutput:      c.ApplicationLog,
		ApplicationLogLevel:       c.ApplicationLogLevel,
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		AccessLogOutput:           c.AccessLog,
		AccessLogDisabled:         c.AccessLogDisabled,
		AccessLogJSONEnabled:      c.AccessLogJSONEnabled,

		// metrics:
		MetricsFlavour:           c.metricsKind(),
		MetricsPrefix:            c.MetricsPrefix,
		EnableRuntimeMetrics:     c.EnableRuntimeMetrics,
		EnableDebugGcMetrics:     c.EnableDebugGcMetrics,
		EnableServeRouteMetrics:  c.EnableServeRouteMetrics,
		MetricsUseExpDecaySample: c.MetricsUseExpDecaySample,
		HistogramMetricBuckets:   c.HistogramMetricBuckets,
	}
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}
