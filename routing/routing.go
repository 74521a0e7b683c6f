package routing

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zalando/fastlane/backend"
	"github.com/zalando/fastlane/binding"
	"github.com/zalando/fastlane/logging"
	"github.com/zalando/fastlane/metrics"
	"github.com/zalando/fastlane/shortcircuit"
)

const (
	// DefaultPollTimeout is used when Options.PollTimeout is not set.
	DefaultPollTimeout = 3 * time.Second

	KeyRoutesTotal  = "routes.total"
	KeyRoutesFast   = "routes.fast"
	KeyRoutingBuild = "routing.build"
	KeyRoutesUpdate = "routes.update"
)

// DataClient instances provide the route definitions.
type DataClient interface {

	// LoadAll returns the complete set of the route definitions.
	LoadAll() ([]*Def, error)

	// LoadUpdate returns the route definitions that were created or
	// changed since the previous call, and the ids of the deleted
	// ones. It must not block. When it fails, the client is reset
	// by calling LoadAll.
	LoadUpdate() ([]*Def, []string, error)
}

// Options of the routing.
type Options struct {

	// The clients providing the route definitions. The definitions
	// are merged by id, in case of conflict the client listed first
	// wins.
	DataClients []DataClient

	// The interval of polling the clients for updates.
	PollTimeout time.Duration

	// Registry of the backends that the routes can use. When nil,
	// the builtin backends are used.
	Backends backend.Registry

	// Registry of the short-circuit binders. When nil, the default
	// binders are used.
	Binders *shortcircuit.BinderRegistry

	// When set, every request is handled by the general router.
	DisableFastPath bool

	// Metrics collecting the routing measurements.
	Metrics metrics.Metrics

	// Logger used by the routing.
	Log logging.Logger

	// Called after every route table update, with the new set of the
	// valid routes.
	PostProcessors []func([]*Route)
}

// Result of a route lookup.
type Result struct {

	// The matched route.
	Route *Route

	// The path parameters, when the route was matched by the general
	// router.
	Params map[string]string

	// True when the route was matched and bound in short-circuit
	// mode.
	Fast bool

	// The arguments bound in short-circuit mode. When Fast is false,
	// the arguments need to be bound with the general binding.
	Arguments binding.Arguments
}

// an immutable generation of the route table
type table struct {
	routes  []*Route
	fast    *fastPath
	matcher *matcher
}

// Routing ('router') instance providing live
// updatable request matching.
type Routing struct {
	options   Options
	table     atomic.Pointer[table]
	firstLoad chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newTable(o *Options, defs []*Def) *table {
	start := time.Now()
	routes := processRouteDefs(o, defs)
	t := &table{
		routes:  routes,
		matcher: newMatcher(routes),
	}

	if !o.DisableFastPath {
		t.fast = newFastPath(o.Binders, routes)
	}

	o.Metrics.MeasureSince(KeyRoutingBuild, start)
	o.Metrics.UpdateGauge(KeyRoutesTotal, float64(len(routes)))
	if t.fast != nil {
		o.Metrics.UpdateGauge(KeyRoutesFast, float64(t.fast.candidates))
	}

	return t
}

// New initializes a routing instance, and starts listening for route
// definition updates.
func New(o Options) *Routing {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}

	if o.Backends == nil {
		o.Backends = backend.NewRegistry()
	}

	if o.Binders == nil {
		o.Binders = shortcircuit.DefaultBinders()
	}

	if o.Metrics == nil {
		o.Metrics = metrics.Default
	}

	if o.Log == nil {
		o.Log = &logging.DefaultLog{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Routing{
		options:   o,
		firstLoad: make(chan struct{}),
		cancel:    cancel,
	}

	r.table.Store(newTable(&r.options, nil))
	if len(o.DataClients) == 0 {
		close(r.firstLoad)
		return r
	}

	start := func(f func()) {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			f()
		}()
	}

	updates := receiveRouteDefs(ctx, &r.options, start)
	start(func() { r.receiveTables(ctx, updates) })
	return r
}

func (r *Routing) receiveTables(ctx context.Context, updates <-chan []*Def) {
	first := true
	for {
		var defs []*Def
		select {
		case defs = <-updates:
		case <-ctx.Done():
			return
		}

		t := newTable(&r.options, defs)
		r.table.Store(t)
		r.options.Metrics.IncCounter(KeyRoutesUpdate)
		r.options.Log.Infof("route table updated, routes: %d", len(t.routes))

		for _, pp := range r.options.PostProcessors {
			pp(t.routes)
		}

		if first {
			close(r.firstLoad)
			first = false
		}
	}
}

// FirstLoad returns a channel that is closed once the initial set of
// routes was received from every data client.
func (r *Routing) FirstLoad() <-chan struct{} {
	return r.firstLoad
}

// Lookup matches a request to a route. The body is the buffered request
// body, used by the short-circuit binders. It first tries the fast path,
// and falls back to the general router when the fast path cannot decide,
// or the arguments cannot be bound in short-circuit mode. Returns nil when
// no route matches.
func (r *Routing) Lookup(req *http.Request, body []byte) *Result {
	start := time.Now()
	defer r.options.Metrics.MeasureRouteLookup(start)

	t := r.table.Load()
	if t.fast != nil {
		rt, res, ok := t.fast.lookup(shortcircuit.FromHTTP(req, body))
		if ok {
			return res
		}

		if rt != nil {
			r.options.Metrics.IncBinderFallback(rt.ID)
		}
	}

	rt, params := t.matcher.match(req)
	if rt == nil {
		return nil
	}

	return &Result{Route: rt, Params: params}
}

// Routes returns the current set of valid routes, sorted by id.
func (r *Routing) Routes() []*Route {
	return append([]*Route(nil), r.table.Load().routes...)
}

// Plan returns the description of the current fast path plan, or an
// empty string when the fast path is disabled.
func (r *Routing) Plan() string {
	t := r.table.Load()
	if t.fast == nil {
		return ""
	}

	return shortcircuit.Describe(t.fast.plan)
}

// Close stops polling the data clients.
func (r *Routing) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}
