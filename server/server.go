package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/zalando/fastlane/binding"
	"github.com/zalando/fastlane/logging"
	"github.com/zalando/fastlane/metrics"
	"github.com/zalando/fastlane/routing"
)

const (
	// DefaultMaxBodyBytes is used when Options.MaxBodyBytes is not set.
	DefaultMaxBodyBytes = 1 << 20

	// RequestIDHeader carries the id of the request.
	RequestIDHeader = "X-Request-Id"
)

// Router finds the route of a request. Implemented by routing.Routing.
type Router interface {
	Lookup(req *http.Request, body []byte) *routing.Result
}

// Options of the server.
type Options struct {

	// Router finding the routes of the requests. Required.
	Router Router

	// Maximum size of the request bodies. The requests with larger bodies
	// are rejected with 413 Request Entity Too Large.
	MaxBodyBytes int64

	// Metrics collecting the request measurements.
	Metrics metrics.Metrics

	// Logger used by the server.
	Log logging.Logger

	// When set, no access log entries are written.
	AccessLogDisabled bool

	// When set, the responses are compressed with gzip, when the
	// client accepts it.
	EnableCompression bool

	// The minimum size of the compressed responses. Defaults to the
	// gzhttp default.
	CompressionMinSize int
}

type server struct {
	options Options
}

var errBodyTooLarge = errors.New("request body too large")

// New creates the request handler.
func New(o Options) (http.Handler, error) {
	if o.Router == nil {
		return nil, errors.New("server: missing router")
	}

	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if o.Metrics == nil {
		o.Metrics = metrics.Default
	}

	if o.Log == nil {
		o.Log = &logging.DefaultLog{}
	}

	if !o.EnableCompression {
		return &server{options: o}, nil
	}

	if o.CompressionMinSize <= 0 {
		o.CompressionMinSize = gzhttp.DefaultMinSize
	}

	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(o.CompressionMinSize))
	if err != nil {
		return nil, fmt.Errorf("server: failed to initialize compression: %w", err)
	}

	return wrap(&server{options: o}), nil
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}

	id := uuid.NewString()
	r.Header.Set(RequestIDHeader, id)
	return id
}

// reads the complete body, up to the max size
func (s *server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.ContentLength > s.options.MaxBodyBytes {
		return nil, errBodyTooLarge
	}

	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes))
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return nil, errBodyTooLarge
	}

	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func bindingStatus(err error) int {
	if errors.Is(err, binding.ErrUnsupported) {
		return http.StatusUnsupportedMediaType
	}

	return http.StatusBadRequest
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := logging.NewLoggingWriter(w)
	id := requestID(r)
	lw.Header().Set(RequestIDHeader, id)

	var (
		routeID  string
		dispatch = metrics.DispatchNone
	)

	defer func() {
		if s.options.AccessLogDisabled {
			return
		}

		logging.LogAccess(&logging.AccessEntry{
			Request:      r,
			StatusCode:   lw.StatusCode(),
			ResponseSize: lw.Bytes(),
			Duration:     time.Since(start),
			RequestTime:  start,
			RouteID:      routeID,
			Dispatch:     dispatch,
			RequestID:    id,
		})
	}()

	body, err := s.readBody(lw, r)
	switch {
	case errors.Is(err, errBodyTooLarge):
		http.Error(lw, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		s.options.Log.Errorf("Failed to read the request body, request id: %s: %v", id, err)
		http.Error(lw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res := s.options.Router.Lookup(r, body)
	if res == nil {
		s.options.Metrics.IncDispatch(metrics.DispatchNone)
		http.NotFound(lw, r)
		return
	}

	routeID = res.Route.ID
	args := res.Arguments
	if res.Fast {
		dispatch = metrics.DispatchFast
	} else {
		dispatch = metrics.DispatchSlow
		args, err = binding.Bind(r, body, res.Params, res.Route.Parameters)
		if err != nil {
			s.options.Log.Debugf("Failed to bind the arguments of route %s: %v", routeID, err)
			http.Error(lw, err.Error(), bindingStatus(err))
			s.options.Metrics.IncDispatch(dispatch)
			s.options.Metrics.MeasureServe(routeID, r.Method, lw.StatusCode(), start)
			return
		}
	}

	s.options.Metrics.IncDispatch(dispatch)
	res.Route.Handler.Serve(lw, args)
	s.options.Metrics.MeasureServe(routeID, r.Method, lw.StatusCode(), start)
}
