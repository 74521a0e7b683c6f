package routing

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/dimfeld/httppath"
	"github.com/zalando/fastlane/backend"
	"github.com/zalando/fastlane/binding"
	"github.com/zalando/fastlane/mediatype"
	"golang.org/x/net/http/httpguts"
)

// NoContentType is the content type value of the route definitions
// matching only the requests without a Content-Type header.
const NoContentType = "none"

// Def is a route definition, as received from the data clients.
type Def struct {

	// Unique identifier of the route.
	ID string `json:"id"`

	// Path condition. It can be an exact path, or a template where
	// the :name segments match a single path segment and a trailing
	// *name segment matches the rest of the path. When empty, the
	// route matches any path not matched by other routes.
	Path string `json:"path,omitempty"`

	// Method condition, any method when empty.
	Method string `json:"method,omitempty"`

	// Content type condition, in the form of type/subtype. The value
	// "none" matches only the requests without a Content-Type header.
	// Any content type is accepted when empty.
	ContentType string `json:"contentType,omitempty"`

	// The media types that the backend can produce. When set, the
	// route matches only when the Accept header of the request
	// allows any of them.
	Produces []string `json:"produces,omitempty"`

	// Exact header conditions.
	Headers map[string]string `json:"headers,omitempty"`

	// Parameters passed to the backend.
	Parameters []binding.Parameter `json:"parameters,omitempty"`

	Backend backend.Def `json:"backend"`

	// Routes with higher priority are evaluated first by the general
	// router, when multiple routes match a request.
	Priority int `json:"priority,omitempty"`
}

// Route is a processed route definition.
type Route struct {
	Def

	// The backend instance serving the route.
	Handler backend.Backend `json:"-"`

	path          string
	template      *pathTemplate
	contentType   *mediatype.MediaType
	noContentType bool
	produces      []mediatype.MediaType
	headers       map[string]string
}

func (r *Route) String() string { return r.ID }

func processPath(r *Route) error {
	if r.Path == "" {
		return nil
	}

	if r.Path[0] != '/' || strings.ContainsAny(r.Path, "?#") {
		return fmt.Errorf("%w: %q", errInvalidPath, r.Path)
	}

	p, err := url.PathUnescape(r.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPath, err)
	}

	p = trimTrailingSlash(httppath.Clean(p))
	t, err := parseTemplate(p)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPath, err)
	}

	r.path = p
	r.template = t
	return nil
}

func processMethod(r *Route) error {
	if r.Method == "" {
		return nil
	}

	m := strings.ToUpper(r.Method)
	if !httpguts.ValidHeaderFieldName(m) {
		return fmt.Errorf("%w: %q", errInvalidMethod, r.Method)
	}

	r.Method = m
	return nil
}

func parseConcreteType(s string) (mediatype.MediaType, error) {
	m, err := mediatype.Parse(s)
	if err != nil {
		return mediatype.MediaType{}, fmt.Errorf("%w: %w", errInvalidMediaType, err)
	}

	if m.IsWildcard() {
		return mediatype.MediaType{}, fmt.Errorf("%w: wildcard not allowed: %q", errInvalidMediaType, s)
	}

	return mediatype.New(m.Type, m.Subtype), nil
}

func processMediaTypes(r *Route) error {
	switch r.ContentType {
	case "":
	case NoContentType:
		r.noContentType = true
	default:
		m, err := parseConcreteType(r.ContentType)
		if err != nil {
			return err
		}

		r.contentType = &m
	}

	for _, p := range r.Produces {
		m, err := parseConcreteType(p)
		if err != nil {
			return err
		}

		if !mediatype.Contains(r.produces, m) {
			r.produces = append(r.produces, m)
		}
	}

	return nil
}

func processHeaders(r *Route) error {
	if len(r.Headers) == 0 {
		return nil
	}

	r.headers = make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		if !httpguts.ValidHeaderFieldName(k) || !httpguts.ValidHeaderFieldValue(v) {
			return fmt.Errorf("%w: %q", errInvalidHeader, k)
		}

		r.headers[http.CanonicalHeaderKey(k)] = v
	}

	return nil
}

func processParameters(r *Route) error {
	names := make(map[string]bool)
	for _, p := range r.Parameters {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %w", errInvalidParameter, err)
		}

		if names[p.Name] {
			return fmt.Errorf("%w: duplicate parameter %q", errInvalidParameter, p.Name)
		}

		names[p.Name] = true
		if p.Source == binding.PathParam && !r.template.hasParam(p.LookupKey()) {
			return fmt.Errorf("%w: path parameter not found: %q", errInvalidParameter, p.LookupKey())
		}
	}

	return nil
}

func processBackend(reg backend.Registry, r *Route) error {
	b, err := reg.Create(r.Backend)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidBackend, err)
	}

	r.Handler = b
	return nil
}

// processes a route definition for the routing table
func processRouteDef(reg backend.Registry, def *Def) (*Route, error) {
	if def.ID == "" {
		return nil, errMissingID
	}

	r := &Route{Def: *def}
	for _, process := range []func(*Route) error{
		processPath,
		processMethod,
		processMediaTypes,
		processHeaders,
		processParameters,
	} {
		if err := process(r); err != nil {
			return nil, err
		}
	}

	if err := processBackend(reg, r); err != nil {
		return nil, err
	}

	return r, nil
}

// processes the route definitions, and reports the invalid ones. The
// returned routes are sorted by id.
func processRouteDefs(o *Options, defs []*Def) []*Route {
	defs = append([]*Def(nil), defs...)
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })

	var routes []*Route
	for _, def := range defs {
		route, err := processRouteDef(o.Backends, def)
		if err != nil {
			err = HandleValidationError(o.Metrics, err, def.ID)
			o.Log.Errorf("Invalid route definition %s: %v", def.ID, err)
			continue
		}

		o.Metrics.DeleteInvalidRoute(def.ID)
		routes = append(routes, route)
	}

	return routes
}
