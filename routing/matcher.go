package routing

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/dimfeld/httppath"
	"github.com/zalando/fastlane/mediatype"
)

// a path condition with wildcard segments
type pathTemplate struct {

	// literal segments, or ":" for single segment wildcards
	segments []string

	// parameter names, in the order of the wildcard segments
	names []string

	// the name of the trailing free wildcard, if any
	free string
}

type leafMatcher struct {
	method        string
	contentType   *mediatype.MediaType
	noContentType bool
	produces      []mediatype.MediaType
	headersExact  map[string]string
	weight        int
	route         *Route
}

type leafMatchers []*leafMatcher

type templateMatcher struct {
	template *pathTemplate
	leaves   leafMatchers
}

// root structure of the general router. The leaves of each path are
// sorted from the strictest to the least strict.
type matcher struct {
	exact      map[string]leafMatchers
	templates  []*templateMatcher
	rootLeaves leafMatchers
}

// the request attributes evaluated by the leaves, accept parsed once
type leafRequest struct {
	req         *http.Request
	accept      []mediatype.MediaType
	acceptReady bool
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}

	return strings.Split(p, "/")
}

// parses a cleaned path. Returns nil when the path contains no
// wildcards.
func parseTemplate(p string) (*pathTemplate, error) {
	var (
		t        pathTemplate
		wildcard bool
	)

	segments := splitPath(p)
	for i, s := range segments {
		if (s[0] == ':' || s[0] == '*') && t.hasParam(s[1:]) {
			return nil, errors.New("duplicate wildcard name")
		}

		switch {
		case s[0] == ':':
			if len(s) == 1 {
				return nil, errors.New("missing wildcard name")
			}

			t.segments = append(t.segments, ":")
			t.names = append(t.names, s[1:])
			wildcard = true
		case s[0] == '*':
			if len(s) == 1 {
				return nil, errors.New("missing wildcard name")
			}

			if i != len(segments)-1 {
				return nil, errors.New("free wildcard param should be last")
			}

			t.free = s[1:]
			wildcard = true
		default:
			t.segments = append(t.segments, s)
		}
	}

	if !wildcard {
		return nil, nil
	}

	return &t, nil
}

func (t *pathTemplate) hasParam(name string) bool {
	if t == nil {
		return false
	}

	if t.free == name {
		return true
	}

	for _, n := range t.names {
		if n == name {
			return true
		}
	}

	return false
}

func (t *pathTemplate) literals() int {
	return len(t.segments) - len(t.names)
}

// templates with more literal segments are tried first, and the ones
// with a free wildcard last
func (t *pathTemplate) moreSpecific(u *pathTemplate) bool {
	if (t.free == "") != (u.free == "") {
		return t.free == ""
	}

	if t.literals() != u.literals() {
		return t.literals() > u.literals()
	}

	return len(t.segments) > len(u.segments)
}

func (t *pathTemplate) key() string {
	s := "/" + strings.Join(t.segments, "/")
	if t.free != "" {
		s += "/*"
	}

	return s
}

func (t *pathTemplate) match(segments []string) (map[string]string, bool) {
	if len(segments) < len(t.segments) || t.free == "" && len(segments) != len(t.segments) {
		return nil, false
	}

	params := make(map[string]string, len(t.names)+1)
	var n int
	for i, s := range t.segments {
		if s == ":" {
			params[t.names[n]] = segments[i]
			n++
			continue
		}

		if s != segments[i] {
			return nil, false
		}
	}

	if t.free != "" {
		params[t.free] = "/" + strings.Join(segments[len(t.segments):], "/")
	}

	return params, true
}

func leafWeight(l *leafMatcher) int {
	w := l.weight

	if l.method != "" {
		w++
	}

	if l.contentType != nil || l.noContentType {
		w++
	}

	if len(l.produces) > 0 {
		w++
	}

	w += len(l.headersExact)
	return w
}

// Sorting of leaf matchers:
func (ls leafMatchers) Len() int           { return len(ls) }
func (ls leafMatchers) Swap(i, j int)      { ls[i], ls[j] = ls[j], ls[i] }
func (ls leafMatchers) Less(i, j int) bool { return leafWeight(ls[i]) > leafWeight(ls[j]) }

func newLeaf(r *Route) *leafMatcher {
	return &leafMatcher{
		method:        r.Method,
		contentType:   r.contentType,
		noContentType: r.noContentType,
		produces:      r.produces,
		headersExact:  r.headers,
		weight:        r.Priority,
		route:         r,
	}
}

func trimTrailingSlash(path string) string {
	if len(path) > 1 && path[len(path)-1] == '/' {
		return path[:len(path)-1]
	}

	return path
}

// constructs a matcher from processed routes. The routes are expected in
// a stable order, leaves with the same weight keep it.
func newMatcher(rs []*Route) *matcher {
	m := &matcher{exact: make(map[string]leafMatchers)}
	templates := make(map[string]*templateMatcher)
	for _, r := range rs {
		l := newLeaf(r)
		switch {
		case r.path == "":
			m.rootLeaves = append(m.rootLeaves, l)
		case r.template == nil:
			m.exact[r.path] = append(m.exact[r.path], l)
		default:
			// templates differing only in the parameter names share the leaves
			k := r.template.key()
			tm, ok := templates[k]
			if !ok {
				tm = &templateMatcher{template: r.template}
				templates[k] = tm
				m.templates = append(m.templates, tm)
			}

			tm.leaves = append(tm.leaves, l)
		}
	}

	for _, ls := range m.exact {
		sort.Stable(ls)
	}

	for _, tm := range m.templates {
		sort.Stable(tm.leaves)
	}

	sort.SliceStable(m.templates, func(i, j int) bool {
		return m.templates[i].template.moreSpecific(m.templates[j].template)
	})

	sort.Stable(m.rootLeaves)
	return m
}

func (lr *leafRequest) acceptList() []mediatype.MediaType {
	if !lr.acceptReady {
		lr.accept = mediatype.ParseAccept(lr.req.Header.Values("Accept")...)
		lr.acceptReady = true
	}

	return lr.accept
}

// matches a set of request headers to the exact header conditions
func matchHeaders(exact map[string]string, h http.Header) bool {
	for k, v := range exact {
		found := false
		for _, hv := range h[k] {
			if hv == v {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

func matchContentType(l *leafMatcher, h http.Header) bool {
	ct, has := h["Content-Type"]
	if l.noContentType {
		return !has
	}

	if l.contentType == nil {
		return true
	}

	if !has || len(ct) == 0 {
		return false
	}

	m, err := mediatype.Parse(ct[0])
	return err == nil && l.contentType.Equal(m)
}

func matchAccept(l *leafMatcher, lr *leafRequest) bool {
	if len(l.produces) == 0 {
		return true
	}

	accept := lr.acceptList()
	if mediatype.AcceptsAll(accept) {
		return true
	}

	for _, p := range l.produces {
		if mediatype.Acceptable(accept, p) {
			return true
		}
	}

	return false
}

// matches a request to the conditions in a leaf matcher
func matchLeaf(l *leafMatcher, lr *leafRequest) bool {
	if l.method != "" && l.method != lr.req.Method {
		return false
	}

	if !matchContentType(l, lr.req.Header) {
		return false
	}

	if !matchAccept(l, lr) {
		return false
	}

	return matchHeaders(l.headersExact, lr.req.Header)
}

// matches a request to a set of leaf matchers
func matchLeaves(leaves leafMatchers, lr *leafRequest) *leafMatcher {
	for _, l := range leaves {
		if matchLeaf(l, lr) {
			return l
		}
	}

	return nil
}

// tries to match a request against the available definitions. If a match is found,
// returns the associated route, and the wildcard parameters from the path definition,
// if any. Exact paths are tried first, then the templates, and finally the routes
// without a path condition.
func (m *matcher) match(r *http.Request) (*Route, map[string]string) {
	// trailing slashes are ignored
	path := trimTrailingSlash(httppath.Clean(r.URL.Path))
	lr := &leafRequest{req: r}

	if l := matchLeaves(m.exact[path], lr); l != nil {
		return l.route, nil
	}

	if len(m.templates) > 0 {
		segments := splitPath(path)
		for _, tm := range m.templates {
			params, ok := tm.template.match(segments)
			if !ok {
				continue
			}

			if l := matchLeaves(tm.leaves, lr); l != nil {
				return l.route, l.route.template.rename(params, tm.template)
			}
		}
	}

	if l := matchLeaves(m.rootLeaves, lr); l != nil {
		return l.route, nil
	}

	return nil, nil
}

// maps the parameters found with a shared template to the names used by
// the route
func (t *pathTemplate) rename(params map[string]string, shared *pathTemplate) map[string]string {
	if t == shared {
		return params
	}

	renamed := make(map[string]string, len(params))
	for i, n := range shared.names {
		renamed[t.names[i]] = params[n]
	}

	if shared.free != "" {
		renamed[t.free] = params[shared.free]
	}

	return renamed
}
