package routing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/fastlane/backend"
)

func testRoutes(t testing.TB, defs ...*Def) []*Route {
	t.Helper()

	var routes []*Route
	for _, def := range defs {
		if def.Backend.Type == "" {
			def.Backend = echoBackend
		}

		r, err := processRouteDef(backend.NewRegistry(), def)
		require.NoError(t, err, def.ID)
		routes = append(routes, r)
	}

	return routes
}

type matchRequest struct {
	method  string
	target  string
	headers map[string]string
}

func (mr matchRequest) http() *http.Request {
	method := mr.method
	if method == "" {
		method = "GET"
	}

	r := httptest.NewRequest(method, mr.target, nil)
	for k, v := range mr.headers {
		r.Header.Set(k, v)
	}

	return r
}

func TestParseTemplate(t *testing.T) {
	for _, tt := range []struct {
		path     string
		template *pathTemplate
		err      bool
	}{{
		path: "/users/list",
	}, {
		path:     "/users/:id",
		template: &pathTemplate{segments: []string{"users", ":"}, names: []string{"id"}},
	}, {
		path: "/users/:id/friends/:friend",
		template: &pathTemplate{
			segments: []string{"users", ":", "friends", ":"},
			names:    []string{"id", "friend"},
		},
	}, {
		path:     "/files/*path",
		template: &pathTemplate{segments: []string{"files"}, free: "path"},
	}, {
		path: "/files/*path/meta",
		err:  true,
	}, {
		path: "/files/*",
		err:  true,
	}, {
		path: "/users/:id/:id",
		err:  true,
	}} {
		t.Run(tt.path, func(t *testing.T) {
			template, err := parseTemplate(tt.path)
			if tt.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if d := cmp.Diff(tt.template, template, cmp.AllowUnexported(pathTemplate{})); d != "" {
				t.Errorf("unexpected template (-want +got):\n%s", d)
			}
		})
	}
}

func TestTemplateMatch(t *testing.T) {
	tpl, err := parseTemplate("/files/:bucket/*path")
	require.NoError(t, err)

	params, ok := tpl.match(splitPath("/files/docs/a/b.txt"))
	require.True(t, ok)
	assert.Equal(t, map[string]string{"bucket": "docs", "path": "/a/b.txt"}, params)

	params, ok = tpl.match(splitPath("/files/docs"))
	require.True(t, ok)
	assert.Equal(t, map[string]string{"bucket": "docs", "path": "/"}, params)

	_, ok = tpl.match(splitPath("/files"))
	assert.False(t, ok)

	_, ok = tpl.match(splitPath("/images/docs/a"))
	assert.False(t, ok)
}

func TestMatcher(t *testing.T) {
	routes := testRoutes(t,
		&Def{ID: "list", Path: "/users"},
		&Def{ID: "create", Path: "/users", Method: "POST", ContentType: "application/json"},
		&Def{ID: "createForm", Path: "/users", Method: "POST", ContentType: "application/x-www-form-urlencoded"},
		&Def{ID: "page", Path: "/page", Produces: []string{"text/html"}},
		&Def{ID: "pageJSON", Path: "/page", Produces: []string{"application/json"}},
		&Def{ID: "tenant", Path: "/users", Method: "GET", Headers: map[string]string{"X-Tenant": "acme"}},
		&Def{ID: "user", Path: "/users/:id"},
		&Def{ID: "userFriends", Path: "/users/:id/friends"},
		&Def{ID: "me", Path: "/users/me"},
		&Def{ID: "files", Path: "/files/*path"},
		&Def{ID: "ping", Path: "/ping", ContentType: NoContentType},
		&Def{ID: "important", Path: "/important", Method: "GET"},
		&Def{ID: "moreImportant", Path: "/important", Priority: 5},
		&Def{ID: "catchAll", Method: "DELETE"},
	)

	m := newMatcher(routes)

	for _, tt := range []struct {
		title  string
		req    matchRequest
		route  string
		params map[string]string
	}{{
		title: "exact",
		req:   matchRequest{target: "/users"},
		route: "list",
	}, {
		title: "trailing slash",
		req:   matchRequest{target: "/users/"},
		route: "list",
	}, {
		title: "method and content type",
		req:   matchRequest{method: "POST", target: "/users", headers: map[string]string{"Content-Type": "application/json; charset=utf-8"}},
		route: "create",
	}, {
		title: "other content type",
		req:   matchRequest{method: "POST", target: "/users", headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"}},
		route: "createForm",
	}, {
		title: "unknown content type falls back to the unconstrained route",
		req:   matchRequest{method: "POST", target: "/users", headers: map[string]string{"Content-Type": "text/plain"}},
		route: "list",
	}, {
		title: "accepted produced type",
		req:   matchRequest{target: "/page", headers: map[string]string{"Accept": "text/*"}},
		route: "page",
	}, {
		title: "other accepted produced type",
		req:   matchRequest{target: "/page", headers: map[string]string{"Accept": "application/json"}},
		route: "pageJSON",
	}, {
		title: "not accepted produced type",
		req:   matchRequest{target: "/page", headers: map[string]string{"Accept": "image/png"}},
	}, {
		title: "header",
		req:   matchRequest{target: "/users", headers: map[string]string{"X-Tenant": "acme"}},
		route: "tenant",
	}, {
		title:  "template",
		req:    matchRequest{target: "/users/42"},
		route:  "user",
		params: map[string]string{"id": "42"},
	}, {
		title: "exact before template",
		req:   matchRequest{target: "/users/me"},
		route: "me",
	}, {
		title:  "longer template",
		req:    matchRequest{target: "/users/42/friends"},
		route:  "userFriends",
		params: map[string]string{"id": "42"},
	}, {
		title:  "free wildcard",
		req:    matchRequest{target: "/files/a/b/c.txt"},
		route:  "files",
		params: map[string]string{"path": "/a/b/c.txt"},
	}, {
		title: "no content type",
		req:   matchRequest{target: "/ping"},
		route: "ping",
	}, {
		title: "content type set",
		req:   matchRequest{target: "/ping", headers: map[string]string{"Content-Type": "text/plain"}},
	}, {
		title: "priority",
		req:   matchRequest{target: "/important"},
		route: "moreImportant",
	}, {
		title: "root leaf",
		req:   matchRequest{method: "DELETE", target: "/unknown"},
		route: "catchAll",
	}, {
		title: "not found",
		req:   matchRequest{target: "/unknown"},
	}} {
		t.Run(tt.title, func(t *testing.T) {
			r, params := m.match(tt.req.http())
			if tt.route == "" {
				assert.Nil(t, r)
				return
			}

			require.NotNil(t, r)
			assert.Equal(t, tt.route, r.ID)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestSharedTemplateRenamesParams(t *testing.T) {
	routes := testRoutes(t,
		&Def{ID: "get", Path: "/users/:id", Method: "GET"},
		&Def{ID: "update", Path: "/users/:userID", Method: "PUT"},
		&Def{ID: "files", Path: "/files/:bucket/*rest", Method: "GET"},
		&Def{ID: "upload", Path: "/files/:b/*key", Method: "PUT"},
	)

	m := newMatcher(routes)
	require.Len(t, m.templates, 2)

	r, params := m.match(matchRequest{method: "PUT", target: "/users/42"}.http())
	require.NotNil(t, r)
	assert.Equal(t, "update", r.ID)
	assert.Equal(t, map[string]string{"userID": "42"}, params)

	r, params = m.match(matchRequest{method: "GET", target: "/users/42"}.http())
	require.NotNil(t, r)
	assert.Equal(t, "get", r.ID)
	assert.Equal(t, map[string]string{"id": "42"}, params)

	r, params = m.match(matchRequest{method: "PUT", target: "/files/docs/a/b"}.http())
	require.NotNil(t, r)
	assert.Equal(t, "upload", r.ID)
	assert.Equal(t, map[string]string{"b": "docs", "key": "/a/b"}, params)
}

func TestMatchAcceptsAll(t *testing.T) {
	routes := testRoutes(t, &Def{ID: "json", Path: "/data", Produces: []string{"application/json"}})
	m := newMatcher(routes)

	for _, accept := range []string{"", "*/*", "application/*", "text/plain, application/json;q=0.5"} {
		t.Run(accept, func(t *testing.T) {
			req := matchRequest{target: "/data"}
			if accept != "" {
				req.headers = map[string]string{"Accept": accept}
			}

			r, _ := m.match(req.http())
			require.NotNil(t, r)
			assert.Equal(t, "json", r.ID)
		})
	}

	r, _ := m.match(matchRequest{target: "/data", headers: map[string]string{"Accept": "text/html"}}.http())
	assert.Nil(t, r)
}
