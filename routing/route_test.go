package routing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/fastlane/backend"
	"github.com/zalando/fastlane/binding"
	"github.com/zalando/fastlane/logging/loggingtest"
	"github.com/zalando/fastlane/mediatype"
	"github.com/zalando/fastlane/metrics/metricstest"
)

var echoBackend = backend.Def{Type: "echo"}

func TestProcessRouteDef(t *testing.T) {
	for _, tt := range []struct {
		title string
		def   Def
		err   error
	}{{
		title: "minimal",
		def:   Def{ID: "r", Backend: echoBackend},
	}, {
		title: "missing id",
		def:   Def{Backend: echoBackend},
		err:   errMissingID,
	}, {
		title: "relative path",
		def:   Def{ID: "r", Path: "users", Backend: echoBackend},
		err:   errInvalidPath,
	}, {
		title: "path with query",
		def:   Def{ID: "r", Path: "/users?limit=1", Backend: echoBackend},
		err:   errInvalidPath,
	}, {
		title: "invalid escape",
		def:   Def{ID: "r", Path: "/users/%zz", Backend: echoBackend},
		err:   errInvalidPath,
	}, {
		title: "free wildcard not last",
		def:   Def{ID: "r", Path: "/files/*path/meta", Backend: echoBackend},
		err:   errInvalidPath,
	}, {
		title: "unnamed wildcard",
		def:   Def{ID: "r", Path: "/users/:", Backend: echoBackend},
		err:   errInvalidPath,
	}, {
		title: "duplicate wildcard name",
		def:   Def{ID: "r", Path: "/users/:id/friends/:id", Backend: echoBackend},
		err:   errInvalidPath,
	}, {
		title: "invalid method",
		def:   Def{ID: "r", Method: "GET POST", Backend: echoBackend},
		err:   errInvalidMethod,
	}, {
		title: "invalid content type",
		def:   Def{ID: "r", ContentType: "json", Backend: echoBackend},
		err:   errInvalidMediaType,
	}, {
		title: "wildcard content type",
		def:   Def{ID: "r", ContentType: "application/*", Backend: echoBackend},
		err:   errInvalidMediaType,
	}, {
		title: "wildcard produced type",
		def:   Def{ID: "r", Produces: []string{"*/*"}, Backend: echoBackend},
		err:   errInvalidMediaType,
	}, {
		title: "invalid header",
		def:   Def{ID: "r", Headers: map[string]string{"X Tenant": "acme"}, Backend: echoBackend},
		err:   errInvalidHeader,
	}, {
		title: "invalid parameter",
		def: Def{ID: "r", Parameters: []binding.Parameter{
			{Name: "limit", Type: binding.Int, Default: "ten"},
		}, Backend: echoBackend},
		err: errInvalidParameter,
	}, {
		title: "duplicate parameter",
		def: Def{ID: "r", Parameters: []binding.Parameter{
			{Name: "q"},
			{Name: "q", Source: binding.Header},
		}, Backend: echoBackend},
		err: errInvalidParameter,
	}, {
		title: "unknown path parameter",
		def: Def{ID: "r", Path: "/users/:id", Parameters: []binding.Parameter{
			{Name: "name", Source: binding.PathParam},
		}, Backend: echoBackend},
		err: errInvalidParameter,
	}, {
		title: "path parameter with key",
		def: Def{ID: "r", Path: "/users/:id", Parameters: []binding.Parameter{
			{Name: "userID", Source: binding.PathParam, Key: "id", Type: binding.Int},
		}, Backend: echoBackend},
	}, {
		title: "unknown backend",
		def:   Def{ID: "r", Backend: backend.Def{Type: "proxy"}},
		err:   errInvalidBackend,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			r, err := processRouteDef(backend.NewRegistry(), &tt.def)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "expected %v, got %v", tt.err, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, r.Handler)
		})
	}
}

func TestProcessNormalizes(t *testing.T) {
	r, err := processRouteDef(backend.NewRegistry(), &Def{
		ID:          "r",
		Path:        "/users//list/",
		Method:      "get",
		ContentType: "Application/JSON; charset=utf-8",
		Produces:    []string{"application/json", "application/json;q=1", "text/plain"},
		Headers:     map[string]string{"x-tenant": "acme"},
		Backend:     echoBackend,
	})
	require.NoError(t, err)

	assert.Equal(t, "/users/list", r.path)
	assert.Nil(t, r.template)
	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "application/json", r.contentType.String())
	assert.Equal(t, []mediatype.MediaType{mediatype.ApplicationJSON, mediatype.TextPlain}, r.produces)
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, r.headers)

	r, err = processRouteDef(backend.NewRegistry(), &Def{ID: "r", ContentType: NoContentType, Backend: echoBackend})
	require.NoError(t, err)
	assert.True(t, r.noContentType)
	assert.Nil(t, r.contentType)
}

func TestProcessRouteDefsReportsInvalid(t *testing.T) {
	mtr := &metricstest.MockMetrics{}
	tl := loggingtest.New()
	defer tl.Close()

	o := &Options{Backends: backend.NewRegistry(), Metrics: mtr, Log: tl}
	mtr.SetInvalidRoute("fixed", "invalid_path")

	routes := processRouteDefs(o, []*Def{
		{ID: "b", Backend: echoBackend},
		{ID: "invalid", Method: "GET POST", Backend: echoBackend},
		{ID: "fixed", Path: "/fixed", Backend: echoBackend},
		{ID: "a", Backend: echoBackend},
	})

	require.Len(t, routes, 3)
	assert.Equal(t, "a", routes[0].ID)
	assert.Equal(t, "b", routes[1].ID)
	assert.Equal(t, "fixed", routes[2].ID)

	reason, ok := mtr.InvalidRoute("invalid")
	assert.True(t, ok)
	assert.Equal(t, "invalid_method", reason)

	_, ok = mtr.InvalidRoute("fixed")
	assert.False(t, ok)

	assert.NoError(t, tl.WaitFor("Invalid route definition invalid", 100*time.Millisecond))
}
