package binding_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/fastlane/binding"
	"github.com/zalando/fastlane/mediatype"
)

func TestBind(t *testing.T) {
	for _, tt := range []struct {
		title       string
		target      string
		headers     map[string]string
		body        string
		pathParams  map[string]string
		params      []binding.Parameter
		expected    binding.Arguments
		expectedErr error
	}{{
		title:  "query",
		target: "/users?limit=10&name=jane&name=joe",
		params: []binding.Parameter{
			{Name: "limit", Source: binding.Query, Type: binding.Int},
			{Name: "name", Source: binding.Query},
		},
		expected: binding.Arguments{"limit": int64(10), "name": "jane"},
	}, {
		title:   "header with key",
		target:  "/users",
		headers: map[string]string{"X-Tenant": "acme"},
		params: []binding.Parameter{
			{Name: "tenant", Source: binding.Header, Key: "X-Tenant"},
		},
		expected: binding.Arguments{"tenant": "acme"},
	}, {
		title:   "cookie",
		target:  "/users",
		headers: map[string]string{"Cookie": "session=abc; theme=dark"},
		params: []binding.Parameter{
			{Name: "theme", Source: binding.Cookie},
		},
		expected: binding.Arguments{"theme": "dark"},
	}, {
		title:      "path parameter",
		target:     "/users/42",
		pathParams: map[string]string{"id": "42"},
		params: []binding.Parameter{
			{Name: "id", Source: binding.PathParam, Type: binding.Int},
		},
		expected: binding.Arguments{"id": int64(42)},
	}, {
		title:   "raw body",
		target:  "/upload",
		headers: map[string]string{"Content-Type": "application/octet-stream"},
		body:    "\x00\x01",
		params: []binding.Parameter{
			{Name: "data", Source: binding.Body, Type: binding.Bytes},
		},
		expected: binding.Arguments{"data": []byte("\x00\x01")},
	}, {
		title:   "json body",
		target:  "/users",
		headers: map[string]string{"Content-Type": "application/vnd.api+json; charset=utf-8"},
		body:    `{"name": "jane"}`,
		params: []binding.Parameter{
			{Name: "user", Source: binding.Body, Type: binding.JSON},
		},
		expected: binding.Arguments{"user": map[string]any{"name": "jane"}},
	}, {
		title:  "json body without content type",
		target: "/users",
		body:   `[1, 2]`,
		params: []binding.Parameter{
			{Name: "ids", Source: binding.Body, Type: binding.JSON},
		},
		expected: binding.Arguments{"ids": []any{float64(1), float64(2)}},
	}, {
		title:   "json body with text content",
		target:  "/users",
		headers: map[string]string{"Content-Type": "text/plain"},
		body:    `{"name": "jane"}`,
		params: []binding.Parameter{
			{Name: "user", Source: binding.Body, Type: binding.JSON},
		},
		expectedErr: binding.ErrUnsupported,
	}, {
		title:   "body fields",
		target:  "/users",
		headers: map[string]string{"Content-Type": "application/json"},
		body:    `{"user": {"name": "jane", "age": 42}}`,
		params: []binding.Parameter{
			{Name: "name", Source: binding.BodyField, Key: "user.name"},
			{Name: "age", Source: binding.BodyField, Key: "user.age", Type: binding.Int},
			{Name: "email", Source: binding.BodyField, Key: "user.email"},
		},
		expected: binding.Arguments{"name": "jane", "age": int64(42)},
	}, {
		title:   "invalid json body field",
		target:  "/users",
		headers: map[string]string{"Content-Type": "application/json"},
		body:    `{"user": `,
		params: []binding.Parameter{
			{Name: "name", Source: binding.BodyField, Key: "user.name"},
		},
		expectedErr: binding.ErrInvalidValue,
	}, {
		title:  "defaults",
		target: "/users",
		params: []binding.Parameter{
			{Name: "limit", Source: binding.Query, Type: binding.Int, Default: "20"},
			{Name: "verbose", Source: binding.Header, Type: binding.Bool, Default: "false"},
		},
		expected: binding.Arguments{"limit": int64(20), "verbose": false},
	}, {
		title:  "missing required",
		target: "/users",
		params: []binding.Parameter{
			{Name: "limit", Source: binding.Query, Required: true},
		},
		expectedErr: binding.ErrMissing,
	}, {
		title:  "invalid value",
		target: "/users?limit=all",
		params: []binding.Parameter{
			{Name: "limit", Source: binding.Query, Type: binding.Int},
		},
		expectedErr: binding.ErrInvalidValue,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			method := "GET"
			var body io.Reader
			if tt.body != "" {
				method = "POST"
				body = strings.NewReader(tt.body)
			}

			r := httptest.NewRequest(method, tt.target, body)

			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			args, err := binding.Bind(r, []byte(tt.body), tt.pathParams, tt.params)
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.True(t, binding.IsBindingError(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestIsJSON(t *testing.T) {
	assert.True(t, binding.IsJSON(mediatype.ApplicationJSON))
	assert.True(t, binding.IsJSON(mediatype.MustParse("application/problem+json")))
	assert.False(t, binding.IsJSON(mediatype.TextPlain))
}
