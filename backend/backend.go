/*
Package backend implements the handlers that serve the matched routes.

A route definition names its backend by type, and carries the backend
arguments. The backend receives the arguments bound from the request,
either by the short-circuit binders or by the general binding.

Builtin backends:

	static   responds with a fixed status, body and content type
	echo     responds with the bound arguments as a JSON object
	status   responds with a fixed status code and no body

Custom backends can be added to a Registry.
*/
package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zalando/fastlane/binding"
)

const (
	StaticName = "static"
	EchoName   = "echo"
	StatusName = "status"
)

var (
	ErrUnknownBackend           = errors.New("unknown backend")
	ErrInvalidBackendParameters = errors.New("invalid backend parameters")
)

// Def is the backend part of a route definition.
type Def struct {
	Type        string            `json:"type"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Backend serves a matched request.
type Backend interface {
	Serve(w http.ResponseWriter, args binding.Arguments)
}

// Spec creates backend instances from route definitions.
type Spec interface {
	Name() string
	CreateBackend(Def) (Backend, error)
}

// Registry contains the backend specifications by name.
type Registry map[string]Spec

// Register adds backend specifications to the registry.
func (r Registry) Register(s ...Spec) {
	for _, si := range s {
		r[si.Name()] = si
	}
}

// Create creates a backend instance for a route definition.
func (r Registry) Create(d Def) (Backend, error) {
	s, ok := r[d.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, d.Type)
	}

	return s.CreateBackend(d)
}

// NewRegistry returns a registry with the builtin backends.
func NewRegistry() Registry {
	r := make(Registry)
	r.Register(NewStatic(), NewEcho(), NewStatus())
	return r
}

func validStatus(code int) bool {
	return code == 0 || code >= 100 && code <= 999
}

func setHeaders(w http.ResponseWriter, h map[string]string) {
	for k, v := range h {
		w.Header().Set(k, v)
	}
}
