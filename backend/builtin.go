package backend

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/zalando/fastlane/binding"
)

type staticSpec struct{}

type static struct {
	status  int
	body    string
	mime    string
	headers map[string]string
}

// NewStatic creates the spec of the static backend.
//
// Example route definition:
//
//	backend:
//	  type: static
//	  status: 201
//	  body: '{"created": true}'
//	  contentType: application/json
//
// When the content type is not set, it is detected using
// http.DetectContentType. The default status is 200.
func NewStatic() Spec { return staticSpec{} }

func (staticSpec) Name() string { return StaticName }

func (staticSpec) CreateBackend(d Def) (Backend, error) {
	if !validStatus(d.Status) {
		return nil, ErrInvalidBackendParameters
	}

	s := &static{
		status:  d.Status,
		body:    d.Body,
		mime:    d.ContentType,
		headers: d.Headers,
	}

	if s.status == 0 {
		s.status = http.StatusOK
	}

	if s.mime == "" && s.body != "" {
		s.mime = http.DetectContentType([]byte(s.body))
	}

	return s, nil
}

func (s *static) Serve(w http.ResponseWriter, _ binding.Arguments) {
	setHeaders(w, s.headers)
	if s.mime != "" {
		w.Header().Set("Content-Type", s.mime)
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(s.body)))
	w.WriteHeader(s.status)
	if _, err := w.Write([]byte(s.body)); err != nil {
		log.Debugf("Failed to write static response: %v", err)
	}
}

type echoSpec struct{}

type echo struct {
	status  int
	headers map[string]string
}

// NewEcho creates the spec of the echo backend. It responds with the
// bound arguments encoded as a JSON object, which makes it useful for
// verifying route definitions.
func NewEcho() Spec { return echoSpec{} }

func (echoSpec) Name() string { return EchoName }

func (echoSpec) CreateBackend(d Def) (Backend, error) {
	if !validStatus(d.Status) || d.Body != "" {
		return nil, ErrInvalidBackendParameters
	}

	e := &echo{status: d.Status, headers: d.Headers}
	if e.status == 0 {
		e.status = http.StatusOK
	}

	return e, nil
}

func (e *echo) Serve(w http.ResponseWriter, args binding.Arguments) {
	if args == nil {
		args = binding.Arguments{}
	}

	b, err := json.Marshal(args)
	if err != nil {
		log.Errorf("Failed to encode arguments: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	setHeaders(w, e.headers)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(e.status)
	if _, err := w.Write(b); err != nil {
		log.Debugf("Failed to write echo response: %v", err)
	}
}

type statusSpec struct{}

type status struct {
	code    int
	headers map[string]string
}

func NewStatus() Spec { return statusSpec{} }

func (statusSpec) Name() string { return StatusName }

func (statusSpec) CreateBackend(d Def) (Backend, error) {
	if d.Status == 0 || !validStatus(d.Status) || d.Body != "" {
		return nil, ErrInvalidBackendParameters
	}

	return &status{code: d.Status, headers: d.Headers}, nil
}

func (s *status) Serve(w http.ResponseWriter, _ binding.Arguments) {
	setHeaders(w, s.headers)
	w.WriteHeader(s.code)
}
