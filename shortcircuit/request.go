package shortcircuit

import (
	"net/http"
	"net/textproto"
)

// Request is the view of an incoming request used by the plans and the
// binders. The body is expected to be fully buffered already.
type Request interface {
	Method() string

	// RequestURI returns the raw request target, e.g. /foo%2Fbar?q=1.
	RequestURI() string

	// Header returns the first value of a header, and false when the
	// header is not set.
	Header(name string) (string, bool)

	// Headers returns all the values of a header.
	Headers(name string) []string

	Body() []byte
}

type httpRequest struct {
	req  *http.Request
	body []byte
}

// FromHTTP creates a request view from an incoming http request and its
// buffered body.
func FromHTTP(r *http.Request, body []byte) Request {
	return &httpRequest{req: r, body: body}
}

func (r *httpRequest) Method() string { return r.req.Method }

func (r *httpRequest) RequestURI() string {
	if r.req.RequestURI != "" {
		return r.req.RequestURI
	}

	// requests created by clients or tests
	if r.req.URL != nil {
		return r.req.URL.RequestURI()
	}

	return ""
}

func (r *httpRequest) Header(name string) (string, bool) {
	v := r.req.Header[textproto.CanonicalMIMEHeaderKey(name)]
	if len(v) == 0 {
		return "", false
	}

	return v[0], true
}

func (r *httpRequest) Headers(name string) []string {
	return r.req.Header.Values(name)
}

func (r *httpRequest) Body() []byte { return r.body }
