package binding

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/zalando/fastlane/mediatype"
)

// IsJSON reports whether a media type denotes JSON content, e.g.
// application/json or application/problem+json.
func IsJSON(m mediatype.MediaType) bool {
	return m.Subtype == "json" || strings.HasSuffix(m.Subtype, "+json")
}

func requestIsJSON(r *http.Request, body []byte) (bool, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		// undeclared content is accepted when it is valid JSON
		return gjson.ValidBytes(body), nil
	}

	m, err := mediatype.Parse(ct)
	if err != nil {
		return false, err
	}

	return IsJSON(m), nil
}

func bodyValue(r *http.Request, body []byte, p Parameter) (any, bool, error) {
	if len(body) == 0 {
		return nil, false, nil
	}

	switch p.Type {
	case Bytes:
		return body, true, nil
	case JSON:
		isJSON, err := requestIsJSON(r, body)
		if err != nil {
			return nil, false, err
		}

		if !isJSON {
			return nil, false, ErrUnsupported
		}

		v, err := DecodeJSON(body)
		return v, err == nil, err
	default:
		v, err := Convert(p.Type, string(body))
		return v, err == nil, err
	}
}

func bodyFieldValue(r *http.Request, body []byte, p Parameter) (any, bool, error) {
	if len(body) == 0 {
		return nil, false, nil
	}

	isJSON, err := requestIsJSON(r, body)
	if err != nil {
		return nil, false, err
	}

	if !isJSON {
		return nil, false, ErrUnsupported
	}

	if !gjson.ValidBytes(body) {
		return nil, false, ErrInvalidValue
	}

	res := gjson.GetBytes(body, p.LookupKey())
	if !res.Exists() {
		return nil, false, nil
	}

	v, err := FieldValue(res, p.Type)
	return v, err == nil, err
}

func rawValue(r *http.Request, pathParams map[string]string, p Parameter) (string, bool) {
	key := p.LookupKey()
	switch p.Source {
	case Query:
		values, ok := r.URL.Query()[key]
		if !ok || len(values) == 0 {
			return "", false
		}

		return values[0], true
	case Header:
		values := r.Header.Values(key)
		if len(values) == 0 {
			return "", false
		}

		return values[0], true
	case Cookie:
		c, err := r.Cookie(key)
		if err != nil {
			return "", false
		}

		return c.Value, true
	case PathParam:
		v, ok := pathParams[key]
		return v, ok
	default:
		return "", false
	}
}

func value(r *http.Request, body []byte, pathParams map[string]string, p Parameter) (any, bool, error) {
	switch p.Source {
	case Body:
		return bodyValue(r, body, p)
	case BodyField:
		return bodyFieldValue(r, body, p)
	default:
		raw, ok := rawValue(r, pathParams, p)
		if !ok {
			return nil, false, nil
		}

		v, err := Convert(p.Type, raw)
		return v, err == nil, err
	}
}

// Bind binds the parameters from a request, its buffered body and the
// path parameters found by the router. Missing optional parameters
// without a default value are omitted from the result.
func Bind(r *http.Request, body []byte, pathParams map[string]string, params []Parameter) (Arguments, error) {
	args := make(Arguments, len(params))
	for _, p := range params {
		v, found, err := value(r, body, pathParams, p)
		if err != nil {
			return nil, &Error{Parameter: p.Name, Err: err}
		}

		if !found {
			v, found, err = Missing(p)
			if err != nil {
				return nil, &Error{Parameter: p.Name, Err: err}
			}

			if !found {
				continue
			}
		}

		args[p.Name] = v
	}

	return args, nil
}

// Missing returns the value used when a parameter is not found in the
// request: the default value if any, or ErrMissing when the parameter
// is required.
func Missing(p Parameter) (any, bool, error) {
	if p.Default != "" {
		v, err := Convert(p.Type, p.Default)
		return v, err == nil, err
	}

	if p.Required {
		return nil, false, ErrMissing
	}

	return nil, false, nil
}

// IsBindingError reports whether err was caused by the request values.
func IsBindingError(err error) bool {
	var berr *Error
	return errors.As(err, &berr)
}
