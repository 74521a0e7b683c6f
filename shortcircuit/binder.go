package shortcircuit

import (
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/zalando/fastlane/binding"
	"github.com/zalando/fastlane/mediatype"
)

// Extractor takes the value of a single parameter from a request. It
// returns false when the request doesn't contain the value, and an
// error when the value cannot be converted.
type Extractor func(Request) (any, bool, error)

// BinderFunc prepares the extractor of a parameter. The content type is
// the one required by the matched candidate, or nil when the candidate
// doesn't fix it. It returns false when the parameter cannot be bound
// in short-circuit mode.
type BinderFunc func(p binding.Parameter, contentType *mediatype.MediaType) (Extractor, bool)

type binderKey struct {
	source binding.Source
	typ    binding.Type
}

// BinderRegistry holds the binders by parameter source and type. It is
// not safe to register binders concurrently with preparing bindings.
type BinderRegistry struct {
	binders map[binderKey]BinderFunc
}

// NewBinderRegistry creates an empty registry.
func NewBinderRegistry() *BinderRegistry {
	return &BinderRegistry{binders: make(map[binderKey]BinderFunc)}
}

// DefaultBinders creates a registry with the binders for query
// parameters, headers, and JSON or raw bodies.
func DefaultBinders() *BinderRegistry {
	r := NewBinderRegistry()
	for _, t := range []binding.Type{binding.String, binding.Int, binding.Float, binding.Bool} {
		r.Register(binding.Query, t, queryBinder)
		r.Register(binding.Header, t, headerBinder)
	}

	for _, t := range []binding.Type{binding.String, binding.Bytes, binding.JSON} {
		r.Register(binding.Body, t, bodyBinder)
	}

	for _, t := range []binding.Type{binding.String, binding.Int, binding.Float, binding.Bool, binding.JSON} {
		r.Register(binding.BodyField, t, bodyFieldBinder)
	}

	return r
}

// Register sets the binder for a source and a type, replacing the
// previous one.
func (r *BinderRegistry) Register(s binding.Source, t binding.Type, f BinderFunc) {
	r.binders[binderKey{source: s, typ: t}] = f
}

// Prepare returns the extractor for a parameter, or false when no binder
// can bind it in short-circuit mode.
func (r *BinderRegistry) Prepare(p binding.Parameter, contentType *mediatype.MediaType) (Extractor, bool) {
	f, ok := r.binders[binderKey{source: p.Source, typ: p.Type}]
	if !ok {
		return nil, false
	}

	return f(p, contentType)
}

func queryBinder(p binding.Parameter, _ *mediatype.MediaType) (Extractor, bool) {
	key := p.LookupKey()
	return func(req Request) (any, bool, error) {
		u, err := url.ParseRequestURI(req.RequestURI())
		if err != nil {
			return nil, false, err
		}

		q, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return nil, false, err
		}

		values, ok := q[key]
		if !ok || len(values) == 0 {
			return nil, false, nil
		}

		v, err := binding.Convert(p.Type, values[0])
		return v, err == nil, err
	}, true
}

func headerBinder(p binding.Parameter, _ *mediatype.MediaType) (Extractor, bool) {
	key := p.LookupKey()
	return func(req Request) (any, bool, error) {
		h, ok := req.Header(key)
		if !ok {
			return nil, false, nil
		}

		v, err := binding.Convert(p.Type, h)
		return v, err == nil, err
	}, true
}

func fixedJSON(contentType *mediatype.MediaType) bool {
	return contentType != nil && binding.IsJSON(*contentType)
}

func bodyBinder(p binding.Parameter, contentType *mediatype.MediaType) (Extractor, bool) {
	if p.Type == binding.JSON && !fixedJSON(contentType) {
		return nil, false
	}

	return func(req Request) (any, bool, error) {
		b := req.Body()
		if len(b) == 0 {
			return nil, false, nil
		}

		switch p.Type {
		case binding.Bytes:
			return b, true, nil
		case binding.JSON:
			v, err := binding.DecodeJSON(b)
			return v, err == nil, err
		default:
			return string(b), true, nil
		}
	}, true
}

func bodyFieldBinder(p binding.Parameter, contentType *mediatype.MediaType) (Extractor, bool) {
	if !fixedJSON(contentType) {
		return nil, false
	}

	path := p.LookupKey()
	return func(req Request) (any, bool, error) {
		b := req.Body()
		if len(b) == 0 {
			return nil, false, nil
		}

		if !gjson.ValidBytes(b) {
			return nil, false, binding.ErrInvalidValue
		}

		res := gjson.GetBytes(b, path)
		if !res.Exists() {
			return nil, false, nil
		}

		v, err := binding.FieldValue(res, p.Type)
		return v, err == nil, err
	}, true
}

// Binding binds the arguments of a matched candidate in short-circuit
// mode.
type Binding struct {
	params     []binding.Parameter
	extractors []Extractor
}

// PrepareBinding prepares the binding of a candidate. It returns false
// when any of the parameters cannot be bound in short-circuit mode, in
// which case the requests matching the candidate need to be handled by
// the general router.
func PrepareBinding[R any](reg *BinderRegistry, c *Candidate[R]) (*Binding, bool) {
	var contentType *mediatype.MediaType
	if r, ok := c.Rule(KindContentType); ok {
		contentType = r.(ContentTypeRule).Type
	}

	b := &Binding{
		params:     c.Parameters,
		extractors: make([]Extractor, len(c.Parameters)),
	}

	for i, p := range c.Parameters {
		if p.Validate() != nil {
			return nil, false
		}

		e, ok := reg.Prepare(p, contentType)
		if !ok {
			return nil, false
		}

		b.extractors[i] = e
	}

	return b, true
}

// Bind extracts the arguments from the request. It returns false when
// any of the parameters cannot be bound, and the request needs to be
// handled by the general binding, which reports the error to the
// client. Bind never returns partial arguments.
func (b *Binding) Bind(req Request) (binding.Arguments, bool) {
	args := make(binding.Arguments, len(b.params))
	for i, p := range b.params {
		v, found, err := b.extractors[i](req)
		if err != nil {
			return nil, false
		}

		if !found {
			v, found, err = binding.Missing(p)
			if err != nil {
				return nil, false
			}

			if !found {
				continue
			}
		}

		args[p.Name] = v
	}

	return args, true
}
