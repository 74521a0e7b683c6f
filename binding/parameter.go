/*
Package binding implements binding the parameters of route backends from
http requests.

The parameters are declared in the route definitions. Every parameter is
taken from a source, like the query or a header, and converted to its
declared type. Bind implements the general binding used by the slow
path. The short-circuit binders in the shortcircuit package reuse the
parameter model and the conversions of this package.
*/
package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Source tells where the value of a parameter is taken from.
type Source int

const (
	Query Source = iota
	Header
	Cookie
	PathParam
	Body
	BodyField
)

var sourceNames = map[Source]string{
	Query:     "query",
	Header:    "header",
	Cookie:    "cookie",
	PathParam: "path",
	Body:      "body",
	BodyField: "body-field",
}

// Type is the type that the raw parameter value is converted to.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	Bytes
	JSON
)

var typeNames = map[Type]string{
	String: "string",
	Int:    "int",
	Float:  "float",
	Bool:   "bool",
	Bytes:  "bytes",
	JSON:   "json",
}

var (
	ErrInvalidSource = errors.New("invalid parameter source")
	ErrInvalidType   = errors.New("invalid parameter type")
	ErrMissingName   = errors.New("missing parameter name")
	ErrMissing       = errors.New("missing required parameter")
	ErrInvalidValue  = errors.New("invalid parameter value")
	ErrUnsupported   = errors.New("unsupported media type")
)

// Parameter declares an argument of a route backend.
type Parameter struct {
	Name   string `json:"name"`
	Source Source `json:"source"`

	// Key is the name of the query parameter, header, cookie or path
	// parameter, or the gjson path in case of body fields. When empty,
	// Name is used.
	Key string `json:"key,omitempty"`

	Type     Type   `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  string `json:"default,omitempty"`
}

// Arguments contains the bound values by parameter name.
type Arguments map[string]any

// Error is returned when a parameter cannot be bound.
type Error struct {
	Parameter string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("parameter %s: %v", e.Parameter, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (s Source) String() string {
	if n, ok := sourceNames[s]; ok {
		return n
	}

	return "source(" + strconv.Itoa(int(s)) + ")"
}

// ParseSource parses the name of a source, e.g. "query".
func ParseSource(s string) (Source, error) {
	for src, n := range sourceNames {
		if strings.EqualFold(n, s) {
			return src, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidSource, s)
}

func (s Source) MarshalText() ([]byte, error) {
	if _, ok := sourceNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSource, int(s))
	}

	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}

	*s = v
	return nil
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}

	return "type(" + strconv.Itoa(int(t)) + ")"
}

// ParseType parses the name of a type, e.g. "int". The empty string is
// parsed as string.
func ParseType(s string) (Type, error) {
	if s == "" {
		return String, nil
	}

	for t, n := range typeNames {
		if strings.EqualFold(n, s) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}

	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}

	*t = v
	return nil
}

// LookupKey returns the key used to find the raw value of the parameter.
func (p Parameter) LookupKey() string {
	if p.Key != "" {
		return p.Key
	}

	return p.Name
}

// Validate checks the parameter declaration.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}

	if _, ok := sourceNames[p.Source]; !ok {
		return &Error{Parameter: p.Name, Err: ErrInvalidSource}
	}

	if _, ok := typeNames[p.Type]; !ok {
		return &Error{Parameter: p.Name, Err: ErrInvalidType}
	}

	if p.Default != "" {
		if _, err := Convert(p.Type, p.Default); err != nil {
			return &Error{Parameter: p.Name, Err: err}
		}
	}

	return nil
}

// Convert converts a raw string value to the given type.
func Convert(t Type, raw string) (any, error) {
	switch t {
	case String:
		return raw, nil
	case Int:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		return v, nil
	case Float:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		return v, nil
	case Bool:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		return v, nil
	case Bytes:
		return []byte(raw), nil
	case JSON:
		return DecodeJSON([]byte(raw))
	default:
		return nil, ErrInvalidType
	}
}

// DecodeJSON decodes a JSON document into generic values.
func DecodeJSON(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	return v, nil
}

// FieldValue converts a field found in a JSON body to the given type.
// The field needs to exist.
func FieldValue(res gjson.Result, t Type) (any, error) {
	switch t {
	case String:
		if res.Type != gjson.String {
			return nil, fmt.Errorf("%w: not a string", ErrInvalidValue)
		}

		return res.Str, nil
	case Int:
		if res.Type != gjson.Number {
			return nil, fmt.Errorf("%w: not a number", ErrInvalidValue)
		}

		return Convert(Int, res.Raw)
	case Float:
		if res.Type != gjson.Number {
			return nil, fmt.Errorf("%w: not a number", ErrInvalidValue)
		}

		return res.Num, nil
	case Bool:
		if res.Type != gjson.True && res.Type != gjson.False {
			return nil, fmt.Errorf("%w: not a boolean", ErrInvalidValue)
		}

		return res.Bool(), nil
	case Bytes:
		return []byte(res.Raw), nil
	case JSON:
		return res.Value(), nil
	default:
		return nil, ErrInvalidType
	}
}
