/*
Package mediatype implements the media type values used by the routing
conditions and by the content negotiation of the short-circuit planner.

Media types are compared by their type and subtype only, case
insensitively. Parameters are kept, but they don't take part in the
comparison.
*/
package mediatype

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/munnerz/goautoneg"
)

const wildcard = "*"

// MediaType represents a parsed media type or media range, e.g.
// application/json; charset=utf-8.
type MediaType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

var (
	All                    = New("*", "*")
	ApplicationJSON        = New("application", "json")
	ApplicationOctetStream = New("application", "octet-stream")
	ApplicationForm        = New("application", "x-www-form-urlencoded")
	TextPlain              = New("text", "plain")
	TextHTML               = New("text", "html")
)

var ErrInvalidMediaType = errors.New("invalid media type")

// New creates a media type without parameters.
func New(typ, subtype string) MediaType {
	return MediaType{Type: strings.ToLower(typ), Subtype: strings.ToLower(subtype)}
}

// Parse parses a media type as found in the Content-Type header.
func Parse(s string) (MediaType, error) {
	name, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, fmt.Errorf("%w: %q: %w", ErrInvalidMediaType, s, err)
	}

	typ, subtype, ok := strings.Cut(name, "/")
	if !ok || typ == "" || subtype == "" {
		return MediaType{}, fmt.Errorf("%w: %q", ErrInvalidMediaType, s)
	}

	m := New(typ, subtype)
	if len(params) > 0 {
		m.Params = params
	}

	return m, nil
}

// MustParse is like Parse but panics on invalid input. Meant for
// initializing package level values.
func MustParse(s string) MediaType {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return m
}

// Name returns type/subtype, without the parameters.
func (m MediaType) Name() string {
	return m.Type + "/" + m.Subtype
}

func (m MediaType) String() string {
	if len(m.Params) == 0 {
		return m.Name()
	}

	return mime.FormatMediaType(m.Name(), m.Params)
}

// Equal reports whether the two media types have the same type and
// subtype.
func (m MediaType) Equal(o MediaType) bool {
	return strings.EqualFold(m.Type, o.Type) && strings.EqualFold(m.Subtype, o.Subtype)
}

// IsWildcard reports whether the type or the subtype is *.
func (m MediaType) IsWildcard() bool {
	return m.Type == wildcard || m.Subtype == wildcard
}

// Includes reports whether the media range m includes o, e.g. text/*
// includes text/plain, and */* includes everything.
func (m MediaType) Includes(o MediaType) bool {
	if m.Type == wildcard {
		return true
	}

	if !strings.EqualFold(m.Type, o.Type) {
		return false
	}

	return m.Subtype == wildcard || strings.EqualFold(m.Subtype, o.Subtype)
}

// Contains reports whether any item of the list equals m.
func Contains(list []MediaType, m MediaType) bool {
	for _, li := range list {
		if li.Equal(m) {
			return true
		}
	}

	return false
}

// Acceptable reports whether any of the accepted media ranges includes m.
func Acceptable(accept []MediaType, m MediaType) bool {
	for _, a := range accept {
		if a.Includes(m) {
			return true
		}
	}

	return false
}

// ParseAccept parses the values of the Accept header into a list of media
// ranges, ordered by preference as defined in RFC 7231: higher quality
// first, and with equal quality the more specific range first. Ranges with
// zero quality are not acceptable, and they are omitted. Invalid ranges are
// skipped.
func ParseAccept(values ...string) []MediaType {
	if len(values) == 0 {
		return nil
	}

	accept := goautoneg.ParseAccept(strings.Join(values, ","))
	result := make([]MediaType, 0, len(accept))
	for _, a := range accept {
		if a.Q <= 0 || a.Type == "" || a.SubType == "" {
			continue
		}

		m := New(a.Type, a.SubType)
		if len(a.Params) > 0 {
			m.Params = a.Params
		}

		result = append(result, m)
	}

	return result
}

// AcceptsAll reports whether the list is empty or contains */*.
func AcceptsAll(accept []MediaType) bool {
	if len(accept) == 0 {
		return true
	}

	for _, a := range accept {
		if a.Type == wildcard && a.Subtype == wildcard {
			return true
		}
	}

	return false
}
