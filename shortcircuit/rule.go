package shortcircuit

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zalando/fastlane/mediatype"
)

// Kind identifies the request dimension constrained by a rule. The
// order of the kinds is the order of the stages in a compiled plan.
type Kind int

const (
	KindPath Kind = iota
	KindMethod
	KindContentType
	KindAccept
	KindServerPort
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "PATH"
	case KindMethod:
		return "METHOD"
	case KindContentType:
		return "CONTENT_TYPE"
	case KindAccept:
		return "ACCEPT"
	case KindServerPort:
		return "SERVER_PORT"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
	}
}

// Rule is a condition that a request needs to fulfill for a candidate
// to apply. Rules are immutable. The set of rules is closed, they can
// be created with PathExact, Method, ContentType, NoContentType, Accept
// and ServerPort.
type Rule interface {
	Kind() Kind
	String() string

	// identity of the rule among the rules of the same kind
	key() string
}

// PathRule requires an exact request path.
type PathRule struct {
	Path string
}

// MethodRule requires a request method.
type MethodRule struct {
	Method string
}

// ContentTypeRule requires the Content-Type header of the request. When
// Type is nil, the header must be absent.
type ContentTypeRule struct {
	Type *mediatype.MediaType
}

// AcceptRule declares the media types that a candidate can produce.
type AcceptRule struct {
	Produces []mediatype.MediaType
}

// ServerPortRule requires the port that the request was received on.
// Not supported yet, plans discriminating by port are always
// indeterminate.
type ServerPortRule struct {
	Port int
}

// NormalizePath removes a single trailing slash, except when the path is
// "/".
func NormalizePath(p string) string {
	if len(p) > 1 && p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}

	return p
}

// PathExact creates a rule requiring the given path. The path is
// normalized the same way as the request paths.
func PathExact(path string) PathRule {
	return PathRule{Path: NormalizePath(path)}
}

// Method creates a rule requiring the given request method.
func Method(method string) MethodRule {
	return MethodRule{Method: method}
}

// ContentType creates a rule requiring the Content-Type header. A nil
// argument requires that the request has no Content-Type header.
func ContentType(m *mediatype.MediaType) ContentTypeRule {
	if m == nil {
		return ContentTypeRule{}
	}

	mc := *m
	return ContentTypeRule{Type: &mc}
}

// NoContentType creates a rule requiring that the request has no
// Content-Type header.
func NoContentType() ContentTypeRule {
	return ContentTypeRule{}
}

// Accept creates a rule declaring the produced media types.
func Accept(produces ...mediatype.MediaType) AcceptRule {
	return AcceptRule{Produces: append([]mediatype.MediaType(nil), produces...)}
}

// ServerPort creates a server port rule.
func ServerPort(port int) ServerPortRule {
	return ServerPortRule{Port: port}
}

func (PathRule) Kind() Kind        { return KindPath }
func (MethodRule) Kind() Kind      { return KindMethod }
func (ContentTypeRule) Kind() Kind { return KindContentType }
func (AcceptRule) Kind() Kind      { return KindAccept }
func (ServerPortRule) Kind() Kind  { return KindServerPort }

func (r PathRule) key() string   { return r.Path }
func (r MethodRule) key() string { return r.Method }

// the value expected in the Content-Type header, or "" with false when
// the header needs to be absent
func (r ContentTypeRule) header() (string, bool) {
	if r.Type == nil {
		return "", false
	}

	return r.Type.String(), true
}

func (r ContentTypeRule) key() string {
	if h, ok := r.header(); ok {
		return "=" + h
	}

	return "-"
}

func (r AcceptRule) key() string {
	names := make([]string, len(r.Produces))
	for i, p := range r.Produces {
		names[i] = p.Name()
	}

	slices.Sort(names)
	return strings.Join(slices.Compact(names), ",")
}

func (r ServerPortRule) key() string { return strconv.Itoa(r.Port) }

func (r PathRule) String() string   { return fmt.Sprintf("Path(%q)", r.Path) }
func (r MethodRule) String() string { return fmt.Sprintf("Method(%q)", r.Method) }

func (r ContentTypeRule) String() string {
	if h, ok := r.header(); ok {
		return fmt.Sprintf("ContentType(%q)", h)
	}

	return "ContentType(none)"
}

func (r AcceptRule) String() string     { return fmt.Sprintf("Accept(%q)", r.key()) }
func (r ServerPortRule) String() string { return fmt.Sprintf("ServerPort(%d)", r.Port) }
