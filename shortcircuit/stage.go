package shortcircuit

import (
	"fmt"
	"net/url"

	"github.com/zalando/fastlane/mediatype"
)

// Branch associates a rule of a stage with the plan to continue with
// when the request fulfills the rule.
type Branch[R any] struct {
	Rule Rule
	Next Plan[R]
}

// Stage compiles the branches of a single request dimension into a plan
// that selects the next plan based on the request.
type Stage[R any] interface {
	Kind() Kind

	// Compile panics when a branch has a rule of a different kind, or
	// when two branches have the same rule.
	Compile([]Branch[R]) Plan[R]
}

// Stages returns the stages in the order of evaluation.
func Stages[R any]() []Stage[R] {
	return []Stage[R]{
		pathStage[R]{},
		methodStage[R]{},
		contentTypeStage[R]{},
		acceptStage[R]{},
		serverPortStage[R]{},
	}
}

func coerce[T Rule, R any](k Kind, branches []Branch[R]) []T {
	rules := make([]T, len(branches))
	seen := make(map[string]bool)
	for i, b := range branches {
		r, ok := b.Rule.(T)
		if !ok {
			panic(fmt.Sprintf("shortcircuit: invalid rule for the %s stage: %v", k, b.Rule))
		}

		if b.Next == nil {
			panic(fmt.Sprintf("shortcircuit: missing next plan for %v", r))
		}

		if seen[r.key()] {
			panic(fmt.Sprintf("shortcircuit: duplicate rule in the %s stage: %v", k, r))
		}

		seen[r.key()] = true
		rules[i] = r
	}

	return rules
}

type pathStage[R any] struct{}

type pathPlan[R any] struct {
	paths map[string]Plan[R]
}

func (pathStage[R]) Kind() Kind { return KindPath }

func (pathStage[R]) Compile(branches []Branch[R]) Plan[R] {
	rules := coerce[PathRule](KindPath, branches)
	p := &pathPlan[R]{paths: make(map[string]Plan[R], len(rules))}
	for i, r := range rules {
		p.paths[r.Path] = branches[i].Next
	}

	return p
}

// requestPath returns the undecoded, normalized path of the request
// target.
func requestPath(uri string) (string, bool) {
	u, err := url.ParseRequestURI(uri)
	if err != nil {
		return "", false
	}

	return NormalizePath(u.EscapedPath()), true
}

func (p *pathPlan[R]) Execute(req Request) Leaf[R] {
	path, ok := requestPath(req.RequestURI())
	if !ok {
		return Indeterminate[R]()
	}

	next, ok := p.paths[path]
	if !ok {
		return Indeterminate[R]()
	}

	return next.Execute(req)
}

type methodStage[R any] struct{}

type methodPlan[R any] struct {
	methods map[string]Plan[R]
}

func (methodStage[R]) Kind() Kind { return KindMethod }

func (methodStage[R]) Compile(branches []Branch[R]) Plan[R] {
	rules := coerce[MethodRule](KindMethod, branches)
	p := &methodPlan[R]{methods: make(map[string]Plan[R], len(rules))}
	for i, r := range rules {
		p.methods[r.Method] = branches[i].Next
	}

	return p
}

func (p *methodPlan[R]) Execute(req Request) Leaf[R] {
	next, ok := p.methods[req.Method()]
	if !ok {
		return Indeterminate[R]()
	}

	return next.Execute(req)
}

type contentTypeStage[R any] struct{}

type contentTypePlan[R any] struct {
	types map[string]Plan[R]

	// used when the request has no Content-Type header, can be nil
	none Plan[R]
}

func (contentTypeStage[R]) Kind() Kind { return KindContentType }

func (contentTypeStage[R]) Compile(branches []Branch[R]) Plan[R] {
	rules := coerce[ContentTypeRule](KindContentType, branches)
	p := &contentTypePlan[R]{types: make(map[string]Plan[R], len(rules))}
	for i, r := range rules {
		if h, ok := r.header(); ok {
			p.types[h] = branches[i].Next
		} else {
			p.none = branches[i].Next
		}
	}

	return p
}

func (p *contentTypePlan[R]) Execute(req Request) Leaf[R] {
	h, ok := req.Header("Content-Type")
	if !ok {
		if p.none == nil {
			return Indeterminate[R]()
		}

		return p.none.Execute(req)
	}

	next, ok := p.types[h]
	if !ok {
		return Indeterminate[R]()
	}

	return next.Execute(req)
}

type acceptStage[R any] struct{}

type acceptBranch[R any] struct {
	produces []mediatype.MediaType
	next     Plan[R]
}

type acceptPlan[R any] struct {
	branches []acceptBranch[R]
}

func (acceptStage[R]) Kind() Kind { return KindAccept }

func (acceptStage[R]) Compile(branches []Branch[R]) Plan[R] {
	rules := coerce[AcceptRule](KindAccept, branches)
	p := &acceptPlan[R]{branches: make([]acceptBranch[R], len(rules))}
	for i, r := range rules {
		p.branches[i] = acceptBranch[R]{produces: r.Produces, next: branches[i].Next}
	}

	return p
}

func producesAny(produces, accept []mediatype.MediaType) bool {
	for _, m := range produces {
		if mediatype.Acceptable(accept, m) {
			return true
		}
	}

	return false
}

func (p *acceptPlan[R]) Execute(req Request) Leaf[R] {
	accept := mediatype.ParseAccept(req.Headers("Accept")...)
	if mediatype.AcceptsAll(accept) {
		// any of the candidates could serve the request
		if len(p.branches) != 1 {
			return Indeterminate[R]()
		}

		return p.branches[0].next.Execute(req)
	}

	var next Plan[R]
	for _, b := range p.branches {
		if !producesAny(b.produces, accept) {
			continue
		}

		if next != nil {
			return Indeterminate[R]()
		}

		next = b.next
	}

	if next == nil {
		return Indeterminate[R]()
	}

	return next.Execute(req)
}

type serverPortStage[R any] struct{}

// the port is not available in the request view yet, so the plan only
// keeps the ports for the plan description
type serverPortPlan[R any] struct {
	ports []int
}

func (serverPortStage[R]) Kind() Kind { return KindServerPort }

func (serverPortStage[R]) Compile(branches []Branch[R]) Plan[R] {
	rules := coerce[ServerPortRule](KindServerPort, branches)
	p := &serverPortPlan[R]{}
	for _, r := range rules {
		p.ports = append(p.ports, r.Port)
	}

	return p
}

func (p *serverPortPlan[R]) Execute(Request) Leaf[R] {
	return Indeterminate[R]()
}
