package routing

import (
	"strings"

	"github.com/zalando/fastlane/shortcircuit"
)

// the fast path view of the route table
type fastPath struct {
	plan     shortcircuit.Plan[*Route]
	bindings map[*Route]*shortcircuit.Binding

	// the routes that are candidates of the plan
	candidates int
}

// selects the routes that the planner can decide alone. Only exact path
// routes are candidates. A path is left to the general router entirely
// when any of its routes has conditions that the planner doesn't
// evaluate, because otherwise the plan could select a route that the
// general router would not.
func fastPathRoutes(routes []*Route) []*Route {
	excluded := make(map[string]bool)
	for _, r := range routes {
		if r.path == "" || r.template != nil {
			continue
		}

		if len(r.headers) > 0 || strings.Contains(r.Def.Path, "%") {
			excluded[r.path] = true
		}
	}

	var selected []*Route
	for _, r := range routes {
		if r.path == "" || r.template != nil || excluded[r.path] {
			continue
		}

		selected = append(selected, r)
	}

	return selected
}

func candidate(r *Route) shortcircuit.Candidate[*Route] {
	rules := []shortcircuit.Rule{shortcircuit.PathExact(r.path)}
	if r.Method != "" {
		rules = append(rules, shortcircuit.Method(r.Method))
	}

	switch {
	case r.noContentType:
		rules = append(rules, shortcircuit.NoContentType())
	case r.contentType != nil:
		rules = append(rules, shortcircuit.ContentType(r.contentType))
	}

	if len(r.produces) > 0 {
		rules = append(rules, shortcircuit.Accept(r.produces...))
	}

	return shortcircuit.Candidate[*Route]{
		Rules:      rules,
		Route:      r,
		Parameters: r.Parameters,
	}
}

// compiles the plan of the fast path, and prepares the short-circuit
// binding of the candidates. Candidates that cannot be bound in
// short-circuit mode stay in the plan, their matches fall back to the
// general router.
func newFastPath(binders *shortcircuit.BinderRegistry, routes []*Route) *fastPath {
	selected := fastPathRoutes(routes)
	candidates := make([]shortcircuit.Candidate[*Route], len(selected))
	fp := &fastPath{
		bindings:   make(map[*Route]*shortcircuit.Binding),
		candidates: len(selected),
	}

	for i, r := range selected {
		candidates[i] = candidate(r)
		if b, ok := shortcircuit.PrepareBinding(binders, &candidates[i]); ok {
			fp.bindings[r] = b
		}
	}

	fp.plan = shortcircuit.Compile(candidates)
	return fp
}

// evaluates the plan. When the plan matches a route that can be bound,
// it returns the route with the arguments, otherwise false. The matched
// route is returned also when the binding failed, for reporting.
func (fp *fastPath) lookup(req shortcircuit.Request) (*Route, *Result, bool) {
	rt, ok := fp.plan.Execute(req).Route()
	if !ok {
		return nil, nil, false
	}

	b := fp.bindings[rt]
	if b == nil {
		return rt, nil, false
	}

	args, ok := b.Bind(req)
	if !ok {
		return rt, nil, false
	}

	return rt, &Result{Route: rt, Fast: true, Arguments: args}, true
}
