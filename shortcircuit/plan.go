package shortcircuit

import "fmt"

// Leaf is the result of evaluating a plan: either a matched route, or
// Indeterminate.
type Leaf[R any] struct {
	route   R
	matched bool
}

// Matched returns a leaf carrying the matched route.
func Matched[R any](route R) Leaf[R] {
	return Leaf[R]{route: route, matched: true}
}

// Indeterminate returns the leaf signaling that the request needs to be
// resolved by the general router.
func Indeterminate[R any]() Leaf[R] {
	return Leaf[R]{}
}

// Route returns the matched route, and false if the leaf is
// indeterminate.
func (l Leaf[R]) Route() (R, bool) {
	return l.route, l.matched
}

// IsMatched reports whether the leaf carries a route.
func (l Leaf[R]) IsMatched() bool {
	return l.matched
}

func (l Leaf[R]) String() string {
	if !l.matched {
		return "Indeterminate"
	}

	return fmt.Sprintf("Matched(%v)", l.route)
}

// Plan is a compiled decision node. Execute is safe for concurrent use and
// it always returns a leaf.
type Plan[R any] interface {
	Execute(Request) Leaf[R]
}

// PlanFunc adapts a function to the Plan interface.
type PlanFunc[R any] func(Request) Leaf[R]

func (f PlanFunc[R]) Execute(req Request) Leaf[R] { return f(req) }

type terminalPlan[R any] struct {
	leaf Leaf[R]
}

// Terminal returns a plan that returns the same leaf for every request.
func Terminal[R any](l Leaf[R]) Plan[R] {
	return &terminalPlan[R]{leaf: l}
}

func (p *terminalPlan[R]) Execute(Request) Leaf[R] { return p.leaf }
