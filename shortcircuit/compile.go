package shortcircuit

import (
	"fmt"

	"github.com/zalando/fastlane/binding"
)

// Candidate is a route that can be matched by the fast path. The route
// value is opaque for the planner.
type Candidate[R any] struct {

	// At most one rule of each kind. A missing kind means that the
	// candidate doesn't constrain that dimension.
	Rules []Rule

	Route R

	// Parameters of the route handler, used to prepare the short-circuit
	// binding.
	Parameters []binding.Parameter
}

// Rule returns the rule of the candidate for a kind, if any.
func (c *Candidate[R]) Rule(k Kind) (Rule, bool) {
	for _, r := range c.Rules {
		if r.Kind() == k {
			return r, true
		}
	}

	return nil, false
}

func checkCandidate[R any](i int, c *Candidate[R]) {
	var seen [KindServerPort + 1]bool
	for _, r := range c.Rules {
		if r == nil {
			panic(fmt.Sprintf("shortcircuit: nil rule in candidate %d", i))
		}

		k := r.Kind()
		if k < KindPath || k > KindServerPort {
			panic(fmt.Sprintf("shortcircuit: invalid rule kind in candidate %d: %v", i, k))
		}

		if seen[k] {
			panic(fmt.Sprintf("shortcircuit: multiple %s rules in candidate %d", k, i))
		}

		seen[k] = true
	}
}

// Compile builds the plan for a set of candidates. It partitions the
// candidates stage by stage, and every path of the resulting tree ends
// with a terminal plan: a match when a single candidate remained after
// the last stage, Indeterminate otherwise.
//
// Compile panics when a candidate has more than one rule of the same
// kind.
func Compile[R any](candidates []Candidate[R]) Plan[R] {
	cs := make([]*Candidate[R], len(candidates))
	for i := range candidates {
		checkCandidate(i, &candidates[i])
		cs[i] = &candidates[i]
	}

	return compileStages(cs, Stages[R]())
}

func compileStages[R any](cs []*Candidate[R], stages []Stage[R]) Plan[R] {
	if len(cs) == 0 {
		return Terminal(Indeterminate[R]())
	}

	if len(stages) == 0 {
		if len(cs) == 1 {
			return Terminal(Matched(cs[0].Route))
		}

		// the candidates differ only in dimensions that the plan cannot
		// express
		return Terminal(Indeterminate[R]())
	}

	stage, rest := stages[0], stages[1:]

	var rules []Rule
	seen := make(map[string]bool)
	for _, c := range cs {
		r, ok := c.Rule(stage.Kind())
		if !ok || seen[r.key()] {
			continue
		}

		seen[r.key()] = true
		rules = append(rules, r)
	}

	if len(rules) == 0 {
		return compileStages(cs, rest)
	}

	branches := make([]Branch[R], len(rules))
	for i, r := range rules {
		branches[i] = Branch[R]{Rule: r, Next: compileStages(selectBranch(cs, stage.Kind(), r), rest)}
	}

	return stage.Compile(branches)
}

// selectBranch returns the candidates with the rule, and those not
// constrained in the dimension of the rule, preserving the order.
func selectBranch[R any](cs []*Candidate[R], k Kind, r Rule) []*Candidate[R] {
	var selected []*Candidate[R]
	for _, c := range cs {
		cr, ok := c.Rule(k)
		if !ok || cr.key() == r.key() {
			selected = append(selected, c)
		}
	}

	return selected
}
