package shortcircuit

import (
	"fmt"
	"sort"
	"strings"
)

type describer interface {
	describe(b *strings.Builder, indent string)
}

// Describe returns a multiline, human readable representation of a
// compiled plan. Plans not created by this package are shown as custom.
func Describe[R any](p Plan[R]) string {
	var b strings.Builder
	describePlan(&b, p, "")
	return b.String()
}

func describePlan(b *strings.Builder, p any, indent string) {
	if d, ok := p.(describer); ok {
		d.describe(b, indent)
		return
	}

	fmt.Fprintf(b, "%scustom\n", indent)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

func (p *terminalPlan[R]) describe(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s%v\n", indent, p.leaf)
}

func (p *pathPlan[R]) describe(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, KindPath)
	for _, k := range sortedKeys(p.paths) {
		fmt.Fprintf(b, "%s  %q:\n", indent, k)
		describePlan(b, p.paths[k], indent+"    ")
	}
}

func (p *methodPlan[R]) describe(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, KindMethod)
	for _, k := range sortedKeys(p.methods) {
		fmt.Fprintf(b, "%s  %s:\n", indent, k)
		describePlan(b, p.methods[k], indent+"    ")
	}
}

func (p *contentTypePlan[R]) describe(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, KindContentType)
	if p.none != nil {
		fmt.Fprintf(b, "%s  <none>:\n", indent)
		describePlan(b, p.none, indent+"    ")
	}

	for _, k := range sortedKeys(p.types) {
		fmt.Fprintf(b, "%s  %q:\n", indent, k)
		describePlan(b, p.types[k], indent+"    ")
	}
}

func (p *acceptPlan[R]) describe(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, KindAccept)
	for _, br := range p.branches {
		names := make([]string, len(br.produces))
		for i, m := range br.produces {
			names[i] = m.Name()
		}

		fmt.Fprintf(b, "%s  [%s]:\n", indent, strings.Join(names, ", "))
		describePlan(b, br.next, indent+"    ")
	}
}

func (p *serverPortPlan[R]) describe(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s%s %v: Indeterminate\n", indent, KindServerPort, p.ports)
}
