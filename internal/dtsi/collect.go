// Package dtsi implements the DTSI Generator (spec component C5): it turns a
// (profile, layout) pair into device-tree-source-include text and a Kconfig
// fragment, resolving behavior includes, ${var} substitution, and the four
// behavior-definition emission shapes ZMK expects.
package dtsi

import (
	"github.com/caddyglow/glovebox/internal/layout"
)

// collectUsed walks every binding in l recursively — layer bindings plus
// every behavior definition's own bindings — and returns the set of every
// binding value seen at any depth, behavior codes and the leaf parameters
// under them alike (spec §4.4 step 1).
func collectUsed(l *layout.Layout) map[string]bool {
	used := map[string]bool{}
	var walk func(b layout.Binding)
	walk = func(b layout.Binding) {
		used[b.Value] = true
		for _, p := range b.Params {
			walk(p)
		}
	}

	for _, layer := range l.Layers {
		for _, b := range layer {
			walk(b)
		}
	}
	walkDefs := func(defs []layout.BehaviorDefinition) {
		for _, d := range defs {
			for _, b := range d.Bindings {
				walk(b)
			}
			if d.TapBinding != nil {
				walk(*d.TapBinding)
			}
			if d.HoldBinding != nil {
				walk(*d.HoldBinding)
			}
			if d.Binding != nil {
				walk(*d.Binding)
			}
		}
	}
	walkDefs(l.Macros)
	walkDefs(l.HoldTaps)
	walkDefs(l.Combos)
	walkDefs(l.InputListeners)

	return used
}
