package dtsi

import (
	"fmt"
	"regexp"

	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

var varRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// resolveVars replaces every ${name} occurrence in b.Value with the string
// form of variables[name], recursing into params; an undefined variable is a
// fatal error naming the binding's path (spec §4.4 step 3).
func resolveVars(b layout.Binding, variables map[string]any, path string) (layout.Binding, error) {
	resolved, err := substitute(b.Value, variables, path)
	if err != nil {
		return b, err
	}
	out := layout.Binding{Value: resolved}
	for i, p := range b.Params {
		rp, err := resolveVars(p, variables, fmt.Sprintf("%s.params[%d]", path, i))
		if err != nil {
			return b, err
		}
		out.Params = append(out.Params, rp)
	}
	return out, nil
}

// resolveLayoutVars returns a copy of l with every ${name} reference in
// every layer binding and behavior-definition binding replaced by its
// variables[name] value.
func resolveLayoutVars(l *layout.Layout) (*layout.Layout, error) {
	out := l.Clone()

	resolveList := func(bindings []layout.Binding, path string) ([]layout.Binding, error) {
		result := make([]layout.Binding, len(bindings))
		for i, b := range bindings {
			rb, err := resolveVars(b, l.Variables, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			result[i] = rb
		}
		return result, nil
	}

	for i := range out.Layers {
		resolved, err := resolveList(out.Layers[i], fmt.Sprintf("layers[%d]", i))
		if err != nil {
			return nil, err
		}
		out.Layers[i] = resolved
	}

	resolveDefs := func(defs []layout.BehaviorDefinition, section string) error {
		for i := range defs {
			resolved, err := resolveList(defs[i].Bindings, fmt.Sprintf("%s[%d].bindings", section, i))
			if err != nil {
				return err
			}
			defs[i].Bindings = resolved
			if defs[i].TapBinding != nil {
				rb, err := resolveVars(*defs[i].TapBinding, l.Variables, fmt.Sprintf("%s[%d].tap_binding", section, i))
				if err != nil {
					return err
				}
				defs[i].TapBinding = &rb
			}
			if defs[i].HoldBinding != nil {
				rb, err := resolveVars(*defs[i].HoldBinding, l.Variables, fmt.Sprintf("%s[%d].hold_binding", section, i))
				if err != nil {
					return err
				}
				defs[i].HoldBinding = &rb
			}
			if defs[i].Binding != nil {
				rb, err := resolveVars(*defs[i].Binding, l.Variables, fmt.Sprintf("%s[%d].binding", section, i))
				if err != nil {
					return err
				}
				defs[i].Binding = &rb
			}
		}
		return nil
	}
	if err := resolveDefs(out.Macros, "macros"); err != nil {
		return nil, err
	}
	if err := resolveDefs(out.HoldTaps, "hold_taps"); err != nil {
		return nil, err
	}
	if err := resolveDefs(out.Combos, "combos"); err != nil {
		return nil, err
	}
	if err := resolveDefs(out.InputListeners, "input_listeners"); err != nil {
		return nil, err
	}
	return out, nil
}

func substitute(s string, variables map[string]any, path string) (string, error) {
	var firstErr error
	result := varRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := varRefPattern.FindStringSubmatch(match)[1]
		val, ok := variables[name]
		if !ok {
			firstErr = &gloverr.ResolutionError{Op: "resolve_variable", Name: name, Path: path}
			return match
		}
		return fmt.Sprintf("%v", val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
