package dtsi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/internal/profile"
)

var macroArityRefPattern = regexp.MustCompile(`\$\{([01])\}`)

// macroArity counts the distinct ${0}/${1} placeholders referenced across a
// macro's binding sequence (spec §4.4 step 4.1): 0, 1, or 2.
func macroArity(bindings []layout.Binding) int {
	seen := map[string]bool{}
	var walk func(b layout.Binding)
	walk = func(b layout.Binding) {
		for _, m := range macroArityRefPattern.FindAllStringSubmatch(b.Value, -1) {
			seen[m[1]] = true
		}
		for _, p := range b.Params {
			walk(p)
		}
	}
	for _, b := range bindings {
		walk(b)
	}
	return len(seen)
}

// emitMacros renders the macros section in definition order (spec §4.4.4.1).
func emitMacros(macros []layout.BehaviorDefinition, pattern string) (string, []error) {
	var sb strings.Builder
	var errs []error
	for _, m := range macros {
		id := upperID(m.Name, pattern)
		arity := macroArity(m.Bindings)
		fmt.Fprintf(&sb, "%s: %s {\n", lowerID(m.Name, pattern), lowerID(m.Name, pattern))
		fmt.Fprintf(&sb, "    compatible = \"zmk,behavior-macro\";\n")
		fmt.Fprintf(&sb, "    #binding-cells = <%d>;\n", arity)
		fmt.Fprintf(&sb, "    label = \"%s\";\n", id)
		if m.WaitMs != nil {
			fmt.Fprintf(&sb, "    wait-ms = <%d>;\n", *m.WaitMs)
		}
		if m.TapMs != nil {
			fmt.Fprintf(&sb, "    tap-ms = <%d>;\n", *m.TapMs)
		}
		sb.WriteString("    bindings = " + serializeBindingList(m.Bindings) + ";\n")
		sb.WriteString("};\n")
	}
	return sb.String(), errs
}

// emitHoldTaps renders the hold-taps section (spec §4.4.4.2).
func emitHoldTaps(holdTaps []layout.BehaviorDefinition, zmk profile.ZmkConfig) (string, []error) {
	var sb strings.Builder
	var errs []error
	for _, h := range holdTaps {
		if h.TapBinding == nil || h.HoldBinding == nil {
			count := 0
			if h.TapBinding != nil {
				count++
			}
			if h.HoldBinding != nil {
				count++
			}
			errs = append(errs, holdTapBindingCount(h.Name, count))
			continue
		}
		if len(zmk.ValidHoldTapFlavors) > 0 && !contains(zmk.ValidHoldTapFlavors, h.Flavor) {
			errs = append(errs, invalidFlavor(h.Flavor, zmk.ValidHoldTapFlavors))
			continue
		}
		id := lowerID(h.Name, zmk.IdentifierSanitizePattern)
		fmt.Fprintf(&sb, "%s: %s {\n", id, id)
		sb.WriteString("    compatible = \"zmk,behavior-hold-tap\";\n")
		sb.WriteString("    #binding-cells = <2>;\n")
		fmt.Fprintf(&sb, "    label = \"%s\";\n", upperID(h.Name, zmk.IdentifierSanitizePattern))
		if h.Flavor != "" {
			fmt.Fprintf(&sb, "    flavor = \"%s\";\n", h.Flavor)
		}
		if h.TappingTermMs != nil {
			fmt.Fprintf(&sb, "    tapping-term-ms = <%d>;\n", *h.TappingTermMs)
		}
		if h.QuickTapMs != nil {
			fmt.Fprintf(&sb, "    quick-tap-ms = <%d>;\n", *h.QuickTapMs)
		}
		if h.RequirePriorIdleMs != nil {
			fmt.Fprintf(&sb, "    require-prior-idle-ms = <%d>;\n", *h.RequirePriorIdleMs)
		}
		if len(h.HoldTriggerKeyPositions) > 0 {
			sb.WriteString("    hold-trigger-key-positions = " + serializeIntList(h.HoldTriggerKeyPositions) + ";\n")
		}
		if h.HoldTriggerOnRelease {
			sb.WriteString("    hold-trigger-on-release;\n")
		}
		sb.WriteString("    bindings = <" + serializeBinding(*h.TapBinding) + ">, <" + serializeBinding(*h.HoldBinding) + ">;\n")
		sb.WriteString("};\n")
	}
	return sb.String(), errs
}

// emitCombos renders the combos { compatible = "zmk,combos"; } block (spec
// §4.4.4.3).
func emitCombos(combos []layout.BehaviorDefinition, layerIndex map[string]int, pattern string) (string, []error) {
	if len(combos) == 0 {
		return "", nil
	}
	var body strings.Builder
	var errs []error
	for _, c := range combos {
		if c.Binding == nil {
			errs = append(errs, comboBindingMissing(c.Name))
			continue
		}
		id := lowerID(c.Name, pattern)
		fmt.Fprintf(&body, "    %s: %s {\n", id, id)
		if c.TimeoutMs != nil {
			fmt.Fprintf(&body, "        timeout-ms = <%d>;\n", *c.TimeoutMs)
		}
		body.WriteString("        key-positions = " + serializeIntList(c.KeyPositions) + ";\n")
		body.WriteString("        bindings = <" + serializeBinding(*c.Binding) + ">;\n")
		if len(c.Layers) > 0 {
			body.WriteString("        layers = " + serializeIntList(c.Layers) + ";\n")
		}
		body.WriteString("    };\n")
	}
	var sb strings.Builder
	sb.WriteString("combos {\n    compatible = \"zmk,combos\";\n")
	sb.WriteString(body.String())
	sb.WriteString("};\n")
	return sb.String(), errs
}

// emitInputListeners renders each input listener as a raw DTSI node keyed by
// its listener type (spec §4.4.4.4).
func emitInputListeners(listeners []layout.BehaviorDefinition, pattern string) string {
	var sb strings.Builder
	for _, il := range listeners {
		nodeType := il.ListenerType
		if nodeType == "" {
			nodeType = "input_listener"
		}
		id := lowerID(il.Name, pattern)
		fmt.Fprintf(&sb, "%s: %s {\n", id, nodeType)
		if il.RawNode != "" {
			sb.WriteString(indentLines(il.RawNode, "    "))
			sb.WriteString("\n")
		}
		sb.WriteString("};\n")
	}
	return sb.String()
}

func indentLines(text, indent string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
