package dtsi

import (
	"fmt"
	"strings"

	"github.com/caddyglow/glovebox/internal/behavior"
	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// Result carries the generator's two output artifacts plus any non-fatal
// warnings (spec §4.4: "generate(profile, layout) -> (keymap_source,
// kconfig_source)").
type Result struct {
	Keymap   string
	Kconfig  string
	Warnings []Warning
}

// Generate runs the full DTSI generation algorithm (spec §4.4 steps 1-7).
func Generate(p *profile.KeyboardProfile, l *layout.Layout) (*Result, error) {
	if p.IsKeyboardOnly() {
		return nil, &gloverr.ProfileIncomplete{Keyboard: p.KeyboardName, Operation: "generate DTSI"}
	}

	if p.ZMK.MaxLayers > 0 && len(l.LayerNames) > p.ZMK.MaxLayers {
		return nil, limitExceeded("max_layers", p.ZMK.MaxLayers, len(l.LayerNames))
	}

	layerIndex := map[string]int{}
	for i, n := range l.LayerNames {
		layerIndex[n] = i
	}
	if err := checkLayerReferences(l, layerIndex); err != nil {
		return nil, err
	}

	reg, err := behavior.New(p.SystemBehaviors(), p.BaseIncludes(), l)
	if err != nil {
		return nil, err
	}

	used := collectUsed(l)
	if err := validateUsed(reg, l); err != nil {
		return nil, err
	}
	if p.ZMK.MaxMacroParams > 0 {
		for _, m := range l.Macros {
			if arity := macroArity(m.Bindings); arity > p.ZMK.MaxMacroParams {
				return nil, limitExceeded("max_macro_params", p.ZMK.MaxMacroParams, arity)
			}
		}
	}

	resolvedLayout, err := resolveLayoutVars(l)
	if err != nil {
		return nil, err
	}

	includes := reg.RequiredIncludes(used)
	pattern := p.ZMK.IdentifierSanitizePattern

	var keymap strings.Builder
	if l.CustomDefinedBehaviors != "" {
		keymap.WriteString(l.CustomDefinedBehaviors)
		keymap.WriteString("\n\n")
	}
	for _, inc := range includes {
		fmt.Fprintf(&keymap, "#include <%s>\n", inc)
	}
	keymap.WriteString("\n/ {\n")

	if len(resolvedLayout.Macros) > 0 {
		keymap.WriteString("macros {\n")
		macroBody, macroErrs := emitMacros(resolvedLayout.Macros, pattern)
		if len(macroErrs) > 0 {
			return nil, macroErrs[0]
		}
		keymap.WriteString(indentLines(macroBody, "    "))
		keymap.WriteString("\n};\n\n")
	}

	if len(resolvedLayout.HoldTaps) > 0 {
		keymap.WriteString("behaviors {\n")
		htBody, htErrs := emitHoldTaps(resolvedLayout.HoldTaps, p.ZMK)
		if len(htErrs) > 0 {
			return nil, htErrs[0]
		}
		keymap.WriteString(indentLines(htBody, "    "))
		keymap.WriteString("\n};\n\n")
	}

	comboBody, comboErrs := emitCombos(resolvedLayout.Combos, layerIndex, pattern)
	if len(comboErrs) > 0 {
		return nil, comboErrs[0]
	}
	keymap.WriteString(comboBody)

	keymap.WriteString(emitInputListeners(resolvedLayout.InputListeners, pattern))

	layersBody, layerErrs := emitLayers(resolvedLayout, p.KeymapSection, pattern)
	if len(layerErrs) > 0 {
		return nil, layerErrs[0]
	}
	keymap.WriteString(layersBody)
	keymap.WriteString("};\n")

	if l.CustomDevicetree != "" {
		keymap.WriteString("\n")
		keymap.WriteString(l.CustomDevicetree)
		keymap.WriteString("\n")
	}

	warnings := collectWarnings(p, l, used, reg)

	return &Result{
		Keymap:   keymap.String(),
		Kconfig:  emitKconfig(p, l),
		Warnings: warnings,
	}, nil
}

func checkLayerReferences(l *layout.Layout, layerIndex map[string]int) error {
	layerSwitchCodes := map[string]bool{"&mo": true, "&lt": true, "&to": true, "&tog": true, "&sl": true}
	var walk func(b layout.Binding) error
	walk = func(b layout.Binding) error {
		if layerSwitchCodes[b.Value] && len(b.Params) > 0 {
			target := b.Params[0].Value
			if _, ok := layerIndex[target]; !ok {
				if _, err := parseIntLoose(target); err != nil || !indexInRange(target, len(l.LayerNames)) {
					return unknownLayer(target)
				}
			}
		}
		for _, p := range b.Params {
			if err := walk(p); err != nil {
				return err
			}
		}
		return nil
	}
	for _, layer := range l.Layers {
		for _, b := range layer {
			if err := walk(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateUsed(reg *behavior.Registry, l *layout.Layout) error {
	var walk func(b layout.Binding, path string) error
	walk = func(b layout.Binding, path string) error {
		return reg.ValidateBinding(b, path)
	}
	for i, layer := range l.Layers {
		for j, b := range layer {
			if err := walk(b, fmt.Sprintf("layers[%d][%d]", i, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

func collectWarnings(p *profile.KeyboardProfile, l *layout.Layout, used map[string]bool, reg *behavior.Registry) []Warning {
	var warnings []Warning
	if p.ZMK.WarnManyLayersThreshold > 0 && len(l.LayerNames) > p.ZMK.WarnManyLayersThreshold {
		warnings = append(warnings, Warning{Kind: "many_layers", Message: fmt.Sprintf("layer count %d exceeds warn threshold %d", len(l.LayerNames), p.ZMK.WarnManyLayersThreshold)})
	}
	for name := range l.Variables {
		if !variableReferenced(l, name) {
			warnings = append(warnings, Warning{Kind: "unused_variable", Message: fmt.Sprintf("variable %q is never referenced", name)})
		}
	}
	checkUnreferenced := func(kind, name, code string) {
		if !used[code] {
			warnings = append(warnings, Warning{Kind: kind, Message: fmt.Sprintf("behavior %q is defined but never referenced", name)})
		}
	}
	for _, m := range l.Macros {
		checkUnreferenced("unused_macro", m.Name, "&"+m.Name)
	}
	for _, h := range l.HoldTaps {
		checkUnreferenced("unused_holdtap", h.Name, "&"+h.Name)
	}
	return warnings
}

func variableReferenced(l *layout.Layout, name string) bool {
	needle := "${" + name + "}"
	found := false
	var walk func(b layout.Binding)
	walk = func(b layout.Binding) {
		if strings.Contains(b.Value, needle) {
			found = true
		}
		for _, p := range b.Params {
			walk(p)
		}
	}
	for _, layer := range l.Layers {
		for _, b := range layer {
			walk(b)
		}
	}
	return found
}

func parseIntLoose(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func indexInRange(s string, n int) bool {
	idx, err := parseIntLoose(s)
	return err == nil && idx >= 0 && idx < n
}

