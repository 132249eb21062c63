package dtsi

import (
	"strconv"
	"strings"

	"github.com/caddyglow/glovebox/internal/layout"
)

// serializeBinding renders a binding as `value` if it has no params. A
// `&`-prefixed behavior call renders its params space-separated with no
// wrapping parens (`&kp Q`, `&mt LSHFT A`) per ZMK devicetree bindings
// syntax; a non-`&` value is a nested modifier function and renders its
// params parens-wrapped and comma-free (`LC(LS(A))`), recursing so deeper
// nesting is preserved verbatim (spec §4.4: "Binding serialization").
func serializeBinding(b layout.Binding) string {
	if b.IsLeaf() {
		return b.Value
	}
	var parts []string
	for _, p := range b.Params {
		parts = append(parts, serializeBinding(p))
	}
	if strings.HasPrefix(b.Value, "&") {
		return b.Value + " " + strings.Join(parts, " ")
	}
	var sb strings.Builder
	sb.WriteString(b.Value)
	sb.WriteString("(")
	sb.WriteString(strings.Join(parts, " "))
	sb.WriteString(")")
	return sb.String()
}

// serializeBindingList renders a sequence of bindings as `<a b c>`, ZMK's
// devicetree array syntax.
func serializeBindingList(bindings []layout.Binding) string {
	var parts []string
	for _, b := range bindings {
		parts = append(parts, serializeBinding(b))
	}
	return "<" + strings.Join(parts, " ") + ">"
}

// serializeIntList renders a []int as `<1 2 3>`.
func serializeIntList(vals []int) string {
	var parts []string
	for _, v := range vals {
		parts = append(parts, strconv.Itoa(v))
	}
	return "<" + strings.Join(parts, " ") + ">"
}
