package dtsi

import (
	"fmt"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

func unknownBehavior(code, path string) error {
	return &gloverr.ValidationError{Op: "unknown_behavior", Path: path, Reason: fmt.Sprintf("behavior code %q is not registered", code)}
}

func arityMismatch(code string, expected, got int, path string) error {
	return &gloverr.ValidationError{Op: "arity_mismatch", Path: path, Reason: fmt.Sprintf("%q expects %d params, got %d", code, expected, got)}
}

func unknownLayer(name string) error {
	return &gloverr.ValidationError{Op: "unknown_layer", Path: name, Reason: fmt.Sprintf("layer %q does not exist", name)}
}

func invalidFlavor(got string, allowed []string) error {
	return &gloverr.ValidationError{Op: "invalid_flavor", Path: got, Reason: fmt.Sprintf("flavor %q not in allowed set %v", got, allowed)}
}

func holdTapBindingCount(name string, count int) error {
	return &gloverr.ValidationError{Op: "holdtap_bindings", Path: name, Reason: fmt.Sprintf("hold-tap %q must have exactly two bindings, got %d", name, count)}
}

func comboBindingMissing(name string) error {
	return &gloverr.ValidationError{Op: "combo_binding", Path: name, Reason: fmt.Sprintf("combo %q must have a binding", name)}
}

func limitExceeded(what string, limit, got int) error {
	return &gloverr.ValidationError{Op: "limit_exceeded", Path: what, Reason: fmt.Sprintf("%s limit is %d, got %d", what, limit, got)}
}

// Warning is a non-fatal diagnostic surfaced alongside a successful generate
// (spec §4.4: "Warnings (non-fatal)").
type Warning struct {
	Kind    string
	Message string
}
