// Package behavior implements the Behavior Registry (spec component C2): the
// catalog of legal ZMK behavior codes, their arity, and the DTSI includes each
// one requires, merged from the built-in ZMK table, a profile's
// system_behaviors, and any user-defined macros/hold-taps/combos discovered
// in a specific layout.
package behavior

import "github.com/caddyglow/glovebox/internal/layout"

// Origin ranks where a behavior entry came from; it decides which entry
// wins when two entries share a code (user > vendor > zmk).
type Origin int

const (
	OriginZMK Origin = iota
	OriginVendor
	OriginUser
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginVendor:
		return "vendor"
	default:
		return "zmk"
	}
}

// UnmarshalYAML lets a profile's system_behaviors list spell the origin as
// "zmk" | "vendor" | "user"; an empty or unrecognized value maps to vendor,
// since profile-supplied entries are vendor-origin by definition. An absent
// field leaves the zero value, zmk (New always overwrites it anyway).
func (o *Origin) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "user":
		*o = OriginUser
	case "zmk":
		*o = OriginZMK
	default:
		*o = OriginVendor
	}
	return nil
}

// ParamSpec describes one positional parameter a behavior binding accepts.
type ParamSpec struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // "int" | "string" | "binding" (nested, recursive)
	Optional bool   `yaml:"optional,omitempty"`
}

// Entry is one registered behavior code.
type Entry struct {
	Code        string      `yaml:"code"`
	DisplayName string      `yaml:"display_name"`
	Description string      `yaml:"description,omitempty"`
	Origin      Origin      `yaml:"origin,omitempty"`
	Includes    []string    `yaml:"includes,omitempty"`
	Params      []ParamSpec `yaml:"params,omitempty"`
}

// ExpectedParams returns the number of non-optional leading params, which is
// also the minimum arity validate_binding accepts.
func (e Entry) ExpectedParams() int {
	n := 0
	for _, p := range e.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}

// Binding is the subset of layout.Binding the registry needs to validate;
// kept as an alias rather than a new type so callers pass layout.Binding
// values directly.
type Binding = layout.Binding
