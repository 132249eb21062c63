package behavior

import (
	"fmt"
	"sort"

	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// Registry is the merged, queryable set of behavior entries for one
// profile+layout pair (spec §4.2). It is built once per operation and never
// mutated afterward.
type Registry struct {
	byCode       map[string]Entry
	baseIncludes []string
}

// New merges the built-in ZMK table, the profile's vendor-origin
// system_behaviors, and the user-defined macros/hold-taps/combos/input
// listeners declared in l (if non-nil), enforcing the user > vendor > zmk
// precedence and rejecting same-origin duplicates (spec §4.2).
func New(systemBehaviors []Entry, baseIncludes []string, l *layout.Layout) (*Registry, error) {
	r := &Registry{byCode: map[string]Entry{}, baseIncludes: append([]string(nil), baseIncludes...)}

	for _, e := range BuiltinZMK() {
		if err := r.add(e); err != nil {
			return nil, err
		}
	}
	for _, e := range systemBehaviors {
		e.Origin = OriginVendor
		if err := r.add(e); err != nil {
			return nil, err
		}
	}
	if l != nil {
		for _, e := range userEntriesFromLayout(l) {
			if err := r.add(e); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// add inserts e, applying user > vendor > zmk precedence: an entry from a
// higher-precedence origin silently shadows a lower one, but two entries at
// the same origin with the same code are an error.
func (r *Registry) add(e Entry) error {
	existing, ok := r.byCode[e.Code]
	if !ok {
		r.byCode[e.Code] = e
		return nil
	}
	switch {
	case e.Origin > existing.Origin:
		r.byCode[e.Code] = e
	case e.Origin < existing.Origin:
		// lower precedence, existing wins, no-op
	default:
		return &gloverr.ConfigError{
			Op:     "behavior_registry",
			Path:   e.Code,
			Reason: fmt.Sprintf("duplicate %s-origin behavior definition for %q", e.Origin, e.Code),
		}
	}
	return nil
}

// Lookup returns the entry for code, if any.
func (r *Registry) Lookup(code string) (Entry, bool) {
	e, ok := r.byCode[code]
	return e, ok
}

// RequiredIncludes returns the profile's base includes followed by the
// deduplicated, sorted union of the includes of every entry named in used,
// per spec §4.2.
func (r *Registry) RequiredIncludes(used map[string]bool) []string {
	seen := map[string]bool{}
	var rest []string
	for _, inc := range r.baseIncludes {
		if !seen[inc] {
			seen[inc] = true
			rest = append(rest, inc)
		}
	}
	var extra []string
	for code := range used {
		entry, ok := r.byCode[code]
		if !ok {
			continue
		}
		for _, inc := range entry.Includes {
			if !seen[inc] {
				seen[inc] = true
				extra = append(extra, inc)
			}
		}
	}
	sort.Strings(extra)
	return append(rest, extra...)
}

// ValidateBinding checks that b.Value is registered and that the number of
// params matches the entry's expected arity, recursing into nested params
// (spec §4.2). &none and &trans (zero-param, IsLeaf) always validate.
func (r *Registry) ValidateBinding(b layout.Binding, path string) error {
	entry, ok := r.byCode[b.Value]
	if !ok {
		return &gloverr.ValidationError{Op: "validate_binding", Path: path, Reason: fmt.Sprintf("unknown behavior code %q", b.Value)}
	}
	if len(b.Params) < entry.ExpectedParams() || len(b.Params) > len(entry.Params) {
		return &gloverr.ValidationError{
			Op:   "validate_binding",
			Path: path,
			Reason: fmt.Sprintf("%q expects %d-%d params, got %d", b.Value, entry.ExpectedParams(), len(entry.Params), len(b.Params)),
		}
	}
	for i, p := range b.Params {
		if entry.Params[i].Kind == "binding" {
			if err := r.ValidateBinding(p, fmt.Sprintf("%s.params[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// userEntriesFromLayout synthesizes a registry entry for every macro,
// hold-tap, combo, and input-listener the layout itself defines, so that
// bindings referencing &MY_MACRO validate against the same layout that
// declares it (spec §4.2: "user-defined behaviors discovered inside a
// specific layout's macros/hold_taps/combos").
func userEntriesFromLayout(l *layout.Layout) []Entry {
	var out []Entry
	for _, m := range l.Macros {
		out = append(out, Entry{Code: "&" + m.Name, DisplayName: m.Name, Origin: OriginUser, Includes: nil})
	}
	for _, h := range l.HoldTaps {
		out = append(out, Entry{
			Code: "&" + h.Name, DisplayName: h.Name, Origin: OriginUser,
			Params: []ParamSpec{{Name: "tap_param", Kind: "string"}, {Name: "hold_param", Kind: "string"}},
		})
	}
	for _, c := range l.Combos {
		out = append(out, Entry{Code: "&" + c.Name, DisplayName: c.Name, Origin: OriginUser})
	}
	for _, il := range l.InputListeners {
		out = append(out, Entry{Code: "&" + il.Name, DisplayName: il.Name, Origin: OriginUser})
	}
	return out
}
