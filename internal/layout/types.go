// Package layout implements the typed layout model (spec §3, component C3)
// and its decompose/compose/diff/patch/upgrade transform (component C4).
//
// The model is intentionally a plain Go struct tree rather than a class
// hierarchy with per-behavior-kind subtypes: per DESIGN NOTES §9, binding
// "shapes" are resolved dynamically by the Behavior Registry, not baked into
// the type system.
package layout

import "encoding/json"

// ConfigParam is a single user-facing build configuration override, emitted
// into the generated .conf file (spec §4.4 step 6).
type ConfigParam struct {
	ParamName   string `json:"paramName"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
}

// Binding is a tagged tree: a ZMK behavior code plus recursively nested
// parameters. Leaves have an empty Params slice.
type Binding struct {
	Value  string    `json:"value"`
	Params []Binding `json:"params"`
}

// IsLeaf reports whether b has no nested parameters.
func (b Binding) IsLeaf() bool { return len(b.Params) == 0 }

// BehaviorDefinition covers the four behavior-definition shapes the layout
// can hold (macro, hold-tap, combo, input listener). Only the fields
// relevant to a given shape are populated; DESIGN.md records which DTSI
// emission step (spec §4.4.4) reads which field.
type BehaviorDefinition struct {
	Name string `json:"name"`

	// Macro fields.
	Bindings []Binding `json:"bindings,omitempty"`
	WaitMs   *int      `json:"wait_ms,omitempty"`
	TapMs    *int      `json:"tap_ms,omitempty"`

	// Hold-tap fields. TapBinding/HoldBinding are the exactly-two bindings
	// required by spec §4.4.4.2; they are also reachable via Bindings for
	// uniform "behaviors used" collection (spec §4.4 step 1).
	Flavor                  string   `json:"flavor,omitempty"`
	TappingTermMs           *int     `json:"tapping_term_ms,omitempty"`
	QuickTapMs              *int     `json:"quick_tap_ms,omitempty"`
	RequirePriorIdleMs      *int     `json:"require_prior_idle_ms,omitempty"`
	HoldTriggerKeyPositions []int    `json:"hold_trigger_key_positions,omitempty"`
	HoldTriggerOnRelease    bool     `json:"hold_trigger_on_release,omitempty"`
	TapBinding              *Binding `json:"tap_binding,omitempty"`
	HoldBinding             *Binding `json:"hold_binding,omitempty"`

	// Combo fields.
	TimeoutMs    *int      `json:"timeout_ms,omitempty"`
	KeyPositions []int     `json:"key_positions,omitempty"`
	Binding      *Binding  `json:"binding,omitempty"`
	Layers       []int     `json:"layers,omitempty"`

	// Input listener fields: the listener's raw node type and a free-form
	// DTSI body the generator emits verbatim (spec §4.4.4.4).
	ListenerType string `json:"listener_type,omitempty"`
	RawNode      string `json:"raw_node,omitempty"`
}

// FirmwareBuildRecord is stamped onto a layout by a successful Build Driver
// run (component C8).
type FirmwareBuildRecord struct {
	Date         string `json:"date"`
	Profile      string `json:"profile"`
	FirmwarePath string `json:"firmware_path"`
	FirmwareHash string `json:"firmware_hash"`
	BuildID      string `json:"build_id"`
}

// Layout is the complete in-memory document described in spec §3. Unknown
// top-level fields are captured in Extra and re-emitted on serialization
// (spec §6: "Unknown top-level fields are preserved on round-trip").
type Layout struct {
	Keyboard           string `json:"keyboard"`
	Title              string `json:"title,omitempty"`
	Creator            string `json:"creator,omitempty"`
	Notes              string `json:"notes,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	UUID               string `json:"uuid,omitempty"`
	ParentUUID         string `json:"parent_uuid,omitempty"`
	Date               string `json:"date,omitempty"`
	Locale             string `json:"locale,omitempty"`
	FirmwareAPIVersion string `json:"firmware_api_version,omitempty"`

	Version     string `json:"version,omitempty"`
	BaseVersion string `json:"base_version,omitempty"`
	BaseLayout  string `json:"base_layout,omitempty"`

	Variables        map[string]any `json:"variables,omitempty"`
	ConfigParameters []ConfigParam  `json:"config_parameters,omitempty"`

	LayerNames []string    `json:"layer_names"`
	Layers     [][]Binding `json:"layers"`

	Macros         []BehaviorDefinition `json:"macros,omitempty"`
	HoldTaps       []BehaviorDefinition `json:"hold_taps,omitempty"`
	Combos         []BehaviorDefinition `json:"combos,omitempty"`
	InputListeners []BehaviorDefinition `json:"input_listeners,omitempty"`

	CustomDefinedBehaviors string `json:"custom_defined_behaviors,omitempty"`
	CustomDevicetree       string `json:"custom_devicetree,omitempty"`

	LastFirmwareBuild *FirmwareBuildRecord `json:"last_firmware_build,omitempty"`

	// Extra preserves any top-level JSON field not named above, keyed by
	// field name, so round-tripping never silently drops data.
	Extra map[string]json.RawMessage `json:"-"`
}

// Clone returns a deep copy of l so edit operations (spec §4.3) can mutate a
// scratch copy and only publish it on success.
func (l *Layout) Clone() *Layout {
	data, err := json.Marshal(l)
	if err != nil {
		// Layout was already constructed from valid JSON or programmatically
		// with JSON-marshalable fields; a failure here is a bug, not bad input.
		panic("layout: clone of unmarshalable layout: " + err.Error())
	}
	out := &Layout{}
	if err := json.Unmarshal(data, out); err != nil {
		panic("layout: clone round-trip failed: " + err.Error())
	}
	return out
}
