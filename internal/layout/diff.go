package layout

import (
	"encoding/json"
	"fmt"
)

// ChangeKind enumerates the structural patch operations from spec §4.3.
type ChangeKind string

const (
	ChangeMeta           ChangeKind = "meta"            // a metadata scalar field changed
	ChangeAddLayer       ChangeKind = "add_layer"        // a layer present only in B
	ChangeRemoveLayer    ChangeKind = "remove_layer"     // a layer present only in A
	ChangeBinding        ChangeKind = "binding"          // a per-layer per-position binding changed
	ChangeAddBehavior    ChangeKind = "add_behavior"     // a macro/hold-tap/combo present only in B
	ChangeRemoveBehavior ChangeKind = "remove_behavior"  // a macro/hold-tap/combo present only in A
	ChangeDTSI           ChangeKind = "dtsi"             // custom_devicetree or custom_defined_behaviors changed
)

// BehaviorSection names the four behavior-definition lists a Change can
// target.
type BehaviorSection string

const (
	SectionMacros         BehaviorSection = "macros"
	SectionHoldTaps       BehaviorSection = "hold_taps"
	SectionCombos         BehaviorSection = "combos"
	SectionInputListeners BehaviorSection = "input_listeners"
)

// Change is one entry in a Patch's ordered mutation sequence.
type Change struct {
	Kind ChangeKind `json:"kind"`

	// ChangeMeta / ChangeDTSI
	Field string `json:"field,omitempty"`
	Old   any    `json:"old,omitempty"`
	New   any    `json:"new,omitempty"`

	// ChangeAddLayer / ChangeRemoveLayer / ChangeBinding
	LayerName string    `json:"layer_name,omitempty"`
	Position  int       `json:"position,omitempty"`
	Bindings  []Binding `json:"bindings,omitempty"`
	OldBind   *Binding  `json:"old_binding,omitempty"`
	NewBind   *Binding  `json:"new_binding,omitempty"`
	AtIndex   int       `json:"at_index,omitempty"`

	// ChangeAddBehavior / ChangeRemoveBehavior
	Section  BehaviorSection     `json:"section,omitempty"`
	Behavior *BehaviorDefinition `json:"behavior,omitempty"`
}

// Patch is a normalized, ordered sequence of changes taking a source layout
// to a target layout (DESIGN NOTES §9).
type Patch struct {
	Changes []Change `json:"changes"`
}

// DiffOptions tunes which sections Diff compares; the zero value compares
// everything.
type DiffOptions struct {
	SkipMeta     bool
	SkipDTSI     bool
}

var metaFields = []string{"title", "creator", "notes", "version", "base_version", "base_layout", "locale", "firmware_api_version"}

// Diff produces a structural patch covering metadata scalar changes, layer
// adds/removes, per-layer per-position binding changes, behavior
// additions/removals, and optional DTSI sections (spec §4.3).
func Diff(a, b *Layout, opts DiffOptions) (*Patch, error) {
	p := &Patch{}

	if !opts.SkipMeta {
		av, err := toTree(a)
		if err != nil {
			return nil, err
		}
		bv, err := toTree(b)
		if err != nil {
			return nil, err
		}
		am, _ := av.(map[string]any)
		bm, _ := bv.(map[string]any)
		for _, f := range metaFields {
			if !jsonEqual(am[f], bm[f]) {
				p.Changes = append(p.Changes, Change{Kind: ChangeMeta, Field: f, Old: am[f], New: bm[f]})
			}
		}
	}

	bIndex := map[string]int{}
	for i, n := range b.LayerNames {
		bIndex[n] = i
	}
	aIndex := map[string]int{}
	for i, n := range a.LayerNames {
		aIndex[n] = i
	}

	for _, n := range a.LayerNames {
		if _, ok := bIndex[n]; !ok {
			p.Changes = append(p.Changes, Change{Kind: ChangeRemoveLayer, LayerName: n})
		}
	}
	for _, n := range b.LayerNames {
		i, ok := aIndex[n]
		if !ok {
			p.Changes = append(p.Changes, Change{Kind: ChangeAddLayer, LayerName: n, Bindings: b.Layers[bIndex[n]]})
			continue
		}
		aBind := a.Layers[i]
		bBind := b.Layers[bIndex[n]]
		limit := len(aBind)
		if len(bBind) < limit {
			limit = len(bBind)
		}
		for pos := 0; pos < limit; pos++ {
			if !jsonEqual(aBind[pos], bBind[pos]) {
				oldB, newB := aBind[pos], bBind[pos]
				p.Changes = append(p.Changes, Change{Kind: ChangeBinding, LayerName: n, Position: pos, OldBind: &oldB, NewBind: &newB})
			}
		}
	}

	diffSection := func(section BehaviorSection, as, bs []BehaviorDefinition) {
		aNames := map[string]BehaviorDefinition{}
		for _, d := range as {
			aNames[d.Name] = d
		}
		bNames := map[string]BehaviorDefinition{}
		for _, d := range bs {
			bNames[d.Name] = d
		}
		for _, d := range as {
			if _, ok := bNames[d.Name]; !ok {
				beh := d
				p.Changes = append(p.Changes, Change{Kind: ChangeRemoveBehavior, Section: section, Behavior: &beh})
			}
		}
		for _, d := range bs {
			if existing, ok := aNames[d.Name]; !ok || !jsonEqual(existing, d) {
				beh := d
				p.Changes = append(p.Changes, Change{Kind: ChangeAddBehavior, Section: section, Behavior: &beh})
			}
		}
	}
	diffSection(SectionMacros, a.Macros, b.Macros)
	diffSection(SectionHoldTaps, a.HoldTaps, b.HoldTaps)
	diffSection(SectionCombos, a.Combos, b.Combos)
	diffSection(SectionInputListeners, a.InputListeners, b.InputListeners)

	if !opts.SkipDTSI {
		if a.CustomDevicetree != b.CustomDevicetree {
			p.Changes = append(p.Changes, Change{Kind: ChangeDTSI, Field: "custom_devicetree", Old: a.CustomDevicetree, New: b.CustomDevicetree})
		}
		if a.CustomDefinedBehaviors != b.CustomDefinedBehaviors {
			p.Changes = append(p.Changes, Change{Kind: ChangeDTSI, Field: "custom_defined_behaviors", Old: a.CustomDefinedBehaviors, New: b.CustomDefinedBehaviors})
		}
	}

	return Normalize(p), nil
}

// Normalize removes no-op changes (e.g. a binding "change" where old==new
// after JSON round-tripping), required by spec §8 property 3.
func Normalize(p *Patch) *Patch {
	out := &Patch{}
	for _, c := range p.Changes {
		if c.Kind == ChangeBinding && c.OldBind != nil && c.NewBind != nil && jsonEqual(*c.OldBind, *c.NewBind) {
			continue
		}
		if c.Kind == ChangeMeta && jsonEqual(c.Old, c.New) {
			continue
		}
		out.Changes = append(out.Changes, c)
	}
	return out
}

func jsonEqual(a, b any) bool {
	da, errA := json.Marshal(a)
	db, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
	return string(da) == string(db)
}
