package layout

import (
	"fmt"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// ConflictPolicy controls what Apply does when the layout being patched has
// already diverged from the value a Change expects to find (spec §4.3).
type ConflictPolicy int

const (
	// PreferSource keeps whatever value is already in the layout being
	// patched, discarding the conflicting change.
	PreferSource ConflictPolicy = iota
	// PreferPatch applies the patch's new value regardless of the current
	// state.
	PreferPatch
	// ConflictFail aborts the whole apply with an error on the first
	// conflict.
	ConflictFail
)

// Conflict records a Change whose expected prior state did not match the
// layout being patched.
type Conflict struct {
	Change Change
	Reason string
}

// Apply applies p to l under policy, returning the resulting layout and any
// conflicts that were resolved by policy (empty under ConflictFail, which
// instead returns an error on the first conflict).
func Apply(l *Layout, p *Patch, policy ConflictPolicy) (*Layout, []Conflict, error) {
	out := l.Clone()
	var conflicts []Conflict

	resolve := func(c Change, reason string, conflicted bool) (bool, error) {
		if !conflicted {
			return true, nil
		}
		switch policy {
		case ConflictFail:
			return false, &gloverr.ValidationError{Op: "patch", Path: string(c.Kind), Reason: reason}
		case PreferSource:
			conflicts = append(conflicts, Conflict{Change: c, Reason: reason})
			return false, nil
		case PreferPatch:
			conflicts = append(conflicts, Conflict{Change: c, Reason: reason})
			return true, nil
		default:
			return true, nil
		}
	}

	for _, c := range p.Changes {
		switch c.Kind {
		case ChangeMeta:
			tree, err := toTree(out)
			if err != nil {
				return nil, nil, err
			}
			m := tree.(map[string]any)
			conflicted := !jsonEqual(m[c.Field], c.Old)
			apply, err := resolve(c, fmt.Sprintf("field %q diverged from expected prior value", c.Field), conflicted)
			if err != nil {
				return nil, nil, err
			}
			if apply {
				m[c.Field] = c.New
				newOut, err := fromTree(m)
				if err != nil {
					return nil, nil, err
				}
				out = newOut
			}

		case ChangeAddLayer:
			idx := indexOfLayer(out, c.LayerName)
			conflicted := idx >= 0
			apply, err := resolve(c, fmt.Sprintf("layer %q already exists", c.LayerName), conflicted)
			if err != nil {
				return nil, nil, err
			}
			if apply {
				if idx >= 0 {
					out.Layers[idx] = c.Bindings
				} else {
					out.LayerNames = append(out.LayerNames, c.LayerName)
					out.Layers = append(out.Layers, c.Bindings)
				}
			}

		case ChangeRemoveLayer:
			idx := indexOfLayer(out, c.LayerName)
			if idx < 0 {
				continue // already absent: no-op, not a conflict
			}
			out.LayerNames = removeString(out.LayerNames, idx)
			out.Layers = removeBindings(out.Layers, idx)

		case ChangeBinding:
			idx := indexOfLayer(out, c.LayerName)
			if idx < 0 || c.Position >= len(out.Layers[idx]) {
				conflicts = append(conflicts, Conflict{Change: c, Reason: "target layer or position no longer exists"})
				continue
			}
			current := out.Layers[idx][c.Position]
			conflicted := c.OldBind != nil && !jsonEqual(current, *c.OldBind)
			apply, err := resolve(c, "binding diverged from expected prior value", conflicted)
			if err != nil {
				return nil, nil, err
			}
			if apply && c.NewBind != nil {
				out.Layers[idx][c.Position] = *c.NewBind
			}

		case ChangeAddBehavior, ChangeRemoveBehavior:
			if err := applyBehaviorChange(out, c, &conflicts, resolve); err != nil {
				return nil, nil, err
			}

		case ChangeDTSI:
			var current string
			if c.Field == "custom_devicetree" {
				current = out.CustomDevicetree
			} else {
				current = out.CustomDefinedBehaviors
			}
			oldStr, _ := c.Old.(string)
			conflicted := current != oldStr
			apply, err := resolve(c, fmt.Sprintf("%s diverged from expected prior value", c.Field), conflicted)
			if err != nil {
				return nil, nil, err
			}
			if apply {
				newStr, _ := c.New.(string)
				if c.Field == "custom_devicetree" {
					out.CustomDevicetree = newStr
				} else {
					out.CustomDefinedBehaviors = newStr
				}
			}
		}
	}

	return out, conflicts, nil
}

func indexOfLayer(l *Layout, name string) int {
	for i, n := range l.LayerNames {
		if n == name {
			return i
		}
	}
	return -1
}

func sectionSlice(l *Layout, s BehaviorSection) *[]BehaviorDefinition {
	switch s {
	case SectionMacros:
		return &l.Macros
	case SectionHoldTaps:
		return &l.HoldTaps
	case SectionCombos:
		return &l.Combos
	case SectionInputListeners:
		return &l.InputListeners
	default:
		return nil
	}
}

func applyBehaviorChange(out *Layout, c Change, conflicts *[]Conflict, resolve func(Change, string, bool) (bool, error)) error {
	slicePtr := sectionSlice(out, c.Section)
	if slicePtr == nil || c.Behavior == nil {
		return nil
	}
	idx := -1
	for i, d := range *slicePtr {
		if d.Name == c.Behavior.Name {
			idx = i
			break
		}
	}

	if c.Kind == ChangeRemoveBehavior {
		if idx < 0 {
			return nil // already absent
		}
		conflicted := !jsonEqual((*slicePtr)[idx], *c.Behavior)
		apply, err := resolve(c, fmt.Sprintf("behavior %q diverged before removal", c.Behavior.Name), conflicted)
		if err != nil {
			return err
		}
		if apply {
			*slicePtr = append((*slicePtr)[:idx], (*slicePtr)[idx+1:]...)
		}
		return nil
	}

	// ChangeAddBehavior
	if idx < 0 {
		*slicePtr = append(*slicePtr, *c.Behavior)
		return nil
	}
	conflicted := !jsonEqual((*slicePtr)[idx], *c.Behavior)
	apply, err := resolve(c, fmt.Sprintf("behavior %q already exists with different content", c.Behavior.Name), conflicted)
	if err != nil {
		return err
	}
	if apply {
		(*slicePtr)[idx] = *c.Behavior
	}
	return nil
}
