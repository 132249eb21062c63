package layout

import (
	"encoding/json"
	"fmt"

	"github.com/caddyglow/glovebox/internal/treevisit"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// toTree renders a layout as a generic scalar|mapping|sequence tree, the
// same representation the merge visitor in the profile resolver uses
// (DESIGN NOTES §9: "the merge algorithm is a visitor over a generic tree").
// Edit operations reuse it so a single path-addressing implementation serves
// both the profile includes and layout edits.
func toTree(l *Layout) (any, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func fromTree(tree any) (*Layout, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func editErr(op, path string, err error) error {
	return &gloverr.ValidationError{Op: op, Path: path, Reason: err.Error(), Err: err}
}

// SetField sets the value at path, creating it if absent, and returns a new
// layout — the original is never mutated (spec §4.3: edits are transactional
// on an in-memory copy).
func (l *Layout) SetField(path string, value any) (*Layout, error) {
	tokens, err := parsePath(path)
	if err != nil {
		return nil, editErr("set_field", path, err)
	}
	tree, err := toTree(l)
	if err != nil {
		return nil, editErr("set_field", path, err)
	}
	newTree, err := applyPath(tree, tokens, func(existing any, found bool) (mutation, error) {
		return mutation{value: value}, nil
	})
	if err != nil {
		return nil, editErr("set_field", path, err)
	}
	return fromTree(newTree)
}

// Unset removes the value at path.
func (l *Layout) Unset(path string) (*Layout, error) {
	tokens, err := parsePath(path)
	if err != nil {
		return nil, editErr("unset", path, err)
	}
	tree, err := toTree(l)
	if err != nil {
		return nil, editErr("unset", path, err)
	}
	newTree, err := applyPath(tree, tokens, func(existing any, found bool) (mutation, error) {
		if !found {
			return mutation{}, fmt.Errorf("nothing to unset")
		}
		return mutation{remove: true}, nil
	})
	if err != nil {
		return nil, editErr("unset", path, err)
	}
	return fromTree(newTree)
}

// Merge deep-merges mapping into the value at path, using the three-rule
// visitor defined in spec §4.1 (scalars replace, mappings deep-merge,
// sequences replace wholesale unless the receiver carries "<append>: true").
func (l *Layout) Merge(path string, mapping map[string]any) (*Layout, error) {
	tokens, err := parsePath(path)
	if err != nil {
		return nil, editErr("merge", path, err)
	}
	tree, err := toTree(l)
	if err != nil {
		return nil, editErr("merge", path, err)
	}
	newTree, err := applyPath(tree, tokens, func(existing any, found bool) (mutation, error) {
		incoming := make(map[string]any, len(mapping))
		for k, v := range mapping {
			incoming[k] = v
		}
		return mutation{value: treevisit.Merge(existing, incoming)}, nil
	})
	if err != nil {
		return nil, editErr("merge", path, err)
	}
	return fromTree(newTree)
}

// Append appends value to the sequence at path.
func (l *Layout) Append(path string, value any) (*Layout, error) {
	tokens, err := parsePath(path)
	if err != nil {
		return nil, editErr("append", path, err)
	}
	tree, err := toTree(l)
	if err != nil {
		return nil, editErr("append", path, err)
	}
	newTree, err := applyPath(tree, tokens, func(existing any, found bool) (mutation, error) {
		seq, _ := existing.([]any)
		seq = append(seq, value)
		return mutation{value: seq}, nil
	})
	if err != nil {
		return nil, editErr("append", path, err)
	}
	return fromTree(newTree)
}

// AddLayer inserts a new, all-&none layer named name at position (or at the
// end if position is nil).
func (l *Layout) AddLayer(name string, position *int) (*Layout, error) {
	out := l.Clone()
	for _, existing := range out.LayerNames {
		if existing == name {
			return nil, editErr("add_layer", "layer_names", fmt.Errorf("layer %q already exists", name))
		}
	}
	keyCount := 0
	if len(out.Layers) > 0 {
		keyCount = len(out.Layers[0])
	}
	blank := make([]Binding, keyCount)
	for i := range blank {
		blank[i] = Binding{Value: "&none"}
	}

	pos := len(out.LayerNames)
	if position != nil {
		pos = *position
	}
	if pos < 0 || pos > len(out.LayerNames) {
		return nil, editErr("add_layer", "position", fmt.Errorf("position %d out of range", pos))
	}

	out.LayerNames = insertString(out.LayerNames, pos, name)
	out.Layers = insertBindings(out.Layers, pos, blank)
	return out, nil
}

// RemoveLayer deletes the layer identified by name or index.
func (l *Layout) RemoveLayer(identifier string) (*Layout, error) {
	out := l.Clone()
	idx, err := out.resolveLayerIndex(identifier)
	if err != nil {
		return nil, editErr("remove_layer", identifier, err)
	}
	out.LayerNames = removeString(out.LayerNames, idx)
	out.Layers = removeBindings(out.Layers, idx)
	return out, nil
}

// MoveLayer relocates the named layer to position.
func (l *Layout) MoveLayer(name string, position int) (*Layout, error) {
	out := l.Clone()
	idx, err := out.resolveLayerIndex(name)
	if err != nil {
		return nil, editErr("move_layer", name, err)
	}
	if position < 0 || position >= len(out.LayerNames) {
		return nil, editErr("move_layer", "position", fmt.Errorf("position %d out of range", position))
	}
	n := out.LayerNames[idx]
	b := out.Layers[idx]
	out.LayerNames = removeString(out.LayerNames, idx)
	out.Layers = removeBindings(out.Layers, idx)
	out.LayerNames = insertString(out.LayerNames, position, n)
	out.Layers = insertBindings(out.Layers, position, b)
	return out, nil
}

// CopyLayer duplicates the layer named src under a new name dst, appended
// at the end.
func (l *Layout) CopyLayer(src, dst string) (*Layout, error) {
	out := l.Clone()
	idx, err := out.resolveLayerIndex(src)
	if err != nil {
		return nil, editErr("copy_layer", src, err)
	}
	for _, existing := range out.LayerNames {
		if existing == dst {
			return nil, editErr("copy_layer", dst, fmt.Errorf("layer %q already exists", dst))
		}
	}
	copied := make([]Binding, len(out.Layers[idx]))
	copy(copied, out.Layers[idx])
	out.LayerNames = append(out.LayerNames, dst)
	out.Layers = append(out.Layers, copied)
	return out, nil
}

func (l *Layout) resolveLayerIndex(identifier string) (int, error) {
	for i, n := range l.LayerNames {
		if n == identifier {
			return i, nil
		}
	}
	var idx int
	if _, err := fmt.Sscanf(identifier, "%d", &idx); err == nil && idx >= 0 && idx < len(l.LayerNames) {
		return idx, nil
	}
	return 0, fmt.Errorf("unknown layer %q", identifier)
}

func insertString(s []string, pos int, v string) []string {
	out := make([]string, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, v)
	out = append(out, s[pos:]...)
	return out
}

func removeString(s []string, idx int) []string {
	out := make([]string, 0, len(s)-1)
	out = append(out, s[:idx]...)
	out = append(out, s[idx+1:]...)
	return out
}

func insertBindings(s [][]Binding, pos int, v []Binding) [][]Binding {
	out := make([][]Binding, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, v)
	out = append(out, s[pos:]...)
	return out
}

func removeBindings(s [][]Binding, idx int) [][]Binding {
	out := make([][]Binding, 0, len(s)-1)
	out = append(out, s[:idx]...)
	out = append(out, s[idx+1:]...)
	return out
}

