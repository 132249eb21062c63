// Package treevisit implements the generic scalar/mapping/sequence/null tree
// visitor used by both the profile resolver's include merge (spec §4.1) and
// the layout editor's merge operation (spec §4.3) — one merge algorithm
// instead of two, per DESIGN NOTES §9 ("the merge algorithm is a visitor
// over a generic tree of scalar | mapping | sequence | null").
package treevisit

// Merge applies the three-rule visitor: scalars replace, mappings deep-merge
// key by key, and sequences replace wholesale unless the incoming mapping at
// that key carries a sibling "<append>": true marker, in which case the
// sequences concatenate (base elements first).
func Merge(base, incoming any) any {
	incomingMap, ok := incoming.(map[string]any)
	if !ok {
		return incoming
	}
	baseMap, _ := base.(map[string]any)
	if baseMap == nil {
		baseMap = map[string]any{}
	}
	appendMode, _ := incomingMap["<append>"].(bool)

	out := make(map[string]any, len(baseMap)+len(incomingMap))
	for k, v := range baseMap {
		out[k] = v
	}
	for k, v := range incomingMap {
		if k == "<append>" {
			continue
		}
		existing := out[k]
		switch vv := v.(type) {
		case map[string]any:
			out[k] = Merge(existing, vv)
		case []any:
			if appendMode {
				if existingSeq, ok := existing.([]any); ok {
					combined := make([]any, 0, len(existingSeq)+len(vv))
					combined = append(combined, existingSeq...)
					combined = append(combined, vv...)
					out[k] = combined
					continue
				}
			}
			out[k] = vv
		default:
			out[k] = v
		}
	}
	return out
}
