package layout

// Upgrade rebases custom onto newMaster: it computes the structural diff
// between oldMaster and newMaster (the master custom was originally derived
// from) and applies it to custom with PreferPatch, so master-side updates
// always win. Custom-only layers and behaviors are untouched by construction
// — the diff never mentions them, since they exist in neither oldMaster nor
// newMaster — which is how "preserve custom-only content" (spec §4.3) falls
// out of reusing Diff/Apply rather than needing bespoke merge logic.
func Upgrade(custom, oldMaster, newMaster *Layout) (*Layout, []Conflict, error) {
	patch, err := Diff(oldMaster, newMaster, DiffOptions{})
	if err != nil {
		return nil, nil, err
	}
	upgraded, conflicts, err := Apply(custom, patch, PreferPatch)
	if err != nil {
		return nil, nil, err
	}
	upgraded.BaseVersion = newMaster.Version
	upgraded.BaseLayout = newMaster.UUID
	return upgraded, conflicts, nil
}
