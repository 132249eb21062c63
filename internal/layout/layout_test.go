package layout

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLayout() *Layout {
	return &Layout{
		Keyboard:   "toy42",
		Title:      "T",
		LayerNames: []string{"BASE", "LOWER", "RAISE"},
		Layers: [][]Binding{
			{{Value: "&kp", Params: []Binding{{Value: "Q"}}}, {Value: "&trans"}},
			{{Value: "&kp", Params: []Binding{{Value: "W"}}}, {Value: "&trans"}},
			{{Value: "&kp", Params: []Binding{{Value: "E"}}}, {Value: "&trans"}},
		},
		Macros: []BehaviorDefinition{
			{Name: "EMAIL", Bindings: []Binding{{Value: "&kp", Params: []Binding{{Value: "U"}}}}},
		},
	}
}

func TestRoundTripJSON(t *testing.T) {
	l := sampleLayout()
	data, err := l.Canonical()
	require.NoError(t, err)

	l2, err := Parse(data)
	require.NoError(t, err)

	assert.True(t, Equal(l, l2))
}

func TestUnknownFieldsPreserved(t *testing.T) {
	raw := []byte(`{"keyboard":"toy42","layer_names":["L0"],"layers":[[]],"some_future_field":"kept"}`)
	l, err := Parse(raw)
	require.NoError(t, err)
	require.Contains(t, l.Extra, "some_future_field")

	out, err := l.Canonical()
	require.NoError(t, err)
	assert.Contains(t, string(out), "some_future_field")
}

// TestDecomposeComposeRoundTrip covers spec scenario D.
func TestDecomposeComposeRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := sampleLayout()

	require.NoError(t, Decompose(fs, l, "/out"))
	composed, err := Compose(fs, "/out")
	require.NoError(t, err)

	assert.True(t, Equal(l, composed), "compose(decompose(L)) must equal L byte-for-byte")
}

func TestComposeRejectsSparseIndices(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := sampleLayout()
	require.NoError(t, Decompose(fs, l, "/out"))

	// Corrupt: remove the middle layer file.
	require.NoError(t, fs.Remove("/out/layers/lower.json"))

	_, err := Compose(fs, "/out")
	require.Error(t, err)
}

func TestEditSetField(t *testing.T) {
	l := sampleLayout()
	out, err := l.SetField("title", "New Title")
	require.NoError(t, err)
	assert.Equal(t, "New Title", out.Title)
	assert.Equal(t, "T", l.Title, "original must not be mutated")
}

func TestEditAddRemoveMoveCopyLayer(t *testing.T) {
	l := sampleLayout()

	withLayer, err := l.AddLayer("GAMING", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BASE", "LOWER", "RAISE", "GAMING"}, withLayer.LayerNames)
	assert.Len(t, withLayer.Layers[3], 2)
	for _, b := range withLayer.Layers[3] {
		assert.Equal(t, "&none", b.Value)
	}

	moved, err := withLayer.MoveLayer("GAMING", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"BASE", "GAMING", "LOWER", "RAISE"}, moved.LayerNames)

	copied, err := moved.CopyLayer("BASE", "BASE_COPY")
	require.NoError(t, err)
	assert.Contains(t, copied.LayerNames, "BASE_COPY")

	removed, err := copied.RemoveLayer("GAMING")
	require.NoError(t, err)
	assert.NotContains(t, removed.LayerNames, "GAMING")
}

func TestDiffPatchCancellation(t *testing.T) {
	a := sampleLayout()
	b := a.Clone()
	b.Title = "Changed"
	b.Layers[1][0] = Binding{Value: "&kp", Params: []Binding{{Value: "X"}}}

	patch, err := Diff(a, b, DiffOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, patch.Changes)

	applied, conflicts, err := Apply(a, patch, PreferPatch)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.True(t, Equal(applied, b))

	backPatch, err := Diff(a, applied, DiffOptions{})
	require.NoError(t, err)
	assert.Equal(t, Normalize(patch), backPatch)
}

// TestUpgradePreservesCustomizations covers spec scenario F.
func TestUpgradePreservesCustomizations(t *testing.T) {
	oldMaster := &Layout{
		Keyboard:   "kb",
		Version:    "41",
		LayerNames: []string{"BASE", "LOWER"},
		Layers: [][]Binding{
			{{Value: "&kp", Params: []Binding{{Value: "Q"}}}},
			{{Value: "&kp", Params: []Binding{{Value: "1"}}}},
		},
	}

	custom, err := oldMaster.Clone().AddLayer("GAMING", nil)
	require.NoError(t, err)
	custom.Macros = append(custom.Macros, BehaviorDefinition{Name: "EMAIL", Bindings: []Binding{{Value: "&kp", Params: []Binding{{Value: "U"}}}}})

	newMaster := oldMaster.Clone()
	newMaster.Version = "42"
	newMaster.Layers[1][0] = Binding{Value: "&kp", Params: []Binding{{Value: "EXCL"}}}
	newMaster.Combos = append(newMaster.Combos, BehaviorDefinition{Name: "ESC_COMBO", KeyPositions: []int{0, 1}, Binding: &Binding{Value: "&kp", Params: []Binding{{Value: "ESC"}}}})

	upgraded, _, err := Upgrade(custom, oldMaster, newMaster)
	require.NoError(t, err)

	assert.Equal(t, []string{"BASE", "LOWER", "GAMING"}, upgraded.LayerNames)
	assert.Equal(t, "EXCL", upgraded.Layers[1][0].Params[0].Value)
	require.Len(t, upgraded.Macros, 1)
	assert.Equal(t, "EMAIL", upgraded.Macros[0].Name)
	require.Len(t, upgraded.Combos, 1)
	assert.Equal(t, "ESC_COMBO", upgraded.Combos[0].Name)
}

func TestSlugCollision(t *testing.T) {
	got := UniqueSlugs([]string{"Base Layer", "base-layer", "BASE_LAYER"})
	assert.Equal(t, "base_layer", got[0])
	assert.Equal(t, "base-layer", got[1])
	assert.Equal(t, "base_layer-2", got[2])
}
