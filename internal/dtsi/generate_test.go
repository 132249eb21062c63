package dtsi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/internal/profile"
)

func testProfile() *profile.KeyboardProfile {
	return &profile.KeyboardProfile{
		KeyboardName: "toy42",
		KeyCount:     2,
		KeymapSection: &profile.KeymapConfig{
			Includes:       []string{"dt-bindings/zmk/matrix_transform.h"},
			KconfigOptions: map[string]any{"CONFIG_ZMK_SLEEP": true},
			Rows:           [][]int{{0, 1}},
		},
		FirmwareConfig: &profile.FirmwareConfig{Branch: "main"},
		ZMK: profile.ZmkConfig{
			ValidHoldTapFlavors: []string{"tap-preferred", "hold-preferred"},
			MaxLayers:           10,
		},
	}
}

func testLayout() *layout.Layout {
	return &layout.Layout{
		Keyboard:   "toy42",
		LayerNames: []string{"BASE"},
		Layers: [][]Binding{
			{{Value: "&kp", Params: []Binding{{Value: "Q"}}}, {Value: "&mo", Params: []Binding{{Value: "0"}}}},
		},
	}
}

type Binding = layout.Binding

func TestGenerateBasic(t *testing.T) {
	p := testProfile()
	l := testLayout()
	res, err := Generate(p, l)
	require.NoError(t, err)
	assert.Contains(t, res.Keymap, "zmk,keymap")
	assert.Contains(t, res.Keymap, "layer_base")
	assert.Contains(t, res.Keymap, "dt-bindings/zmk/matrix_transform.h")
	assert.Contains(t, res.Kconfig, "CONFIG_ZMK_SLEEP=y")
}

func TestGenerateUnknownBehavior(t *testing.T) {
	p := testProfile()
	l := testLayout()
	l.Layers[0][0] = Binding{Value: "&bogus"}
	_, err := Generate(p, l)
	require.Error(t, err)
}

func TestGenerateKeyboardOnlyProfileFails(t *testing.T) {
	p := testProfile()
	p.FirmwareConfig = nil
	_, err := Generate(p, testLayout())
	require.Error(t, err)
}

func TestGenerateVariableSubstitution(t *testing.T) {
	p := testProfile()
	l := testLayout()
	l.Variables = map[string]any{"MOD": "LGUI"}
	l.Layers[0][0] = Binding{Value: "&kp", Params: []Binding{{Value: "${MOD}"}}}
	res, err := Generate(p, l)
	require.NoError(t, err)
	assert.Contains(t, res.Keymap, "LGUI")
}

func TestGenerateUndefinedVariableFails(t *testing.T) {
	p := testProfile()
	l := testLayout()
	l.Layers[0][0] = Binding{Value: "&kp", Params: []Binding{{Value: "${UNDEFINED}"}}}
	_, err := Generate(p, l)
	require.Error(t, err)
}

func TestGenerateMacroArity(t *testing.T) {
	p := testProfile()
	l := testLayout()
	l.Macros = []layout.BehaviorDefinition{
		{Name: "EMAIL", Bindings: []Binding{
			{Value: "&macro_tap", Params: []Binding{{Value: "&kp", Params: []Binding{{Value: "U"}}}}},
		}},
	}
	res, err := Generate(p, l)
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Keymap, "#binding-cells = <0>"))
}

func TestGenerateHoldTapRequiresTwoBindings(t *testing.T) {
	p := testProfile()
	l := testLayout()
	l.HoldTaps = []layout.BehaviorDefinition{{Name: "HM", Flavor: "tap-preferred", TapBinding: &Binding{Value: "&kp", Params: []Binding{{Value: "A"}}}}}
	_, err := Generate(p, l)
	require.Error(t, err)
}

func TestGenerateUnknownLayerReference(t *testing.T) {
	p := testProfile()
	l := testLayout()
	l.Layers[0][1] = Binding{Value: "&mo", Params: []Binding{{Value: "5"}}}
	_, err := Generate(p, l)
	require.Error(t, err)
}
