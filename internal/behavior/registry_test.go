package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddyglow/glovebox/internal/layout"
)

func TestNoneAndTransAlwaysPresent(t *testing.T) {
	r, err := New(nil, nil, nil)
	require.NoError(t, err)
	_, ok := r.Lookup("&none")
	assert.True(t, ok)
	_, ok = r.Lookup("&trans")
	assert.True(t, ok)
}

func TestVendorShadowsZMK(t *testing.T) {
	r, err := New([]Entry{{Code: "&kp", DisplayName: "Vendor KP", Params: []ParamSpec{{Name: "keycode", Kind: "string"}}}}, nil, nil)
	require.NoError(t, err)
	e, _ := r.Lookup("&kp")
	assert.Equal(t, "Vendor KP", e.DisplayName)
	assert.Equal(t, OriginVendor, e.Origin)
}

func TestDuplicateSameOriginIsError(t *testing.T) {
	_, err := New([]Entry{
		{Code: "&custom", DisplayName: "One"},
		{Code: "&custom", DisplayName: "Two"},
	}, nil, nil)
	require.Error(t, err)
}

func TestUserEntriesFromLayout(t *testing.T) {
	l := &layout.Layout{
		Macros: []layout.BehaviorDefinition{{Name: "EMAIL"}},
	}
	r, err := New(nil, nil, l)
	require.NoError(t, err)
	e, ok := r.Lookup("&EMAIL")
	require.True(t, ok)
	assert.Equal(t, OriginUser, e.Origin)
}

func TestValidateBindingArity(t *testing.T) {
	r, err := New(nil, nil, nil)
	require.NoError(t, err)

	err = r.ValidateBinding(layout.Binding{Value: "&kp", Params: []layout.Binding{{Value: "Q"}}}, "layers[0][0]")
	assert.NoError(t, err)

	err = r.ValidateBinding(layout.Binding{Value: "&kp"}, "layers[0][0]")
	assert.Error(t, err)

	err = r.ValidateBinding(layout.Binding{Value: "&unknown_behavior"}, "layers[0][0]")
	assert.Error(t, err)
}

func TestRequiredIncludesDeterministicOrder(t *testing.T) {
	r, err := New(nil, []string{"dt-bindings/zmk/keys.h"}, nil)
	require.NoError(t, err)
	used := map[string]bool{"&bt": true, "&rgb_ug": true}
	got := r.RequiredIncludes(used)
	require.Len(t, got, 3)
	assert.Equal(t, "dt-bindings/zmk/keys.h", got[0])
	assert.Equal(t, "dt-bindings/zmk/bt.h", got[1])
	assert.Equal(t, "dt-bindings/zmk/rgb.h", got[2])
}
