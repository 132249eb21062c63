package dtsi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caddyglow/glovebox/internal/layout"
)

func TestSerializeBindingLeafIsValueVerbatim(t *testing.T) {
	assert.Equal(t, "&trans", serializeBinding(layout.Binding{Value: "&trans"}))
}

func TestSerializeBindingBehaviorCallIsSpaceSeparated(t *testing.T) {
	assert.Equal(t, "&kp Q", serializeBinding(layout.Binding{
		Value:  "&kp",
		Params: []layout.Binding{{Value: "Q"}},
	}))
	assert.Equal(t, "&mt LSHFT A", serializeBinding(layout.Binding{
		Value: "&mt",
		Params: []layout.Binding{
			{Value: "LSHFT"},
			{Value: "A"},
		},
	}))
}

func TestSerializeBindingNestedModifierFunctionUsesParens(t *testing.T) {
	assert.Equal(t, "LC(LS(A))", serializeBinding(layout.Binding{
		Value: "LC",
		Params: []layout.Binding{{
			Value:  "LS",
			Params: []layout.Binding{{Value: "A"}},
		}},
	}))
	assert.Equal(t, "&kp LC(LS(A))", serializeBinding(layout.Binding{
		Value: "&kp",
		Params: []layout.Binding{{
			Value: "LC",
			Params: []layout.Binding{{
				Value:  "LS",
				Params: []layout.Binding{{Value: "A"}},
			}},
		}},
	}))
}

func TestSerializeBindingListRendersDevicetreeArray(t *testing.T) {
	got := serializeBindingList([]layout.Binding{
		{Value: "&kp", Params: []layout.Binding{{Value: "Q"}}},
		{Value: "&trans"},
	})
	assert.Equal(t, "<&kp Q &trans>", got)
}
