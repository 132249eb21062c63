package dtsi

import (
	"fmt"
	"strings"

	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/internal/profile"
)

// emitLayers renders the keymap { compatible = "zmk,keymap"; } node, one
// child per layer_names entry, named layer_<slug(name)> (spec §4.4 step 5).
func emitLayers(l *layout.Layout, km *profile.KeymapConfig, pattern string) (string, []error) {
	var errs []error
	if km != nil && km.Rows != nil {
		for i, layer := range l.Layers {
			flatLen := 0
			for _, row := range km.Rows {
				for _, pos := range row {
					if pos != profile.GapMarker {
						flatLen++
					}
				}
			}
			if flatLen != len(layer) {
				errs = append(errs, limitExceeded(fmt.Sprintf("layers[%d] key_count", i), flatLen, len(layer)))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("keymap {\n    compatible = \"zmk,keymap\";\n\n")
	for i, name := range l.LayerNames {
		nodeName := "layer_" + lowerID(name, pattern)
		fmt.Fprintf(&sb, "    %s {\n", nodeName)
		sb.WriteString("        bindings = " + formatLayerGrid(l.Layers[i], km) + ";\n")
		sb.WriteString("    };\n\n")
	}
	sb.WriteString("};\n")
	return sb.String(), errs
}

// formatLayerGrid serializes one layer's bindings row-by-row per the
// profile's visual grid (km.Rows), or as one flat line if no grid is
// configured. Output is deterministic given the same inputs (spec §4.4:
// "Layer formatting").
func formatLayerGrid(bindings []layout.Binding, km *profile.KeymapConfig) string {
	if km == nil || len(km.Rows) == 0 {
		return serializeBindingList(bindings)
	}
	width := km.DefaultKeyWidth
	if width <= 0 {
		width = 1
	}
	var sb strings.Builder
	sb.WriteString("<\n")
	for _, row := range km.Rows {
		var line strings.Builder
		line.WriteString("            ")
		for _, pos := range row {
			if pos == profile.GapMarker {
				line.WriteString(strings.Repeat(" ", padWidth(width)))
				continue
			}
			if pos < 0 || pos >= len(bindings) {
				continue
			}
			rendered := serializeBinding(bindings[pos])
			line.WriteString(rendered)
			if pad := padWidth(width) - len(rendered); pad > 0 {
				line.WriteString(strings.Repeat(" ", pad))
			}
			line.WriteString(" ")
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}
	sb.WriteString("        >")
	return sb.String()
}

func padWidth(defaultKeyWidth int) int {
	return defaultKeyWidth * 4
}
