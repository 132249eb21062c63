package dtsi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/internal/profile"
)

// emitKconfig merges the profile's base kconfig_options, the firmware
// variant's overrides, and the layout's config_parameters — in that
// precedence order, layout winning — and renders one CONFIG_NAME=value line
// per key, sorted for determinism (spec §4.4 step 6).
func emitKconfig(p *profile.KeyboardProfile, l *layout.Layout) string {
	merged := map[string]any{}
	if p.KeymapSection != nil {
		for k, v := range p.KeymapSection.KconfigOptions {
			merged[k] = v
		}
	}
	if p.FirmwareConfig != nil {
		for k, v := range p.FirmwareConfig.KconfigOptions {
			merged[k] = v
		}
	}
	for _, cp := range l.ConfigParameters {
		merged[cp.ParamName] = cp.Value
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(formatKconfigValue(merged[k]))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatKconfigValue(v any) string {
	switch vv := v.(type) {
	case bool:
		if vv {
			return "y"
		}
		return "n"
	case int:
		return fmt.Sprintf("%d", vv)
	case int64:
		return fmt.Sprintf("%d", vv)
	case float64:
		return fmt.Sprintf("%d", int(vv))
	case string:
		return fmt.Sprintf("%q", vv)
	default:
		return fmt.Sprintf("%q", fmt.Sprintf("%v", vv))
	}
}
