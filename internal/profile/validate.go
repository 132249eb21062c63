package profile

import (
	"fmt"
	"regexp"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

var (
	hexIDPattern     = regexp.MustCompile(`^0x[0-9a-fA-F]{4}$`)
	kconfigPattern   = regexp.MustCompile(`^CONFIG_[A-Z0-9_]+$`)
	behaviorPrefix   = "&"
	requiredTopLevel = []string{"keyboard", "description", "vendor", "key_count", "flash", "build"}
)

// validateTree checks the merged document against the profile schema (spec
// §4.1) before it is converted into a KeyboardProfile. withFirmware
// indicates a firmware variant was merged in, so the firmware's branch is
// also checked.
func validateTree(tree map[string]any, withFirmware bool) error {
	for _, field := range requiredTopLevel {
		if _, ok := tree[field]; !ok {
			return &gloverr.SchemaError{Field: field, Reason: "required field is missing"}
		}
	}

	flash, _ := tree["flash"].(map[string]any)
	if vid, ok := flash["usb_vid"].(string); ok && vid != "" && !hexIDPattern.MatchString(vid) {
		return &gloverr.SchemaError{Field: "flash.usb_vid", Reason: fmt.Sprintf("%q does not match ^0x[0-9a-fA-F]{4}$", vid)}
	}
	if pid, ok := flash["usb_pid"].(string); ok && pid != "" && !hexIDPattern.MatchString(pid) {
		return &gloverr.SchemaError{Field: "flash.usb_pid", Reason: fmt.Sprintf("%q does not match ^0x[0-9a-fA-F]{4}$", pid)}
	}

	keyCount, err := asInt(tree["key_count"])
	if err != nil || keyCount <= 0 {
		return &gloverr.SchemaError{Field: "key_count", Reason: "must be a positive integer"}
	}

	if withFirmware {
		if branch, ok := tree["branch"].(string); !ok || branch == "" {
			return &gloverr.SchemaError{Field: "branch", Reason: "firmware variant must declare a non-empty branch"}
		}
	}

	if kconfig, ok := tree["kconfig_options"].(map[string]any); ok {
		if err := validateKconfigKeys(kconfig); err != nil {
			return err
		}
	}
	if zmk, ok := tree["zmk"].(map[string]any); ok {
		if v, present := zmk["is_split"]; present {
			if _, ok := v.(bool); !ok {
				return &gloverr.SchemaError{Field: "zmk.is_split", Reason: "must be a boolean"}
			}
		}
	}
	if keymap, ok := tree["keymap"].(map[string]any); ok {
		if kconfig, ok := keymap["kconfig_options"].(map[string]any); ok {
			if err := validateKconfigKeys(kconfig); err != nil {
				return err
			}
		}
		if behaviors, ok := keymap["system_behaviors"].([]any); ok {
			if err := validateBehaviorCodes(behaviors); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateKconfigKeys(kconfig map[string]any) error {
	for k := range kconfig {
		if !kconfigPattern.MatchString(k) {
			return &gloverr.SchemaError{Field: "kconfig_options." + k, Reason: "option names must match ^CONFIG_[A-Z0-9_]+$"}
		}
	}
	return nil
}

func validateBehaviorCodes(behaviors []any) error {
	for _, b := range behaviors {
		m, ok := b.(map[string]any)
		if !ok {
			continue
		}
		code, _ := m["code"].(string)
		if code == "" || code[:1] != behaviorPrefix {
			return &gloverr.SchemaError{Field: "system_behaviors[].code", Reason: fmt.Sprintf("behavior code %q must begin with %q", code, behaviorPrefix)}
		}
	}
	return nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("not a number")
	}
}
