package profile

import (
	"go.yaml.in/yaml/v3"

	"github.com/caddyglow/glovebox/internal/behavior"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// rawProfile is the YAML decode shape of a fully-merged profile tree; it
// exists only to let convert reuse the yaml library's field-tag matching
// instead of hand-walking the generic map.
type rawProfile struct {
	Keyboard    string            `yaml:"keyboard"`
	Description string            `yaml:"description"`
	Vendor      string            `yaml:"vendor"`
	KeyCount    int               `yaml:"key_count"`
	Flash       FlashMethodConfig `yaml:"flash"`
	Build       BuildMethodConfig `yaml:"build"`
	Keymap      *KeymapConfig     `yaml:"keymap"`
	ZMK         ZmkConfig         `yaml:"zmk"`

	// Present only once a firmware variant has been merged on top; a
	// variant's own system_behaviors sit at the document root, not nested
	// under keymap, since the variant fragment is merged into the root tree.
	Branch          string           `yaml:"branch"`
	KconfigOptions  map[string]any   `yaml:"kconfig_options"`
	SystemBehaviors []behavior.Entry `yaml:"system_behaviors"`
}

// treeToProfile re-marshals the merged generic tree to YAML and decodes it
// into the typed KeyboardProfile, the same round-trip technique the layout
// package uses for its generic tree operations (internal/layout/edit.go:
// toTree/fromTree), applied here via YAML instead of JSON since the source
// documents are YAML.
func treeToProfile(tree map[string]any, keyboard, firmware string) (*KeyboardProfile, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, &gloverr.Internal{Op: "profile_convert", Err: err}
	}
	var raw rawProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &gloverr.ConfigError{Op: "profile_convert", Path: keyboard, Reason: err.Error(), Err: err}
	}

	p := &KeyboardProfile{
		KeyboardName:    keyboard,
		Description:     raw.Description,
		Vendor:          raw.Vendor,
		KeyCount:        raw.KeyCount,
		FlashMethod:     raw.Flash,
		BuildMethod:     raw.Build,
		KeymapSection:   raw.Keymap,
		ZMK:             raw.ZMK,
		FirmwareVersion: firmware,
	}

	if firmware != "" {
		p.FirmwareConfig = &FirmwareConfig{
			Branch:          raw.Branch,
			KconfigOptions:  raw.KconfigOptions,
			SystemBehaviors: raw.SystemBehaviors,
		}
	}

	return p, nil
}
