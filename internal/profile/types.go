// Package profile implements the Profile Resolver (spec component C1): it
// loads keyboard and firmware configuration from one or more YAML files,
// resolves includes depth-first, merges them with the scalar/mapping/
// sequence visitor shared with the layout editor, validates the result
// against the profile schema, and caches the immutable KeyboardProfile it
// produces.
package profile

import "github.com/caddyglow/glovebox/internal/behavior"

// FlashMethodConfig describes how a profile's firmware is matched and
// mounted on the host for flashing (spec §3, consumed by C9/C10).
type FlashMethodConfig struct {
	USBVendorID  string `yaml:"usb_vid"`
	USBProductID string `yaml:"usb_pid"`
	Query        string `yaml:"query"`
	MountMethod  string `yaml:"mount_method"`
}

// BuildMatrixEntry is one row of a build_method's build matrix: one compiler
// invocation, producing one artifact.
type BuildMatrixEntry struct {
	Board        string   `yaml:"board"`
	Shield       string   `yaml:"shield,omitempty"`
	ArtifactName string   `yaml:"artifact_name,omitempty"`
	CMakeArgs    []string `yaml:"cmake_args,omitempty"`
	Snippet      string   `yaml:"snippet,omitempty"`
}

// BuildMethodConfig describes how to build firmware for this profile
// (component C6/C8).
type BuildMethodConfig struct {
	Strategy            string             `yaml:"strategy"` // zmk_config | west | cmake | make | ninja | custom
	Image               string             `yaml:"image"`
	RepositoryURL       string             `yaml:"repository_url,omitempty"`
	DefaultRevision     string             `yaml:"default_revision,omitempty"`
	BuildMatrix         []BuildMatrixEntry `yaml:"build_matrix"`
	RegenerateBuildYAML bool               `yaml:"regenerate_build_matrix,omitempty"`
}

// ZmkConfig carries the ZMK-specific constants and limits a profile needs
// for DTSI generation and validation (component C5).
type ZmkConfig struct {
	CompatibleStrings         map[string]string `yaml:"compatible_strings,omitempty"`
	ValidHoldTapFlavors       []string          `yaml:"valid_holdtap_flavors,omitempty"`
	IdentifierSanitizePattern string            `yaml:"identifier_sanitize_pattern,omitempty"`
	MaxLayers                 int               `yaml:"max_layers,omitempty"`
	MaxMacroParams            int               `yaml:"max_macro_params,omitempty"`
	RequiredHoldtapBindings   int               `yaml:"required_holdtap_bindings,omitempty"`
	WarnManyLayersThreshold   int               `yaml:"warn_many_layers_threshold,omitempty"`
	IsSplit                   bool              `yaml:"is_split,omitempty"`
}

// FirmwareConfig is the variant-specific configuration merged on top of the
// keyboard's base profile for a single named firmware.
type FirmwareConfig struct {
	Branch        string            `yaml:"branch"`
	KconfigOptions map[string]any    `yaml:"kconfig_options,omitempty"`
	SystemBehaviors []behavior.Entry `yaml:"system_behaviors,omitempty"`
}

// GapMarker is the sentinel Rows uses for a spacer position in the visual
// key grid (spec §4.4: "rows: Sequence<Sequence<int | GAP>>").
const GapMarker = -1

// KeymapConfig carries the DTSI template and formatting rules the generator
// reads (component C5).
type KeymapConfig struct {
	Template        string           `yaml:"template,omitempty"`
	Includes        []string         `yaml:"includes,omitempty"`
	KconfigOptions  map[string]any   `yaml:"kconfig_options,omitempty"`
	SystemBehaviors []behavior.Entry `yaml:"system_behaviors,omitempty"`
	FormatRules     map[string]any   `yaml:"format_rules,omitempty"`
	Rows            [][]int          `yaml:"rows,omitempty"`
	DefaultKeyWidth int              `yaml:"default_key_width,omitempty"`
}

// KeyboardProfile is the validated, immutable record produced by Load. Every
// field is populated by merging the base keyboard file with its includes
// and, if a firmware variant was requested, that variant's fragment merged
// last so its fields win (spec §4.1).
type KeyboardProfile struct {
	KeyboardName string
	Description  string
	Vendor       string
	KeyCount     int

	FlashMethod FlashMethodConfig
	BuildMethod BuildMethodConfig

	FirmwareVersion string // empty for a keyboard-only profile
	FirmwareConfig  *FirmwareConfig

	KeymapSection *KeymapConfig
	ZMK           ZmkConfig
}

// IsKeyboardOnly reports whether this profile has no firmware variant
// resolved, in which case any compile-category operation must fail with
// gloverr.ProfileIncomplete.
func (p *KeyboardProfile) IsKeyboardOnly() bool { return p.FirmwareConfig == nil }

// SystemBehaviors returns the profile's vendor-origin behavior entries: the
// firmware variant's, if present, else the keymap section's base set.
func (p *KeyboardProfile) SystemBehaviors() []behavior.Entry {
	if p.FirmwareConfig != nil && len(p.FirmwareConfig.SystemBehaviors) > 0 {
		return p.FirmwareConfig.SystemBehaviors
	}
	if p.KeymapSection != nil {
		return p.KeymapSection.SystemBehaviors
	}
	return nil
}

// BaseIncludes returns the keymap section's unconditional includes, or nil
// for a keyboard-only profile.
func (p *KeyboardProfile) BaseIncludes() []string {
	if p.KeymapSection == nil {
		return nil
	}
	return p.KeymapSection.Includes
}
