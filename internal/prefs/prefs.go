// Package prefs implements the preferences store (spec §1/§6): the
// external collaborator the core is handed explicitly rather than reading
// the environment or a fixed path itself. It owns <user_config_dir>/
// config.{yaml|json}, the installed-profile directories, and the master
// layout directory, and resolves well-known settings from either the file
// or an environment variable override.
package prefs

import (
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// Env is the narrow environment-reading seam; production code wires
// osEnv (backed by os.Getenv/os.LookupEnv), tests inject a map.
type Env interface {
	Lookup(key string) (string, bool)
}

// MapEnv is a test-friendly Env backed by a plain map.
type MapEnv map[string]string

func (m MapEnv) Lookup(key string) (string, bool) { v, ok := m[key]; return v, ok }

// Well-known environment variable names (spec §6: "one per well-known
// setting").
const (
	EnvDefaultProfile      = "GLOVEBOX_DEFAULT_PROFILE"
	EnvDefaultLayoutFile   = "GLOVEBOX_DEFAULT_LAYOUT_FILE"
	EnvCacheRoot           = "GLOVEBOX_CACHE_ROOT"
	EnvKeyboardSearchPaths = "GLOVEBOX_KEYBOARD_SEARCH_PATHS"
)

// Config is the on-disk preferences document (spec §6:
// `<user_config_dir>/config.{yaml|json}`).
type Config struct {
	DefaultProfile      string   `yaml:"default_profile,omitempty"`
	DefaultLayoutFile   string   `yaml:"default_layout_file,omitempty"`
	CacheRoot           string   `yaml:"cache_root,omitempty"`
	KeyboardSearchPaths []string `yaml:"keyboard_search_paths,omitempty"`
	ContainerEngine     string   `yaml:"container_engine,omitempty"`
	FlashRetries        int      `yaml:"flash_retries,omitempty"`
}

// Store owns the preferences document plus the fixed persisted-state
// directory layout under userConfigDir (spec §6):
//
//	<user_config_dir>/
//	  config.yaml
//	  keyboards/<name>.yaml
//	  installed.json
//	  masters/<keyboard>/<ver>.json
type Store struct {
	fs            afero.Fs
	env           Env
	userConfigDir string
	config        Config
}

// Load reads config.yaml (falling back to config.json) from userConfigDir,
// tolerating a missing file (an empty Config is used, matching the spec's
// "missing optional section is never fatal" rule).
func Load(fs afero.Fs, env Env, userConfigDir string) (*Store, error) {
	s := &Store{fs: fs, env: env, userConfigDir: userConfigDir}

	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		path := filepath.Join(userConfigDir, name)
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &s.config); err != nil {
			return nil, &gloverr.ConfigError{Op: "load_prefs", Path: path, Reason: err.Error(), Err: err}
		}
		return s, nil
	}
	return s, nil
}

// Save writes the current config back to config.yaml.
func (s *Store) Save() error {
	data, err := yaml.Marshal(s.config)
	if err != nil {
		return &gloverr.Internal{Op: "save_prefs", Err: err}
	}
	if err := s.fs.MkdirAll(s.userConfigDir, 0o755); err != nil {
		return &gloverr.IOError{Op: "save_prefs", Path: s.userConfigDir, Err: err}
	}
	path := filepath.Join(s.userConfigDir, "config.yaml")
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return &gloverr.IOError{Op: "save_prefs", Path: path, Err: err}
	}
	return nil
}

// Config returns a copy of the currently loaded preferences.
func (s *Store) Config() Config { return s.config }

// SetConfig replaces the preferences in memory (callers must Save to persist).
func (s *Store) SetConfig(c Config) { s.config = c }

// DefaultProfile resolves the env override, else the file setting.
func (s *Store) DefaultProfile() string {
	return s.resolveString(EnvDefaultProfile, s.config.DefaultProfile)
}

// DefaultLayoutFile resolves the env override, else the file setting.
func (s *Store) DefaultLayoutFile() string {
	return s.resolveString(EnvDefaultLayoutFile, s.config.DefaultLayoutFile)
}

// CacheRoot resolves the env override, else the file setting, else
// `<user_config_dir>/../glovebox-cache` as a last-resort default.
func (s *Store) CacheRoot() string {
	if v := s.resolveString(EnvCacheRoot, s.config.CacheRoot); v != "" {
		return v
	}
	return filepath.Join(filepath.Dir(s.userConfigDir), "glovebox-cache")
}

// KeyboardSearchPaths resolves the env override (colon-separated), else the
// file setting, else the user's keyboards/ directory.
func (s *Store) KeyboardSearchPaths() []string {
	if raw, ok := s.env.Lookup(EnvKeyboardSearchPaths); ok && raw != "" {
		return splitPathList(raw)
	}
	if len(s.config.KeyboardSearchPaths) > 0 {
		return s.config.KeyboardSearchPaths
	}
	return []string{s.KeyboardsDir()}
}

func (s *Store) resolveString(envKey, fileValue string) string {
	if v, ok := s.env.Lookup(envKey); ok && v != "" {
		return v
	}
	return fileValue
}

// UserConfigDir returns the root preference directory.
func (s *Store) UserConfigDir() string { return s.userConfigDir }

// KeyboardsDir returns `<user_config_dir>/keyboards`.
func (s *Store) KeyboardsDir() string { return filepath.Join(s.userConfigDir, "keyboards") }

// InstalledManifestPath returns `<user_config_dir>/installed.json`.
func (s *Store) InstalledManifestPath() string {
	return filepath.Join(s.userConfigDir, "installed.json")
}

// MastersDir returns `<user_config_dir>/masters/<keyboard>`.
func (s *Store) MastersDir(keyboard string) string {
	return filepath.Join(s.userConfigDir, "masters", keyboard)
}

// MasterLayoutPath returns `<user_config_dir>/masters/<keyboard>/<ver>.json`.
func (s *Store) MasterLayoutPath(keyboard, version string) string {
	return filepath.Join(s.MastersDir(keyboard), version+".json")
}

func splitPathList(raw string) []string {
	var out []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	out = append(out, raw[start:])
	return out
}

// FlashRetries resolves the configured retry count, defaulting to 3 when
// unset (mirrors flash.DefaultRetries without importing that package).
func (s *Store) FlashRetries() int {
	if s.config.FlashRetries > 0 {
		return s.config.FlashRetries
	}
	return 3
}

// parseBoolEnv is a small helper kept for well-known boolean settings a
// caller may add later (e.g. a no-color override); unused today but
// documents the intended extension point.
func parseBoolEnv(env Env, key string) (bool, bool) {
	v, ok := env.Lookup(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
