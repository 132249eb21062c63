package profile

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/caddyglow/glovebox/internal/treevisit"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// conventionalSections are the mapping names, besides the document root,
// whose own "includes" field is honored (spec §4.1).
var conventionalSections = []string{"behaviors", "display", "zmk", "keymap"}

// Resolver loads, merges, validates, and caches keyboard profiles across an
// ordered set of search paths (spec §4.1): built-in bundle, user-installed,
// environment-supplied, user-config-supplied, in priority order.
type Resolver struct {
	fs          afero.Fs
	searchPaths []string

	fileCache    map[string]fileCacheEntry // by absolute path
	profileCache map[string]*KeyboardProfile
}

type fileCacheEntry struct {
	mtime time.Time
	tree  map[string]any
}

// NewResolver constructs a Resolver over fs, searching searchPaths in the
// given priority order.
func NewResolver(fs afero.Fs, searchPaths []string) *Resolver {
	return &Resolver{
		fs:           fs,
		searchPaths:  searchPaths,
		fileCache:    map[string]fileCacheEntry{},
		profileCache: map[string]*KeyboardProfile{},
	}
}

// findKeyboardFile locates the main file for keyboard across search paths,
// in priority order: "<path>/<name>.yaml" or "<path>/<name>/keyboard.yaml".
func (r *Resolver) findKeyboardFile(name string) (string, bool) {
	for _, base := range r.searchPaths {
		single := filepath.Join(base, name+".yaml")
		if exists, _ := afero.Exists(r.fs, single); exists {
			return single, true
		}
		nested := filepath.Join(base, name, "keyboard.yaml")
		if exists, _ := afero.Exists(r.fs, nested); exists {
			return nested, true
		}
	}
	return "", false
}

// ListKeyboards returns the union of keyboard names discoverable across all
// search paths, deduplicated by name.
func (r *Resolver) ListKeyboards() ([]string, error) {
	seen := map[string]bool{}
	for _, base := range r.searchPaths {
		entries, err := afero.ReadDir(r.fs, base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".yaml" {
				seen[e.Name()[:len(e.Name())-len(".yaml")]] = true
				continue
			}
			if e.IsDir() {
				if exists, _ := afero.Exists(r.fs, filepath.Join(base, e.Name(), "keyboard.yaml")); exists {
					seen[e.Name()] = true
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ListFirmwares returns the firmware names declared in keyboard's
// "firmwares" mapping, sorted by name.
func (r *Resolver) ListFirmwares(keyboard string) ([]string, error) {
	path, ok := r.findKeyboardFile(keyboard)
	if !ok {
		return nil, &gloverr.ConfigNotFound{Name: keyboard}
	}
	tree, err := r.resolveTree(path, nil)
	if err != nil {
		return nil, err
	}
	firmwares, _ := tree["firmwares"].(map[string]any)
	out := make([]string, 0, len(firmwares))
	for name := range firmwares {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Load resolves keyboard (and, if non-empty, the named firmware variant)
// into a validated, cached KeyboardProfile (spec §4.1).
func (r *Resolver) Load(keyboard, firmware string) (*KeyboardProfile, error) {
	cacheKey := keyboard + "\x00" + firmware
	if cached, ok := r.profileCache[cacheKey]; ok {
		return cached, nil
	}

	path, ok := r.findKeyboardFile(keyboard)
	if !ok {
		return nil, &gloverr.ConfigNotFound{Name: keyboard}
	}
	tree, err := r.resolveTree(path, nil)
	if err != nil {
		return nil, err
	}

	merged := tree
	if firmware != "" {
		firmwares, _ := tree["firmwares"].(map[string]any)
		variant, ok := firmwares[firmware].(map[string]any)
		if !ok {
			return nil, &gloverr.FirmwareMissing{Keyboard: keyboard, Version: firmware}
		}
		merged = treevisit.Merge(tree, variant).(map[string]any)
	}

	if err := validateTree(merged, firmware != ""); err != nil {
		return nil, err
	}

	p, err := treeToProfile(merged, keyboard, firmware)
	if err != nil {
		return nil, err
	}
	r.profileCache[cacheKey] = p
	return p, nil
}

// resolveTree loads path, loads and deep-merges its includes depth-first,
// then merges its own content over the accumulated includes so the
// referencing document's fields take precedence (spec §4.1).
func (r *Resolver) resolveTree(path string, stack []string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &gloverr.IOError{Op: "resolve_includes", Path: path, Err: err}
	}
	for _, s := range stack {
		if s == abs {
			return nil, &gloverr.IncludeCycle{PathStack: append(append([]string{}, stack...), abs)}
		}
	}

	raw, err := r.loadYAMLCached(abs)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	nextStack := append(append([]string{}, stack...), abs)

	merged, err := r.mergeSection(raw, "includes", dir, nextStack, map[string]any{})
	if err != nil {
		return nil, err
	}

	for _, section := range conventionalSections {
		sub, ok := raw[section].(map[string]any)
		if !ok {
			continue
		}
		incs, ok := sub["includes"].([]any)
		if !ok {
			continue
		}
		base, _ := merged[section].(map[string]any)
		sectionMerged, err := r.mergeSection(map[string]any{"includes": incs}, "includes", dir, nextStack, base)
		if err != nil {
			return nil, err
		}
		merged[section] = sectionMerged
	}

	own := stripIncludes(raw)
	return treevisit.Merge(merged, own).(map[string]any), nil
}

// mergeSection merges the files named in cfg["includes"] into base,
// depth-first and in list order.
func (r *Resolver) mergeSection(cfg map[string]any, field, dir string, stack []string, base map[string]any) (map[string]any, error) {
	incs, _ := cfg[field].([]any)
	out := base
	for _, incAny := range incs {
		name, _ := incAny.(string)
		if name == "" {
			continue
		}
		incTree, err := r.resolveTree(filepath.Join(dir, name), stack)
		if err != nil {
			return nil, err
		}
		out = treevisit.Merge(out, incTree).(map[string]any)
	}
	return out, nil
}

func stripIncludes(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		if k == "includes" {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			isConventional := false
			for _, s := range conventionalSections {
				if s == k {
					isConventional = true
					break
				}
			}
			if isConventional {
				out[k] = stripIncludes(sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func (r *Resolver) loadYAMLCached(abs string) (map[string]any, error) {
	info, err := r.fs.Stat(abs)
	if err != nil {
		return nil, &gloverr.IOError{Op: "load", Path: abs, Err: err}
	}
	if entry, ok := r.fileCache[abs]; ok && entry.mtime.Equal(info.ModTime()) {
		return entry.tree, nil
	}

	data, err := afero.ReadFile(r.fs, abs)
	if err != nil {
		return nil, &gloverr.IOError{Op: "load", Path: abs, Err: err}
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, &gloverr.ConfigError{Op: "load", Path: abs, Reason: err.Error(), Err: err}
	}
	if tree == nil {
		tree = map[string]any{}
	}
	r.fileCache[abs] = fileCacheEntry{mtime: info.ModTime(), tree: tree}
	return tree, nil
}
