// Package workspace implements the Workspace Builder (spec component C6):
// it materializes a build-ready directory either from a cloned ZMK-config
// repository or synthesized directly from a profile, then writes the
// generated keymap/conf into it under the shield's canonical file name.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/caddyglow/glovebox/internal/dtsi"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// BuildYAMLEntry is one row of build.yaml's top-level include sequence
// (spec §4.5).
type BuildYAMLEntry struct {
	Board        string   `yaml:"board"`
	Shield       string   `yaml:"shield,omitempty"`
	CMakeArgs    []string `yaml:"cmake-args,omitempty"`
	Snippet      string   `yaml:"snippet,omitempty"`
	ArtifactName string   `yaml:"artifact-name,omitempty"`
}

// BuildYAML is the top-level document shape of build.yaml.
type BuildYAML struct {
	Include []BuildYAMLEntry `yaml:"include"`
}

// WestManifest is the minimal synthesized west.yml shape (spec §6).
type WestManifest struct {
	Manifest WestManifestBody `yaml:"manifest"`
}

type WestManifestBody struct {
	Remotes  []WestRemote  `yaml:"remotes"`
	Projects []WestProject `yaml:"projects"`
	Self     WestSelf      `yaml:"self"`
}

type WestRemote struct {
	Name    string `yaml:"name"`
	URLBase string `yaml:"url-base"`
}

type WestProject struct {
	Name     string `yaml:"name"`
	Remote   string `yaml:"remote"`
	Revision string `yaml:"revision"`
	Import   string `yaml:"import"`
}

type WestSelf struct {
	Path string `yaml:"path"`
}

// defaultArtifactName follows the ZMK convention `${shield+"-"}${board}-zmk`
// (spec §4.5).
func defaultArtifactName(board, shield string) string {
	if shield == "" {
		return fmt.Sprintf("%s-zmk", board)
	}
	return fmt.Sprintf("%s-%s-zmk", shield, board)
}

// Build materializes a workspace at dir for p, writing res.Keymap/res.Kconfig
// under config/<shield>.keymap and config/<shield>.conf. clone is called only
// in config-repo mode (p.BuildMethod.RepositoryURL != ""); it is injected so
// the caller controls how the repository is fetched (component C7 supplies a
// cached clone when available).
func Build(fs afero.Fs, dir string, p *profile.KeyboardProfile, res *dtsi.Result, clone func(repoURL, revision, dst string) error) error {
	if p.BuildMethod.RepositoryURL != "" {
		if clone == nil {
			return &gloverr.ConfigError{Op: "workspace_build", Reason: "config-repo mode requires a clone function"}
		}
		revision := p.BuildMethod.DefaultRevision
		if revision == "" {
			revision = "main"
		}
		// dir must not exist yet (or must be empty): clone (real git, or the
		// cache's CloneInto) populates it, including its own config/ tree.
		if err := clone(p.BuildMethod.RepositoryURL, revision, dir); err != nil {
			return err
		}
		if err := fs.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
			return &gloverr.IOError{Op: "workspace_build", Path: dir, Err: err}
		}
		if p.BuildMethod.RegenerateBuildYAML {
			if err := writeBuildYAML(fs, dir, p); err != nil {
				return err
			}
		}
	} else {
		if err := fs.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
			return &gloverr.IOError{Op: "workspace_build", Path: dir, Err: err}
		}
		if err := writeWestYAML(fs, dir, p); err != nil {
			return err
		}
		if err := writeBuildYAML(fs, dir, p); err != nil {
			return err
		}
	}

	for _, entry := range p.BuildMethod.BuildMatrix {
		shield := entry.Shield
		if shield == "" {
			shield = p.KeyboardName
		}
		keymapPath := filepath.Join(dir, "config", shield+".keymap")
		confPath := filepath.Join(dir, "config", shield+".conf")
		if err := afero.WriteFile(fs, keymapPath, []byte(ensureTrailingNewline(res.Keymap)), 0o644); err != nil {
			return &gloverr.IOError{Op: "workspace_build", Path: keymapPath, Err: err}
		}
		if err := afero.WriteFile(fs, confPath, []byte(ensureTrailingNewline(res.Kconfig)), 0o644); err != nil {
			return &gloverr.IOError{Op: "workspace_build", Path: confPath, Err: err}
		}
	}
	return nil
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// writeBuildYAML emits build.yaml with one include row per build-matrix
// entry, expanding split keyboards into "<shield>_left"/"<shield>_right"
// rows (spec §4.5).
func writeBuildYAML(fs afero.Fs, dir string, p *profile.KeyboardProfile) error {
	var entries []BuildYAMLEntry
	isSplit := p.ZMK.IsSplit
	for _, m := range p.BuildMethod.BuildMatrix {
		artifact := m.ArtifactName
		if artifact == "" {
			artifact = defaultArtifactName(m.Board, m.Shield)
		}
		if isSplit && m.Shield != "" {
			for _, half := range []string{"left", "right"} {
				shield := m.Shield + "_" + half
				entries = append(entries, BuildYAMLEntry{
					Board: m.Board, Shield: shield, CMakeArgs: m.CMakeArgs, Snippet: m.Snippet,
					ArtifactName: defaultArtifactName(m.Board, shield),
				})
			}
			continue
		}
		entries = append(entries, BuildYAMLEntry{
			Board: m.Board, Shield: m.Shield, CMakeArgs: m.CMakeArgs, Snippet: m.Snippet, ArtifactName: artifact,
		})
	}

	data, err := yaml.Marshal(BuildYAML{Include: entries})
	if err != nil {
		return &gloverr.Internal{Op: "write_build_yaml", Err: err}
	}
	path := filepath.Join(dir, "build.yaml")
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return &gloverr.IOError{Op: "write_build_yaml", Path: path, Err: err}
	}
	return nil
}

// writeWestYAML emits a synthesized config/west.yml pointing at the
// upstream ZMK repository and revision (spec §6).
func writeWestYAML(fs afero.Fs, dir string, p *profile.KeyboardProfile) error {
	revision := p.BuildMethod.DefaultRevision
	if revision == "" {
		revision = "main"
	}
	manifest := WestManifest{Manifest: WestManifestBody{
		Remotes: []WestRemote{{Name: "zmkfirmware", URLBase: "https://github.com/zmkfirmware"}},
		Projects: []WestProject{{
			Name: "zmk", Remote: "zmkfirmware", Revision: revision, Import: "app/west.yml",
		}},
		Self: WestSelf{Path: "config"},
	}}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return &gloverr.Internal{Op: "write_west_yaml", Err: err}
	}
	path := filepath.Join(dir, "config", "west.yml")
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return &gloverr.IOError{Op: "write_west_yaml", Path: path, Err: err}
	}
	return nil
}
