package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// layerFile is the on-disk shape of D/layers/<slug>.json (spec §4.3).
type layerFile struct {
	Name     string    `json:"name"`
	Index    int       `json:"index"`
	Bindings []Binding `json:"bindings"`
}

// extractedSentinel marks metadata.json's "layers" field per spec §4.3.
const extractedSentinel = `{"__extracted__":true}`

// Decompose splits l into D/metadata.json, D/layers/<slug>.json per layer,
// and optional D/device.dtsi / D/keymap.dtsi, per spec §4.3.
func Decompose(fs afero.Fs, l *Layout, dir string) error {
	if err := fs.MkdirAll(filepath.Join(dir, "layers"), 0o755); err != nil {
		return &gloverr.IOError{Op: "decompose", Path: dir, Err: err}
	}

	metaTree, err := toTree(l)
	if err != nil {
		return &gloverr.IOError{Op: "decompose", Path: dir, Err: err}
	}
	metaMap, ok := metaTree.(map[string]any)
	if !ok {
		return &gloverr.Internal{Op: "decompose", Err: fmt.Errorf("layout did not render to a mapping")}
	}
	var sentinel any
	if err := json.Unmarshal([]byte(extractedSentinel), &sentinel); err != nil {
		return &gloverr.Internal{Op: "decompose", Err: err}
	}
	metaMap["layers"] = sentinel

	metaData, err := canonicalTreeJSON(metaMap)
	if err != nil {
		return &gloverr.IOError{Op: "decompose", Path: dir, Err: err}
	}
	if err := afero.WriteFile(fs, filepath.Join(dir, "metadata.json"), metaData, 0o644); err != nil {
		return &gloverr.IOError{Op: "decompose", Path: dir, Err: err}
	}

	slugs := UniqueSlugs(l.LayerNames)
	for i, name := range l.LayerNames {
		lf := layerFile{Name: name, Index: i, Bindings: l.Layers[i]}
		data, err := json.MarshalIndent(lf, "", "  ")
		if err != nil {
			return &gloverr.IOError{Op: "decompose", Path: name, Err: err}
		}
		data = append(data, '\n')
		path := filepath.Join(dir, "layers", slugs[i]+".json")
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return &gloverr.IOError{Op: "decompose", Path: path, Err: err}
		}
	}

	if l.CustomDevicetree != "" {
		if err := afero.WriteFile(fs, filepath.Join(dir, "device.dtsi"), []byte(l.CustomDevicetree), 0o644); err != nil {
			return &gloverr.IOError{Op: "decompose", Path: "device.dtsi", Err: err}
		}
	}
	if l.CustomDefinedBehaviors != "" {
		if err := afero.WriteFile(fs, filepath.Join(dir, "keymap.dtsi"), []byte(l.CustomDefinedBehaviors), 0o644); err != nil {
			return &gloverr.IOError{Op: "decompose", Path: "keymap.dtsi", Err: err}
		}
	}
	return nil
}

// canonicalTreeJSON serializes an arbitrary tree (map/slice/scalar) with
// 2-space indentation; encoding/json already sorts map[string]any keys,
// which gives metadata.json the same determinism guarantee as
// Layout.Canonical.
func canonicalTreeJSON(tree any) ([]byte, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Compose reassembles a layout previously written by Decompose, verifying
// layer-index density and name agreement per spec §4.3.
func Compose(fs afero.Fs, dir string) (*Layout, error) {
	metaPath := filepath.Join(dir, "metadata.json")
	metaData, err := afero.ReadFile(fs, metaPath)
	if err != nil {
		return nil, &gloverr.IOError{Op: "compose", Path: metaPath, Err: err}
	}
	var metaMap map[string]any
	if err := json.Unmarshal(metaData, &metaMap); err != nil {
		return nil, &gloverr.IOError{Op: "compose", Path: metaPath, Err: err}
	}

	entries, err := afero.ReadDir(fs, filepath.Join(dir, "layers"))
	if err != nil {
		return nil, &gloverr.IOError{Op: "compose", Path: filepath.Join(dir, "layers"), Err: err}
	}
	var files []layerFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, "layers", e.Name())
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, &gloverr.IOError{Op: "compose", Path: path, Err: err}
		}
		var lf layerFile
		if err := json.Unmarshal(data, &lf); err != nil {
			return nil, &gloverr.IOError{Op: "compose", Path: path, Err: err}
		}
		files = append(files, lf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Index < files[j].Index })

	layerNamesRaw, _ := metaMap["layer_names"].([]any)
	layerNames := make([]string, len(layerNamesRaw))
	for i, v := range layerNamesRaw {
		layerNames[i], _ = v.(string)
	}

	if len(files) != len(layerNames) {
		return nil, &gloverr.ValidationError{Op: "compose", Path: "layers", Reason: fmt.Sprintf("found %d layer files, expected %d", len(files), len(layerNames))}
	}
	layers := make([][]Binding, len(files))
	for i, lf := range files {
		if lf.Index != i {
			return nil, &gloverr.ValidationError{Op: "compose", Path: "layers", Reason: fmt.Sprintf("layer indices are not dense: expected %d, found %d", i, lf.Index)}
		}
		if lf.Name != layerNames[i] {
			return nil, &gloverr.ValidationError{Op: "compose", Path: fmt.Sprintf("layers[%d]", i), Reason: fmt.Sprintf("name %q does not match metadata layer_names[%d] = %q", lf.Name, i, layerNames[i])}
		}
		layers[i] = lf.Bindings
	}

	layersJSON, err := json.Marshal(layers)
	if err != nil {
		return nil, &gloverr.Internal{Op: "compose", Err: err}
	}
	var layersTree any
	if err := json.Unmarshal(layersJSON, &layersTree); err != nil {
		return nil, &gloverr.Internal{Op: "compose", Err: err}
	}
	metaMap["layers"] = layersTree

	if data, err := afero.ReadFile(fs, filepath.Join(dir, "device.dtsi")); err == nil {
		metaMap["custom_devicetree"] = string(data)
	}
	if data, err := afero.ReadFile(fs, filepath.Join(dir, "keymap.dtsi")); err == nil {
		metaMap["custom_defined_behaviors"] = string(data)
	}

	finalData, err := json.Marshal(metaMap)
	if err != nil {
		return nil, &gloverr.Internal{Op: "compose", Err: err}
	}
	return Parse(finalData)
}
