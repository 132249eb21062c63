package cmd

import (
	"encoding/json"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/layout"
)

func readPatch(fs afero.Fs, path string) (*layout.Patch, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var p layout.Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func marshalPatch(p *layout.Patch) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
