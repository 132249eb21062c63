package profile

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestLoadBasicProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/toy42.yaml", `
keyboard: toy42
description: A toy keyboard
vendor: acme
key_count: 42
flash:
  usb_vid: "0x1234"
  usb_pid: "0xABCD"
  query: "vendor=acme"
  mount_method: auto
build:
  strategy: zmk_config
  image: zmkfirmware/zmk-build-arm:stable
  build_matrix:
    - board: toy42
firmwares:
  v1:
    branch: main
`)
	r := NewResolver(fs, []string{"/kb"})
	p, err := r.Load("toy42", "")
	require.NoError(t, err)
	assert.Equal(t, "toy42", p.KeyboardName)
	assert.Equal(t, 42, p.KeyCount)
	assert.True(t, p.IsKeyboardOnly())

	p2, err := r.Load("toy42", "v1")
	require.NoError(t, err)
	assert.False(t, p2.IsKeyboardOnly())
	assert.Equal(t, "main", p2.FirmwareConfig.Branch)
}

func TestLoadMissingFirmwareVariant(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/toy42.yaml", `
keyboard: toy42
description: d
vendor: acme
key_count: 10
flash: {usb_vid: "0x1234", usb_pid: "0xABCD"}
build: {strategy: zmk_config, image: img}
`)
	r := NewResolver(fs, []string{"/kb"})
	_, err := r.Load("toy42", "v99")
	require.Error(t, err)
}

func TestIncludeMergeScalarAndMapping(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/base.yaml", `
description: base description
key_count: 1
flash: {usb_vid: "0x0000", usb_pid: "0x0000"}
`)
	writeFile(t, fs, "/kb/toy42.yaml", `
keyboard: toy42
includes: [base.yaml]
vendor: acme
key_count: 42
build: {strategy: zmk_config, image: img}
`)
	r := NewResolver(fs, []string{"/kb"})
	p, err := r.Load("toy42", "")
	require.NoError(t, err)
	assert.Equal(t, "base description", p.Description)
	assert.Equal(t, 42, p.KeyCount, "own field overrides include")
}

func TestIncludeCycleDetected(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/a.yaml", "includes: [b.yaml]\nkeyboard: a\n")
	writeFile(t, fs, "/kb/b.yaml", "includes: [a.yaml]\n")
	r := NewResolver(fs, []string{"/kb"})
	_, err := r.Load("a", "")
	require.Error(t, err)
}

func TestSchemaValidationRejectsBadHexID(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/toy42.yaml", `
keyboard: toy42
description: d
vendor: acme
key_count: 10
flash: {usb_vid: "not-hex", usb_pid: "0x0000"}
build: {strategy: zmk_config, image: img}
`)
	r := NewResolver(fs, []string{"/kb"})
	_, err := r.Load("toy42", "")
	require.Error(t, err)
}

func TestLoadSplitKeyboardSetsIsSplit(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/glove80.yaml", `
keyboard: glove80
description: A split ergonomic keyboard
vendor: moergo
key_count: 80
flash: {usb_vid: "0x1234", usb_pid: "0xABCD"}
build:
  strategy: zmk_config
  image: zmkfirmware/zmk-build-arm:stable
  build_matrix:
    - board: nice_nano_v2
      shield: glove80
zmk:
  is_split: true
`)
	r := NewResolver(fs, []string{"/kb"})
	p, err := r.Load("glove80", "")
	require.NoError(t, err)
	assert.True(t, p.ZMK.IsSplit)
}

func TestSchemaValidationRejectsNonBoolIsSplit(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/kb/toy42.yaml", `
keyboard: toy42
description: d
vendor: acme
key_count: 10
flash: {usb_vid: "0x1234", usb_pid: "0x0000"}
build: {strategy: zmk_config, image: img}
zmk:
  is_split: "yes"
`)
	r := NewResolver(fs, []string{"/kb"})
	_, err := r.Load("toy42", "")
	require.Error(t, err)
}

func TestListKeyboardsUnion(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/kb1.yaml", "keyboard: kb1\n")
	writeFile(t, fs, "/b/kb2/keyboard.yaml", "keyboard: kb2\n")
	r := NewResolver(fs, []string{"/a", "/b"})
	names, err := r.ListKeyboards()
	require.NoError(t, err)
	assert.Equal(t, []string{"kb1", "kb2"}, names)
}
