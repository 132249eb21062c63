package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddyglow/glovebox/internal/prefs"
)

const sampleLayout = `{
  "keyboard": "corne",
  "layer_names": ["base"],
  "layers": [[{"value": "kp A", "params": []}]]
}`

func newTestCmd(t *testing.T) (*Cmd, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	store, err := prefs.Load(fs, prefs.MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	c := NewCmd(Deps{FS: fs, Out: &buf, Prefs: store})
	return c, fs, &buf
}

func TestRouteUnknownGroupReturnsUsage(t *testing.T) {
	c, _, _ := newTestCmd(t)
	code := c.Route(context.Background(), []string{"bogus"})
	assert.Equal(t, ExitUsage, code)
}

func TestRouteNoArgsShowsHelp(t *testing.T) {
	c, _, buf := newTestCmd(t)
	code := c.Route(context.Background(), nil)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, buf.String(), "Usage: glovebox")
}

func TestLayoutCompileRoundTrip(t *testing.T) {
	c, fs, buf := newTestCmd(t)
	require.NoError(t, afero.WriteFile(fs, "/in.json", []byte(sampleLayout), 0o644))

	code := c.Route(context.Background(), []string{"layout", "compile", "--layout", "/in.json", "--out", "/out.json"})
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, buf.String(), "wrote /out.json")

	data, err := afero.ReadFile(fs, "/out.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keyboard": "corne"`)
}

func TestLayoutValidateRejectsMissingFile(t *testing.T) {
	c, _, _ := newTestCmd(t)
	code := c.Route(context.Background(), []string{"layout", "validate", "--layout", "/missing.json"})
	assert.Equal(t, ExitUserError, code)
}

func TestLayoutShowRendersLayers(t *testing.T) {
	c, fs, buf := newTestCmd(t)
	require.NoError(t, afero.WriteFile(fs, "/in.json", []byte(sampleLayout), 0o644))
	code := c.Route(context.Background(), []string{"layout", "show", "--layout", "/in.json"})
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, buf.String(), "layer 0: base")
	assert.Contains(t, buf.String(), "kp A")
}

func TestLayoutDecomposeComposeRoundTrip(t *testing.T) {
	c, fs, _ := newTestCmd(t)
	require.NoError(t, afero.WriteFile(fs, "/in.json", []byte(sampleLayout), 0o644))

	code := c.Route(context.Background(), []string{"layout", "decompose", "--layout", "/in.json", "--dir", "/parts"})
	require.Equal(t, ExitOK, code)

	code = c.Route(context.Background(), []string{"layout", "compose", "--dir", "/parts", "--out", "/merged.json"})
	require.Equal(t, ExitOK, code)

	data, err := afero.ReadFile(fs, "/merged.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keyboard": "corne"`)
}

func TestLayoutEditSetField(t *testing.T) {
	c, fs, _ := newTestCmd(t)
	require.NoError(t, afero.WriteFile(fs, "/in.json", []byte(sampleLayout), 0o644))

	code := c.Route(context.Background(), []string{"layout", "edit", "--layout", "/in.json", "--out", "/edited.json", "--set", "title=My Layout"})
	require.Equal(t, ExitOK, code)

	data, err := afero.ReadFile(fs, "/edited.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "My Layout")
}

func TestLayoutDiffWritesPatch(t *testing.T) {
	c, fs, _ := newTestCmd(t)
	require.NoError(t, afero.WriteFile(fs, "/a.json", []byte(sampleLayout), 0o644))
	edited := `{"keyboard": "corne", "title": "v2", "layer_names": ["base"], "layers": [[{"value": "kp A", "params": []}]]}`
	require.NoError(t, afero.WriteFile(fs, "/b.json", []byte(edited), 0o644))

	code := c.Route(context.Background(), []string{"layout", "diff", "--a", "/a.json", "--b", "/b.json", "--out", "/patch.json"})
	require.Equal(t, ExitOK, code)

	data, err := afero.ReadFile(fs, "/patch.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "meta")
}

func TestConfigListShowEdit(t *testing.T) {
	c, _, buf := newTestCmd(t)

	code := c.Route(context.Background(), []string{"config", "edit", "default_profile=corne/v2"})
	require.Equal(t, ExitOK, code)

	buf.Reset()
	code = c.Route(context.Background(), []string{"config", "show", "default_profile"})
	require.Equal(t, ExitOK, code)
	assert.Contains(t, buf.String(), "corne/v2")

	buf.Reset()
	code = c.Route(context.Background(), []string{"config", "list"})
	require.Equal(t, ExitOK, code)
	assert.Contains(t, buf.String(), "default_profile=corne/v2")
}

func TestConfigShowUnknownKeyFails(t *testing.T) {
	c, _, _ := newTestCmd(t)
	code := c.Route(context.Background(), []string{"config", "show", "not_a_real_key"})
	assert.Equal(t, ExitUserError, code)
}

func TestCacheStatsWithoutCacheIsConfigError(t *testing.T) {
	c, _, _ := newTestCmd(t)
	code := c.Route(context.Background(), []string{"cache", "stats"})
	assert.Equal(t, ExitConfigError, code)
}

func TestKeyboardListWithoutResolverIsConfigError(t *testing.T) {
	c, _, _ := newTestCmd(t)
	code := c.Route(context.Background(), []string{"keyboard", "list"})
	assert.Equal(t, ExitConfigError, code)
}

func TestStatusReportsUnconfiguredCollaborators(t *testing.T) {
	c, _, buf := newTestCmd(t)
	code := c.Route(context.Background(), []string{"status"})
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, buf.String(), "profiles: not configured")
	assert.Contains(t, buf.String(), "cache: not configured")
}
