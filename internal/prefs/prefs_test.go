package prefs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	assert.Equal(t, Config{}, s.Config())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)

	s.SetConfig(Config{DefaultProfile: "corne/v2", FlashRetries: 5})
	require.NoError(t, s.Save())

	s2, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	assert.Equal(t, "corne/v2", s2.Config().DefaultProfile)
	assert.Equal(t, 5, s2.Config().FlashRetries)
}

func TestEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{EnvDefaultProfile: "glove80/v3"}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	s.SetConfig(Config{DefaultProfile: "corne/v2"})

	assert.Equal(t, "glove80/v3", s.DefaultProfile())
}

func TestCacheRootFallsBackToSiblingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.config/glovebox-cache", s.CacheRoot())
}

func TestKeyboardSearchPathsEnvIsColonSeparated(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{EnvKeyboardSearchPaths: "/a/b:/c/d"}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b", "/c/d"}, s.KeyboardSearchPaths())
}

func TestKeyboardSearchPathsDefaultsToKeyboardsDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	assert.Equal(t, []string{s.KeyboardsDir()}, s.KeyboardSearchPaths())
}

func TestPersistedStatePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)

	assert.Equal(t, "/home/u/.config/glovebox/keyboards", s.KeyboardsDir())
	assert.Equal(t, "/home/u/.config/glovebox/installed.json", s.InstalledManifestPath())
	assert.Equal(t, "/home/u/.config/glovebox/masters/corne", s.MastersDir("corne"))
	assert.Equal(t, "/home/u/.config/glovebox/masters/corne/v2.json", s.MasterLayoutPath("corne", "v2"))
}

func TestFlashRetriesDefaultsToThree(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.NoError(t, err)
	assert.Equal(t, 3, s.FlashRetries())
}

func TestLoadCorruptYAMLReturnsConfigError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/u/.config/glovebox/config.yaml", []byte("not: [valid"), 0o644))
	_, err := Load(fs, MapEnv{}, "/home/u/.config/glovebox")
	require.Error(t, err)
}
