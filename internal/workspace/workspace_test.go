package workspace

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/caddyglow/glovebox/internal/dtsi"
	"github.com/caddyglow/glovebox/internal/profile"
)

func testProfile() *profile.KeyboardProfile {
	return &profile.KeyboardProfile{
		KeyboardName: "toy42",
		BuildMethod: profile.BuildMethodConfig{
			Strategy:        "west",
			DefaultRevision: "main",
			BuildMatrix:     []profile.BuildMatrixEntry{{Board: "nice_nano_v2", Shield: "toy42"}},
		},
	}
}

func testResult() *dtsi.Result {
	return &dtsi.Result{Keymap: "/ { };", Kconfig: "CONFIG_ZMK_SLEEP=y"}
}

func TestBuildSynthesizedMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := testProfile()
	err := Build(fs, "/ws", p, testResult(), nil)
	require.NoError(t, err)

	exists, _ := afero.Exists(fs, "/ws/config/west.yml")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/ws/build.yaml")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/ws/config/toy42.keymap")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/ws/config/toy42.conf")
	assert.True(t, exists)

	data, err := afero.ReadFile(fs, "/ws/build.yaml")
	require.NoError(t, err)
	var by BuildYAML
	require.NoError(t, yaml.Unmarshal(data, &by))
	require.Len(t, by.Include, 1)
	assert.Equal(t, "nice_nano_v2", by.Include[0].Board)
	assert.Equal(t, "toy42-nice_nano_v2-zmk", by.Include[0].ArtifactName)
}

func TestBuildSplitKeyboardExpandsLeftRight(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := testProfile()
	p.ZMK.IsSplit = true
	err := Build(fs, "/ws", p, testResult(), nil)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/ws/build.yaml")
	require.NoError(t, err)
	var by BuildYAML
	require.NoError(t, yaml.Unmarshal(data, &by))
	require.Len(t, by.Include, 2)
	assert.Equal(t, "toy42_left", by.Include[0].Shield)
	assert.Equal(t, "toy42_right", by.Include[1].Shield)
}

func TestBuildConfigRepoModeRequiresClone(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := testProfile()
	p.BuildMethod.RepositoryURL = "https://example.com/zmk-config.git"
	err := Build(fs, "/ws", p, testResult(), nil)
	require.Error(t, err)
}

func TestBuildConfigRepoModeClonesAndWritesKeymap(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := testProfile()
	p.BuildMethod.RepositoryURL = "https://example.com/zmk-config.git"
	p.BuildMethod.RegenerateBuildYAML = true

	var clonedURL, clonedRev, clonedDst string
	clone := func(repoURL, revision, dst string) error {
		clonedURL, clonedRev, clonedDst = repoURL, revision, dst
		return fs.MkdirAll(dst+"/config", 0o755)
	}
	err := Build(fs, "/ws", p, testResult(), clone)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/zmk-config.git", clonedURL)
	assert.Equal(t, "main", clonedRev)
	assert.Equal(t, "/ws", clonedDst)

	exists, _ := afero.Exists(fs, "/ws/build.yaml")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/ws/config/toy42.keymap")
	assert.True(t, exists)
}

func TestDefaultArtifactName(t *testing.T) {
	assert.Equal(t, "nice_nano_v2-zmk", defaultArtifactName("nice_nano_v2", ""))
	assert.Equal(t, "toy42-nice_nano_v2-zmk", defaultArtifactName("nice_nano_v2", "toy42"))
}
