package build

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddyglow/glovebox/internal/profile"
)

type fakeRunner struct {
	calls      [][]string
	failFirstN int
	exitCode   int
	fs         afero.Fs
	onCall     func(callIndex int, workspaceDir string, fs afero.Fs)
}

func (f *fakeRunner) Run(ctx context.Context, image, workspaceDir string, user UserMapping, cmd []string) ([]string, int, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, cmd)
	if f.onCall != nil {
		f.onCall(idx, workspaceDir, f.fs)
	}
	if idx < f.failFirstN {
		return []string{"transient failure"}, 1, nil
	}
	return []string{"ok"}, f.exitCode, nil
}

func testProfile() *profile.KeyboardProfile {
	return &profile.KeyboardProfile{
		KeyboardName: "toy42",
		BuildMethod: profile.BuildMethodConfig{
			Strategy: "zmk_config",
			Image:    "zmkfirmware/zmk-build-arm:stable",
			BuildMatrix: []profile.BuildMatrixEntry{
				{Board: "nice_nano_v2", Shield: "toy42"},
			},
		},
	}
}

func TestCompileHappyPathCollectsArtifact(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs, onCall: func(idx int, ws string, fs afero.Fs) {
		if idx == 1 { // after "west update", simulate the build producing an artifact
			_ = afero.WriteFile(fs, ws+"/build_toy42/zephyr/zmk.uf2", []byte("firmware"), 0o644)
		}
	}}
	d := New(fs, runner, nil)

	res, err := d.Compile(context.Background(), testProfile(), Options{OutputDir: "/out", WorkspaceDir: "/ws"})
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "/out/toy42-nice_nano_v2-zmk.uf2", res.Artifacts[0])
	assert.Empty(t, res.Missing)

	data, err := afero.ReadFile(fs, "/out/toy42-nice_nano_v2-zmk.uf2")
	require.NoError(t, err)
	assert.Equal(t, "firmware", string(data))
}

func TestCompileMissingArtifactReported(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs}
	d := New(fs, runner, nil)

	res, err := d.Compile(context.Background(), testProfile(), Options{OutputDir: "/out", WorkspaceDir: "/ws"})
	require.NoError(t, err)
	assert.Empty(t, res.Artifacts)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "toy42-nice_nano_v2-zmk", res.Missing[0])
}

func TestCompileRetriesWorkspaceInitOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs, failFirstN: 2}
	d := New(fs, runner, nil)

	_, err := d.Compile(context.Background(), testProfile(), Options{OutputDir: "/out", WorkspaceDir: "/ws"})
	require.NoError(t, err)
	// init retried twice before succeeding on the 3rd attempt, then update and
	// the single build-matrix entry each run once (non-retryable).
	require.Len(t, runner.calls, 5)
	assert.Equal(t, []string{"west", "init", "-l", "config"}, runner.calls[0])
	assert.Equal(t, []string{"west", "init", "-l", "config"}, runner.calls[2])
	assert.Equal(t, []string{"west", "update"}, runner.calls[3])
}

func TestCompileFailurePersistsBuildLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs}
	runner.exitCode = 1
	d := New(fs, runner, nil)

	_, err := d.Compile(context.Background(), testProfile(), Options{OutputDir: "/out", WorkspaceDir: "/ws"})
	require.Error(t, err)

	logData, rerr := afero.ReadFile(fs, "/out/build.log")
	require.NoError(t, rerr)
	assert.NotEmpty(t, logData)
}

func TestResolveUserMappingPrecedence(t *testing.T) {
	cli := &UserMapping{UID: 1, Enabled: true}
	profileCfg := &UserMapping{UID: 2, Enabled: true}
	assert.Equal(t, *cli, ResolveUserMapping(cli, profileCfg, nil, nil))
	assert.Equal(t, *profileCfg, ResolveUserMapping(nil, profileCfg, nil, nil))
}

func TestUnknownStrategyFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs}
	d := New(fs, runner, nil)
	p := testProfile()
	p.BuildMethod.Strategy = "bogus"
	_, err := d.Compile(context.Background(), p, Options{OutputDir: "/out", WorkspaceDir: "/ws"})
	require.Error(t, err)
}
