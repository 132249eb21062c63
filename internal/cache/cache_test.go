package cache

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(fs, "/cache", nil, NewMemLocker())
}

func TestBaseDepsMissThenPublishThenHit(t *testing.T) {
	c := newTestCache(t)

	_, ok, err := c.LookupBaseDeps("https://github.com/zmkfirmware/zmk", "main")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)

	dir, err := c.PublishBaseDeps("https://github.com/zmkfirmware/zmk", "main", func(dir string) error {
		for _, sub := range []string{".west", "zephyr", "zmk"} {
			if err := c.fs.MkdirAll(dir+"/"+sub, 0o755); err != nil {
				return err
			}
			if err := afero.WriteFile(c.fs, dir+"/"+sub+"/marker", []byte("x"), 0o644); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dir)

	entry, ok, err := c.LookupBaseDeps("https://github.com/zmkfirmware/zmk", "main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dir, entry.Dir)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestBaseDepsEntryMissingRequiredSubdirIsCorrupt(t *testing.T) {
	c := newTestCache(t)
	_, err := c.PublishBaseDeps("url", "rev", func(dir string) error {
		return c.fs.MkdirAll(dir+"/zephyr", 0o755) // missing .west, zmk, and both must be non-empty anyway
	})
	require.NoError(t, err)

	_, ok, err := c.LookupBaseDeps("url", "rev")
	require.NoError(t, err)
	assert.False(t, ok, "entry missing required subdirs must be treated as a miss")
	assert.Equal(t, int64(1), c.Stats().Errors)
}

func TestKeyboardConfigKeyDeterministic(t *testing.T) {
	matrix := []map[string]string{{"board": "nice_nano_v2", "shield": "toy42"}}
	k1, err := KeyboardConfigKey("basekey", "toy42", matrix, "zmkfirmware/zmk-build-arm:3.5")
	require.NoError(t, err)
	k2, err := KeyboardConfigKey("basekey", "toy42", matrix, "zmkfirmware/zmk-build-arm:3.5")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := KeyboardConfigKey("basekey", "toy42", matrix, "zmkfirmware/zmk-build-arm:3.6")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestFlushStatsAtomicRoundTrip(t *testing.T) {
	c := newTestCache(t)
	c.stats.Hits = 42
	require.NoError(t, c.FlushStats())

	c2 := New(c.fs, "/cache", nil, NewMemLocker())
	assert.Equal(t, int64(42), c2.Stats().Hits)
}

func TestCloneIntoCopiesTree(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, afero.WriteFile(c.fs, "/cache/base_deps/x/.west/config", []byte("a"), 0o644))
	err := c.CloneInto("/cache/base_deps/x", "/build")
	require.NoError(t, err)
	data, err := afero.ReadFile(c.fs, "/build/.west/config")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestClearRemovesEntriesAndResetsStats(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, afero.WriteFile(c.fs, "/cache/base_deps/x/.west/config", []byte("a"), 0o644))
	c.stats.Hits = 7

	require.NoError(t, c.Clear())

	exists, err := afero.DirExists(c.fs, "/cache/base_deps/x")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int64(0), c.Stats().Hits)
}
