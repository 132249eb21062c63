// Package cache implements the Two-Tier Cache (spec component C7): a
// base-deps tier keyed by (repository_url, revision) and a keyboard-config
// tier keyed by the base key plus keyboard name, build matrix, and
// container image, each with TTL-based expiry, atomic publish, per-entry
// advisory locking, and persisted hit/miss/eviction/error counters.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/fsutil"
	"github.com/caddyglow/glovebox/internal/glog"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// BaseDepsTTL and KeyboardConfigShellTTL/KeyboardConfigHashedTTL are the
// spec's default tier lifetimes (§4.6).
const (
	BaseDepsTTL               = 30 * 24 * time.Hour
	KeyboardConfigShellTTL    = 24 * time.Hour
	KeyboardConfigHashedTTL   = 1 * time.Hour
	lockTimeout               = 5 * time.Second
	statsFlushInterval        = 100
)

// Meta is the `.meta.json` sidecar written next to every cache entry,
// used both for key re-verification on hit and TTL expiry.
type Meta struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	TTL       int64     `json:"ttl_seconds"`
	Hashed    bool      `json:"hashed"`
}

func (m Meta) expired(now time.Time) bool {
	return now.Sub(m.CreatedAt) > time.Duration(m.TTL)*time.Second
}

// BaseDepsKey derives the tier-1 cache key from the spec's key inputs.
func BaseDepsKey(repositoryURL, revision string) string {
	return hashKey(repositoryURL + "\x00" + revision)
}

// KeyboardConfigKey derives the tier-2 cache key: base_key ⊕ keyboard_name
// ⊕ serialized(build_matrix) ⊕ container_image (spec §4.6).
func KeyboardConfigKey(baseKey, keyboardName string, buildMatrix any, containerImage string) (string, error) {
	serialized, err := json.Marshal(buildMatrix)
	if err != nil {
		return "", &gloverr.Internal{Op: "keyboard_config_key", Err: err}
	}
	return hashKey(baseKey + "\x00" + keyboardName + "\x00" + string(serialized) + "\x00" + containerImage), nil
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Stats holds the persisted hit/miss/eviction/error counters (spec §5).
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Errors    int64 `json:"errors"`

	ops int
}

// Cache owns both tiers rooted at root, plus the persisted stats file. It is
// explicitly constructed and passed down; there is no package-level cache
// (spec §5: "no process-wide state").
type Cache struct {
	fs    afero.Fs
	root  string
	log   *glog.Logger
	locks Locker
	stats Stats
}

// New constructs a Cache rooted at root. locker defaults to a real flock
// implementation; tests may inject a fake.
func New(fs afero.Fs, root string, log *glog.Logger, locker Locker) *Cache {
	if log == nil {
		log = glog.Noop()
	}
	if locker == nil {
		locker = NewFlockLocker()
	}
	c := &Cache{fs: fs, root: root, log: log, locks: locker}
	c.loadStats()
	return c
}

func (c *Cache) baseDepsDir(key string) string    { return filepath.Join(c.root, "base_deps", key) }
func (c *Cache) keyboardConfigDir(key string) string { return filepath.Join(c.root, "keyboard_config", key) }
func (c *Cache) statsPath() string                 { return filepath.Join(c.root, ".stats.json") }

// Stats returns a snapshot of the persisted counters.
func (c *Cache) Stats() Stats { return c.stats }

// Clear removes every entry in both tiers and resets the persisted
// counters, for the `cache clear` CLI command. Unlike a single entry's
// publish/lookup, there is no concurrent reader to race against a whole-root
// clear within one CLI invocation, so a plain RemoveAll suffices.
func (c *Cache) Clear() error {
	if err := c.fs.RemoveAll(c.root); err != nil {
		return &gloverr.IOError{Op: "cache_clear", Path: c.root, Err: err}
	}
	if err := c.fs.MkdirAll(c.root, 0o755); err != nil {
		return &gloverr.IOError{Op: "cache_clear", Path: c.root, Err: err}
	}
	c.stats = Stats{}
	return nil
}

func (c *Cache) loadStats() {
	data, err := afero.ReadFile(c.fs, c.statsPath())
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, &c.stats)
}

func (c *Cache) recordAndMaybeFlush() {
	c.stats.ops++
	if c.stats.ops >= statsFlushInterval {
		c.stats.ops = 0
		_ = c.FlushStats()
	}
}

// FlushStats atomically writes the current counters to `.stats.json`. Called
// every statsFlushInterval ops and should also be called on shutdown.
func (c *Cache) FlushStats() error {
	data, err := json.Marshal(c.stats)
	if err != nil {
		return &gloverr.Internal{Op: "flush_stats", Err: err}
	}
	return fsutil.AtomicPublish(c.fs, c.statsPath(), func(tmp string) error {
		return afero.WriteFile(c.fs, tmp, data, 0o644)
	})
}

// Entry describes a resolved cache hit: the directory holding the tier's
// content, and whether it was found fresh (false) or is being returned after
// bypassing a failed lock (best-effort, true).
type Entry struct {
	Dir         string
	Degraded    bool // lock unavailable within timeout; proceeding without cache semantics
}

// LookupBaseDeps returns the base-deps directory for (repositoryURL,
// revision) if a valid, non-expired entry exists.
func (c *Cache) LookupBaseDeps(repositoryURL, revision string) (*Entry, bool, error) {
	key := BaseDepsKey(repositoryURL, revision)
	return c.lookup(c.baseDepsDir(key), key, []string{".west", "zephyr", "zmk"})
}

// LookupKeyboardConfig returns the keyboard-config shell directory for the
// given composite key if a valid, non-expired entry exists.
func (c *Cache) LookupKeyboardConfig(baseKey, keyboardName string, buildMatrix any, containerImage string) (*Entry, bool, error) {
	key, err := KeyboardConfigKey(baseKey, keyboardName, buildMatrix, containerImage)
	if err != nil {
		return nil, false, err
	}
	return c.lookup(c.keyboardConfigDir(key), key, []string{"config"})
}

func (c *Cache) lookup(dir, key string, requiredSubdirs []string) (*Entry, bool, error) {
	unlock, degraded, err := c.locks.RLock(dir, lockTimeout)
	if err != nil {
		c.stats.Errors++
		c.recordAndMaybeFlush()
		return nil, false, err
	}
	defer unlock()

	meta, ok := c.readMeta(dir)
	if !ok {
		c.stats.Misses++
		c.recordAndMaybeFlush()
		return nil, false, nil
	}
	now := time.Now()
	if meta.expired(now) {
		c.stats.Misses++
		c.stats.Evictions++
		c.recordAndMaybeFlush()
		return nil, false, nil
	}
	if !c.valid(dir, requiredSubdirs) {
		c.log.Warn("cache entry corrupted, quarantining", "dir", dir)
		c.quarantine(dir)
		c.stats.Misses++
		c.stats.Errors++
		c.recordAndMaybeFlush()
		return nil, false, nil
	}
	c.stats.Hits++
	c.recordAndMaybeFlush()
	return &Entry{Dir: dir, Degraded: degraded}, true, nil
}

func (c *Cache) readMeta(dir string) (Meta, bool) {
	data, err := afero.ReadFile(c.fs, filepath.Join(dir, ".meta.json"))
	if err != nil {
		return Meta{}, false
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, false
	}
	return m, true
}

func (c *Cache) valid(dir string, requiredSubdirs []string) bool {
	if !fsutil.DirNonEmpty(c.fs, dir) {
		return false
	}
	for _, sub := range requiredSubdirs {
		if !fsutil.DirNonEmpty(c.fs, filepath.Join(dir, sub)) {
			return false
		}
	}
	return true
}

func (c *Cache) quarantine(dir string) {
	_ = c.fs.Rename(dir, dir+".corrupt."+hashKey(dir)[:8])
}

// PublishBaseDeps atomically writes a base-deps entry, invoking fill to
// populate the directory (typically a west init + update).
func (c *Cache) PublishBaseDeps(repositoryURL, revision string, fill func(dir string) error) (string, error) {
	key := BaseDepsKey(repositoryURL, revision)
	return c.publish(c.baseDepsDir(key), key, BaseDepsTTL, false, fill)
}

// PublishKeyboardConfig atomically writes a keyboard-config shell entry.
// hashed marks whether this entry also hashes input files, shortening its
// TTL from the shell default to the hashed default (spec §4.6).
func (c *Cache) PublishKeyboardConfig(baseKey, keyboardName string, buildMatrix any, containerImage string, hashed bool, fill func(dir string) error) (string, error) {
	key, err := KeyboardConfigKey(baseKey, keyboardName, buildMatrix, containerImage)
	if err != nil {
		return "", err
	}
	ttl := KeyboardConfigShellTTL
	if hashed {
		ttl = KeyboardConfigHashedTTL
	}
	return c.publish(c.keyboardConfigDir(key), key, ttl, hashed, fill)
}

func (c *Cache) publish(dir, key string, ttl time.Duration, hashed bool, fill func(dir string) error) (string, error) {
	unlock, _, err := c.locks.Lock(dir, lockTimeout)
	if err != nil {
		c.stats.Errors++
		c.recordAndMaybeFlush()
		return "", err
	}
	defer unlock()

	err = fsutil.AtomicPublish(c.fs, dir, func(tmp string) error {
		if err := c.fs.MkdirAll(tmp, 0o755); err != nil {
			return err
		}
		if err := fill(tmp); err != nil {
			return err
		}
		meta := Meta{Key: key, CreatedAt: time.Now(), TTL: int64(ttl / time.Second), Hashed: hashed}
		data, merr := json.Marshal(meta)
		if merr != nil {
			return merr
		}
		return afero.WriteFile(c.fs, filepath.Join(tmp, ".meta.json"), data, 0o644)
	})
	if err != nil {
		c.stats.Errors++
		c.recordAndMaybeFlush()
		return "", &gloverr.IOError{Op: "cache_publish", Path: dir, Err: err}
	}
	return dir, nil
}

// CloneInto copies an existing cache entry's contents to dst, used both to
// materialize a build directory from a hit and to seed a keyboard-config
// entry from its base-deps tier.
func (c *Cache) CloneInto(entryDir, dst string) error {
	if err := fsutil.CopyTree(c.fs, entryDir, dst); err != nil {
		return fmt.Errorf("clone cache entry %s to %s: %w", entryDir, dst, err)
	}
	return nil
}
