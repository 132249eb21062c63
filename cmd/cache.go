package cmd

import (
	"fmt"
	"io"

	"github.com/caddyglow/glovebox/internal/cache"
)

// Cacher implements the `cache` command group (spec §6): administration of
// the two-tier build cache.
type Cacher struct {
	cache *cache.Cache
	out   io.Writer
}

// NewCacher constructs a Cacher.
func NewCacher(c *cache.Cache, out io.Writer) *Cacher {
	return &Cacher{cache: c, out: out}
}

func (c *Cacher) require() bool {
	if c.cache == nil {
		fmt.Fprintln(c.out, "error: no cache configured")
		return false
	}
	return true
}

// Stats prints the persisted hit/miss/eviction/error counters.
func (c *Cacher) Stats(args []string) int {
	if !c.require() {
		return ExitConfigError
	}
	s := c.cache.Stats()
	fmt.Fprintf(c.out, "hits=%d\n", s.Hits)
	fmt.Fprintf(c.out, "misses=%d\n", s.Misses)
	fmt.Fprintf(c.out, "evictions=%d\n", s.Evictions)
	fmt.Fprintf(c.out, "errors=%d\n", s.Errors)
	return ExitOK
}

// Clear removes the entire cache root (both tiers and the stats file) and
// reinitializes it as empty.
func (c *Cacher) Clear(args []string) int {
	if !c.require() {
		return ExitConfigError
	}
	if err := c.cache.Clear(); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintln(c.out, "cache cleared")
	return ExitOK
}
