package cmd

import (
	"fmt"
	"io"

	"github.com/caddyglow/glovebox/internal/prefs"
)

// Configurer implements the `config` command group (spec §6): inspecting
// and editing the user preferences store.
type Configurer struct {
	store *prefs.Store
	out   io.Writer
}

// NewConfigurer constructs a Configurer. store may be nil if Deps.Prefs was
// not supplied; every method reports ExitConfigError in that case rather
// than panicking.
func NewConfigurer(store *prefs.Store, out io.Writer) *Configurer {
	return &Configurer{store: store, out: out}
}

func (c *Configurer) requireStore() bool {
	if c.store == nil {
		fmt.Fprintln(c.out, "error: no preferences store configured")
		return false
	}
	return true
}

// List prints every resolved setting, one per line.
func (c *Configurer) List(args []string) int {
	if !c.requireStore() {
		return ExitConfigError
	}
	fmt.Fprintf(c.out, "default_profile=%s\n", c.store.DefaultProfile())
	fmt.Fprintf(c.out, "default_layout_file=%s\n", c.store.DefaultLayoutFile())
	fmt.Fprintf(c.out, "cache_root=%s\n", c.store.CacheRoot())
	fmt.Fprintf(c.out, "keyboard_search_paths=%v\n", c.store.KeyboardSearchPaths())
	fmt.Fprintf(c.out, "flash_retries=%d\n", c.store.FlashRetries())
	return ExitOK
}

// Show prints the single resolved setting named by the first positional
// argument.
func (c *Configurer) Show(args []string) int {
	if !c.requireStore() {
		return ExitConfigError
	}
	pos, _ := parseFlags(args)
	if len(pos) != 1 {
		fmt.Fprintln(c.out, "usage: glovebox config show <key>")
		return ExitUsage
	}
	switch pos[0] {
	case "default_profile":
		fmt.Fprintln(c.out, c.store.DefaultProfile())
	case "default_layout_file":
		fmt.Fprintln(c.out, c.store.DefaultLayoutFile())
	case "cache_root":
		fmt.Fprintln(c.out, c.store.CacheRoot())
	case "keyboard_search_paths":
		fmt.Fprintln(c.out, c.store.KeyboardSearchPaths())
	case "flash_retries":
		fmt.Fprintln(c.out, c.store.FlashRetries())
	default:
		fmt.Fprintf(c.out, "error: unknown setting %q\n", pos[0])
		return ExitUserError
	}
	return ExitOK
}

// Edit sets one key=value pair in the file-backed config and persists it.
// Only file values are mutable; an active environment override continues
// to take precedence on subsequent reads, by design (spec §6: "the core
// reads these only via the preferences store it is handed" — env is the
// deployer's override, not the user's).
func (c *Configurer) Edit(args []string) int {
	if !c.requireStore() {
		return ExitConfigError
	}
	pos, _ := parseFlags(args)
	if len(pos) != 1 {
		fmt.Fprintln(c.out, "usage: glovebox config edit <key>=<value>")
		return ExitUsage
	}
	key, value, ok := splitKV(pos[0])
	if !ok {
		fmt.Fprintln(c.out, "usage: glovebox config edit <key>=<value>")
		return ExitUsage
	}
	cfg := c.store.Config()
	switch key {
	case "default_profile":
		cfg.DefaultProfile = value
	case "default_layout_file":
		cfg.DefaultLayoutFile = value
	case "cache_root":
		cfg.CacheRoot = value
	case "container_engine":
		cfg.ContainerEngine = value
	default:
		fmt.Fprintf(c.out, "error: unknown setting %q\n", key)
		return ExitUserError
	}
	c.store.SetConfig(cfg)
	if err := c.store.Save(); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return ExitConfigError
	}
	fmt.Fprintf(c.out, "%s=%s\n", key, value)
	return ExitOK
}
