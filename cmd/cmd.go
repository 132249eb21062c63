// Package cmd implements the Glovebox CLI dispatch table (spec §6): a thin
// layer translating argv into calls on the internal components, returning
// one of the six documented exit codes. It holds no business logic of its
// own, mirroring the teacher's cmd.Cmd, which is itself a pure dispatcher
// over *er-suffixed handlers.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/build"
	"github.com/caddyglow/glovebox/internal/cache"
	"github.com/caddyglow/glovebox/internal/flash"
	"github.com/caddyglow/glovebox/internal/glog"
	"github.com/caddyglow/glovebox/internal/prefs"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/internal/usbdev"
)

// Exit codes (spec §6): "0 success, 1 user-recoverable error, 2 usage
// error, 3 configuration error, 4 build failure, 5 flash failure."
const (
	ExitOK           = 0
	ExitUserError    = 1
	ExitUsage        = 2
	ExitConfigError  = 3
	ExitBuildFailure = 4
	ExitFlashFailure = 5
)

// Deps bundles every collaborator Cmd needs. Assembling it is main's job;
// Cmd itself never constructs its dependencies, so tests can swap any of
// them for a fake.
type Deps struct {
	FS       afero.Fs
	Out      io.Writer
	Log      *glog.Logger
	Prefs    *prefs.Store
	Resolver *profile.Resolver
	Cache    *cache.Cache
	Driver   *build.Driver
	Prober   usbdev.Prober
	Mounter  flash.Mounter
}

// Cmd is the root dispatcher, composed of one handler per CLI group.
type Cmd struct {
	out      io.Writer
	layout   *Layouter
	firmware *Firmwarer
	config   *Configurer
	keyboard *Keyboarder
	cache    *Cacher
	status   *Statuser
	help     *Helper
}

// NewCmd wires a Cmd from d. A nil FS, Out or Log is given a default (the OS
// filesystem, os.Stdout, a no-op logger); the other collaborators are passed
// on as given, so callers building a Cmd for a single subcommand's tests
// don't have to populate all of Deps.
func NewCmd(d Deps) *Cmd {
	if d.FS == nil {
		d.FS = afero.NewOsFs()
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Log == nil {
		d.Log = glog.Noop()
	}
	return &Cmd{
		out:      d.Out,
		layout:   NewLayouter(d.FS, d.Out),
		firmware: NewFirmwarer(d),
		config:   NewConfigurer(d.Prefs, d.Out),
		keyboard: NewKeyboarder(d.Resolver, d.Out),
		cache:    NewCacher(d.Cache, d.Out),
		status:   NewStatuser(d),
		help:     NewHelper(d.Out),
	}
}

// Route dispatches argv (already stripped of the program name) to the
// matching group/command pair and returns the process exit code.
func (c *Cmd) Route(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.help.Show()
		return ExitUsage
	}

	group, rest := args[0], args[1:]
	switch group {
	case "help", "-h", "--help":
		c.help.Show()
		return ExitOK
	case "layout":
		return c.routeLayout(rest)
	case "firmware":
		return c.routeFirmware(ctx, rest)
	case "config":
		return c.routeConfig(rest)
	case "keyboard":
		return c.routeKeyboard(rest)
	case "cache":
		return c.routeCache(rest)
	case "status":
		return c.status.Run(ctx, rest)
	default:
		fmt.Fprintf(c.out, "glovebox: unknown command group %q\n", group)
		c.help.Show()
		return ExitUsage
	}
}

func (c *Cmd) routeLayout(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "glovebox layout: missing subcommand")
		return ExitUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "compile":
		return c.layout.Compile(rest)
	case "validate":
		return c.layout.Validate(rest)
	case "show":
		return c.layout.Show(rest)
	case "decompose":
		return c.layout.Decompose(rest)
	case "compose":
		return c.layout.Compose(rest)
	case "edit":
		return c.layout.Edit(rest)
	case "diff":
		return c.layout.Diff(rest)
	case "patch":
		return c.layout.Patch(rest)
	case "upgrade":
		return c.layout.Upgrade(rest)
	default:
		fmt.Fprintf(c.out, "glovebox layout: unknown subcommand %q\n", sub)
		return ExitUsage
	}
}

func (c *Cmd) routeFirmware(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "glovebox firmware: missing subcommand")
		return ExitUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "compile":
		return c.firmware.Compile(ctx, rest)
	case "flash":
		return c.firmware.Flash(ctx, rest)
	case "devices":
		return c.firmware.Devices(ctx, rest)
	default:
		fmt.Fprintf(c.out, "glovebox firmware: unknown subcommand %q\n", sub)
		return ExitUsage
	}
}

func (c *Cmd) routeConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "glovebox config: missing subcommand")
		return ExitUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return c.config.List(rest)
	case "show":
		return c.config.Show(rest)
	case "edit":
		return c.config.Edit(rest)
	default:
		fmt.Fprintf(c.out, "glovebox config: unknown subcommand %q\n", sub)
		return ExitUsage
	}
}

func (c *Cmd) routeKeyboard(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "glovebox keyboard: missing subcommand")
		return ExitUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return c.keyboard.List(rest)
	case "show":
		return c.keyboard.Show(rest)
	case "firmwares":
		return c.keyboard.Firmwares(rest)
	default:
		fmt.Fprintf(c.out, "glovebox keyboard: unknown subcommand %q\n", sub)
		return ExitUsage
	}
}

func (c *Cmd) routeCache(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "glovebox cache: missing subcommand")
		return ExitUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "stats":
		return c.cache.Stats(rest)
	case "clear":
		return c.cache.Clear(rest)
	default:
		fmt.Fprintf(c.out, "glovebox cache: unknown subcommand %q\n", sub)
		return ExitUsage
	}
}
