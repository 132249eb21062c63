package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/build"
	"github.com/caddyglow/glovebox/internal/cache"
	"github.com/caddyglow/glovebox/internal/dtsi"
	"github.com/caddyglow/glovebox/internal/flash"
	"github.com/caddyglow/glovebox/internal/glog"
	"github.com/caddyglow/glovebox/internal/layout"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/internal/usbdev"
	"github.com/caddyglow/glovebox/internal/vcs"
	"github.com/caddyglow/glovebox/internal/workspace"
)

// Firmwarer implements the `firmware` command group (spec §6): DTSI
// generation, container build, device enumeration, and flashing.
type Firmwarer struct {
	fs       afero.Fs
	out      io.Writer
	log      *glog.Logger
	resolver *profile.Resolver
	cache    *cache.Cache
	driver   *build.Driver
	prober   usbdev.Prober
	mounter  flash.Mounter
}

// NewFirmwarer constructs a Firmwarer from the shared Deps bundle.
func NewFirmwarer(d Deps) *Firmwarer {
	return &Firmwarer{
		fs: d.FS, out: d.Out, log: d.Log,
		resolver: d.Resolver, cache: d.Cache, driver: d.Driver,
		prober: d.Prober, mounter: d.Mounter,
	}
}

func (f *Firmwarer) loadProfileAndLayout(keyboard, firmware, layoutPath string) (*profile.KeyboardProfile, *layout.Layout, error) {
	if f.resolver == nil {
		return nil, nil, fmt.Errorf("no profile resolver configured")
	}
	p, err := f.resolver.Load(keyboard, firmware)
	if err != nil {
		return nil, nil, err
	}
	data, err := afero.ReadFile(f.fs, layoutPath)
	if err != nil {
		return nil, nil, err
	}
	lay, err := layout.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return p, lay, nil
}

// Compile generates DTSI from --layout under --keyboard/--firmware, builds
// a workspace at --workspace, and runs the container build into --out.
func (f *Firmwarer) Compile(ctx context.Context, args []string) int {
	_, flags := parseFlags(args)
	keyboard, firmware, layoutPath := flags["keyboard"], flags["firmware"], flags["layout"]
	workspaceDir, outDir := flags["workspace"], flags["out"]
	if keyboard == "" || layoutPath == "" || workspaceDir == "" || outDir == "" {
		fmt.Fprintln(f.out, "usage: glovebox firmware compile --keyboard <name> [--firmware <variant>] --layout <file> --workspace <dir> --out <dir>")
		return ExitUsage
	}

	p, lay, err := f.loadProfileAndLayout(keyboard, firmware, layoutPath)
	if err != nil {
		fmt.Fprintf(f.out, "error: %v\n", err)
		return ExitConfigError
	}

	result, err := dtsi.Generate(p, lay)
	if err != nil {
		fmt.Fprintf(f.out, "error: %v\n", err)
		return ExitUserError
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(f.out, "warning: %s: %s\n", w.Kind, w.Message)
	}

	cloner := vcs.NewCloner()
	clone := f.cachedClone(cloner)
	if err := workspace.Build(f.fs, workspaceDir, p, result, clone); err != nil {
		fmt.Fprintf(f.out, "error: %v\n", err)
		return ExitBuildFailure
	}

	if f.driver == nil {
		fmt.Fprintln(f.out, "error: no build driver configured")
		return ExitConfigError
	}
	buildResult, err := f.driver.Compile(ctx, p, build.Options{OutputDir: outDir, WorkspaceDir: workspaceDir})
	if err != nil {
		fmt.Fprintf(f.out, "build failed: %v\n", err)
		return ExitBuildFailure
	}
	for _, a := range buildResult.Artifacts {
		fmt.Fprintf(f.out, "built %s\n", a)
	}
	for _, m := range buildResult.Missing {
		fmt.Fprintf(f.out, "missing artifact: %s\n", m)
	}
	if len(buildResult.Missing) > 0 {
		return ExitBuildFailure
	}
	return ExitOK
}

// cachedClone wraps cloner.Clone with the Two-Tier Cache's base-deps tier:
// a cache hit skips the network entirely via Cache.CloneInto, a miss clones
// once and publishes the result for the next invocation (spec §4.6: "tier
// 1 ... shared by every keyboard built from the same ZMK/west tree").
func (f *Firmwarer) cachedClone(cloner *vcs.Cloner) func(repoURL, revision, dst string) error {
	return func(repoURL, revision, dst string) error {
		if f.cache == nil {
			return cloner.Clone(repoURL, revision, dst)
		}
		entry, hit, err := f.cache.LookupBaseDeps(repoURL, revision)
		if err == nil && hit {
			return f.cache.CloneInto(entry.Dir, dst)
		}
		entryDir, err := f.cache.PublishBaseDeps(repoURL, revision, func(tmp string) error {
			return cloner.Clone(repoURL, revision, tmp)
		})
		if err != nil {
			return err
		}
		return f.cache.CloneInto(entryDir, dst)
	}
}

// Flash drives the multi-device flash engine over --firmware-file, matching
// --query, until --count devices succeed or --timeout elapses.
func (f *Firmwarer) Flash(ctx context.Context, args []string) int {
	_, flags := parseFlags(args)
	firmwareFile, query := flags["firmware-file"], flags["query"]
	if firmwareFile == "" {
		fmt.Fprintln(f.out, "usage: glovebox firmware flash --firmware-file <file> [--query <expr>] [--count N] [--timeout 30s]")
		return ExitUsage
	}
	if f.prober == nil {
		fmt.Fprintln(f.out, "error: no USB device prober configured for this platform")
		return ExitConfigError
	}
	mounter := f.mounter
	if mounter == nil {
		mounter = flash.NewOSMounter(f.fs)
	}
	count := 1
	if v, ok := flags["count"]; ok {
		fmt.Sscanf(v, "%d", &count)
	}
	timeout := 30 * time.Second
	if v, ok := flags["timeout"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	machine := flash.NewMachine(mounter, f.log, flash.DefaultRetries)
	outcomes, err := flash.Flash(ctx, f.prober, machine, f.log, flash.Request{
		FirmwareFile: firmwareFile,
		Query:        query,
		Count:        count,
		Timeout:      timeout,
		Track:        true,
	})
	if err != nil {
		fmt.Fprintf(f.out, "error: %v\n", err)
		return ExitUserError
	}
	failed := 0
	for _, o := range outcomes {
		fmt.Fprintf(f.out, "%s: %s\n", o.Device.Key(), o.State)
		if o.State != flash.DoneOK {
			failed++
		}
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(f.out, "no matching device was flashed")
		return ExitFlashFailure
	}
	if failed > 0 {
		return ExitFlashFailure
	}
	return ExitOK
}

// Devices lists every device matching --query (or every device, if absent).
func (f *Firmwarer) Devices(ctx context.Context, args []string) int {
	_, flags := parseFlags(args)
	if f.prober == nil {
		fmt.Fprintln(f.out, "error: no USB device prober configured for this platform")
		return ExitConfigError
	}
	devices, err := f.prober.List(ctx)
	if err != nil {
		fmt.Fprintf(f.out, "error: %v\n", err)
		return ExitUserError
	}
	pred, err := usbdev.ParseQuery(flags["query"])
	if err != nil {
		fmt.Fprintf(f.out, "error: %v\n", err)
		return ExitUsage
	}
	for _, d := range devices {
		if !pred(d) {
			continue
		}
		fmt.Fprintf(f.out, "%s  vendor=%s product=%s serial=%s size=%d removable=%v\n",
			d.Path, d.Vendor, d.Product, d.Serial, d.Size, d.Removable)
	}
	return ExitOK
}
