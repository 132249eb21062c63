// Command glovebox is the entry point for the Glovebox ZMK firmware
// toolchain CLI.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/cmd"
	"github.com/caddyglow/glovebox/internal/build"
	"github.com/caddyglow/glovebox/internal/cache"
	"github.com/caddyglow/glovebox/internal/glog"
	"github.com/caddyglow/glovebox/internal/prefs"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/internal/usbdev"
)

// RunApp contains the main application logic, separated out for
// testability the way the teacher's main.go splits RunApp from main.
func RunApp(args []string) int {
	fs := afero.NewOsFs()
	log := glog.New("glovebox", os.Stderr)

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		userConfigDir = os.TempDir()
	}
	userConfigDir = filepath.Join(userConfigDir, "glovebox")

	store, err := prefs.Load(fs, prefs.OSEnv(), userConfigDir)
	if err != nil {
		log.Error("failed to load preferences", "error", err)
		store, _ = prefs.Load(afero.NewMemMapFs(), prefs.OSEnv(), userConfigDir)
	}

	resolver := profile.NewResolver(fs, store.KeyboardSearchPaths())
	c := cache.New(fs, store.CacheRoot(), log, cache.NewFlockLocker())
	driver := build.New(fs, build.NewContainerRunner("docker"), log)
	prober := usbdev.NewPlatformProber()

	root := cmd.NewCmd(cmd.Deps{
		FS:       fs,
		Out:      os.Stdout,
		Log:      log,
		Prefs:    store,
		Resolver: resolver,
		Cache:    c,
		Driver:   driver,
		Prober:   prober,
	})
	return root.Route(context.Background(), args)
}

func main() {
	os.Exit(RunApp(os.Args[1:]))
}
