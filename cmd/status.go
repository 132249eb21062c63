package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/caddyglow/glovebox/internal/cache"
	"github.com/caddyglow/glovebox/internal/prefs"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/internal/usbdev"
)

// Statuser implements the `status` command (spec §6): an end-to-end probe
// of every external collaborator the core depends on, so a user can tell
// what's missing before attempting a build or flash.
type Statuser struct {
	out      io.Writer
	prefs    *prefs.Store
	resolver *profile.Resolver
	cache    *cache.Cache
	prober   usbdev.Prober
}

// NewStatuser constructs a Statuser from the shared Deps bundle.
func NewStatuser(d Deps) *Statuser {
	return &Statuser{out: d.Out, prefs: d.Prefs, resolver: d.Resolver, cache: d.Cache, prober: d.Prober}
}

// Run prints one line per collaborator and its health, returning ExitOK
// unless a collaborator that was configured reports an error.
func (s *Statuser) Run(ctx context.Context, args []string) int {
	ok := true

	if s.prefs != nil {
		fmt.Fprintf(s.out, "prefs: ok (config dir %s)\n", s.prefs.UserConfigDir())
	} else {
		fmt.Fprintln(s.out, "prefs: not configured")
	}

	if s.resolver != nil {
		names, err := s.resolver.ListKeyboards()
		if err != nil {
			fmt.Fprintf(s.out, "profiles: error: %v\n", err)
			ok = false
		} else {
			fmt.Fprintf(s.out, "profiles: ok (%d keyboards discoverable)\n", len(names))
		}
	} else {
		fmt.Fprintln(s.out, "profiles: not configured")
	}

	if s.cache != nil {
		st := s.cache.Stats()
		fmt.Fprintf(s.out, "cache: ok (hits=%d misses=%d)\n", st.Hits, st.Misses)
	} else {
		fmt.Fprintln(s.out, "cache: not configured")
	}

	if s.prober != nil {
		devices, err := s.prober.List(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "usb: error: %v\n", err)
			ok = false
		} else {
			fmt.Fprintf(s.out, "usb: ok (%d devices visible)\n", len(devices))
		}
	} else {
		fmt.Fprintln(s.out, "usb: not configured")
	}

	if !ok {
		return ExitUserError
	}
	return ExitOK
}
