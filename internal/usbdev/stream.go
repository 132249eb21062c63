package usbdev

import (
	"context"
	"time"

	"github.com/caddyglow/glovebox/internal/glog"
)

// DefaultPollInterval is the spec's default polling cadence (§4.8).
const DefaultPollInterval = 500 * time.Millisecond

// Watch polls prober at interval (DefaultPollInterval if zero), emitting an
// Added event the first time a device's Key() is observed and a Removed
// event once it disappears. It performs a final flush (diffing against the
// last known set) when ctx is cancelled, then closes the returned channel.
func Watch(ctx context.Context, prober Prober, interval time.Duration, log *glog.Logger) <-chan Event {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = glog.Noop()
	}
	out := make(chan Event)

	go func() {
		defer close(out)
		known := map[string]BlockDevice{}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		poll := func(pollCtx context.Context) {
			devices, err := prober.List(pollCtx)
			if err != nil {
				log.Warn("device poll failed", "error", err)
				return
			}
			emitDiff(out, known, devices)
		}

		poll(ctx)
		for {
			select {
			case <-ctx.Done():
				// Final flush: one last poll against a detached context so a
				// cancelled ctx doesn't also abort this last List call, then
				// emit the resulting diff (typically all-Removed) before
				// closing the channel.
				poll(context.Background())
				return
			case <-ticker.C:
				poll(ctx)
			}
		}
	}()

	return out
}

func emitDiff(out chan<- Event, known map[string]BlockDevice, current []BlockDevice) {
	seen := map[string]bool{}
	for _, d := range current {
		key := d.Key()
		seen[key] = true
		if _, ok := known[key]; !ok {
			known[key] = d
			out <- Event{Kind: Added, Device: d}
		}
	}
	for key, d := range known {
		if !seen[key] {
			delete(known, key)
			out <- Event{Kind: Removed, Device: d}
		}
	}
}
