// Package flash implements the Flash Engine (spec component C10): a
// per-device mount/copy/sync/unmount state machine with bounded retries,
// and a concurrent multi-device driver that flashes up to `count` devices
// matching a query, deduplicated by stable identity, until the deadline or
// cancellation.
package flash

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caddyglow/glovebox/internal/glog"
	"github.com/caddyglow/glovebox/internal/usbdev"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// State is one node of the per-device flash state machine (spec §4.8).
type State int

const (
	Idle State = iota
	Mounting
	Copying
	Syncing
	Unmounting
	DoneOK
	DoneErr
	DoneCancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Mounting:
		return "Mounting"
	case Copying:
		return "Copying"
	case Syncing:
		return "Syncing"
	case Unmounting:
		return "Unmounting"
	case DoneOK:
		return "Done(ok)"
	case DoneErr:
		return "Done(err)"
	case DoneCancelled:
		return "Done(cancelled)"
	default:
		return "Unknown"
	}
}

// Default per-transition timeouts and retry count (spec §4.8).
const (
	MountTimeout   = 10 * time.Second
	SyncTimeout    = 5 * time.Second
	UnmountTimeout = 10 * time.Second
	DefaultRetries = 3
)

// Mounter performs the OS-level mount/copy/sync/unmount operations for one
// device. Production code wires a platform mounter; tests supply a fake.
// Copy has no fixed timeout (spec: "bounded by file size") so Mounter
// implementations are responsible for sizing their own internal deadline;
// Run still honors ctx cancellation around the call.
type Mounter interface {
	Mount(ctx context.Context, d usbdev.BlockDevice) (mountPoint string, err error)
	Copy(ctx context.Context, mountPoint string, firmwareFile string) error
	Sync(ctx context.Context, mountPoint string) error
	Unmount(ctx context.Context, d usbdev.BlockDevice, mountPoint string) error
}

// Outcome is the terminal result of one device's state machine run.
type Outcome struct {
	Device usbdev.BlockDevice
	State  State // DoneOK, DoneErr, or DoneCancelled
	Err    error
}

// Machine drives one device through the flash state machine.
type Machine struct {
	mounter Mounter
	log     *glog.Logger
	retries int
}

// NewMachine constructs a Machine. retries defaults to DefaultRetries when <= 0.
func NewMachine(mounter Mounter, log *glog.Logger, retries int) *Machine {
	if log == nil {
		log = glog.Noop()
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Machine{mounter: mounter, log: log, retries: retries}
}

// Run drives d through Mounting -> Copying -> Syncing -> Unmounting -> Done,
// retrying from Idle up to m.retries times on any Mounting/Copying/Syncing
// failure, each retry remounting from scratch (spec §4.8).
func (m *Machine) Run(ctx context.Context, d usbdev.BlockDevice, firmwareFile string) Outcome {
	var lastErr error
	for attempt := 0; attempt <= m.retries; attempt++ {
		if ctx.Err() != nil {
			return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
		}

		mountPoint, err := m.stageWithResult(ctx, Mounting, MountTimeout, d, func(c context.Context) (string, error) {
			return m.mounter.Mount(c, d)
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
			}
			continue
		}

		if ctx.Err() != nil {
			return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
		}
		if err := m.stage(ctx, Copying, 0, d, func(c context.Context) error {
			return m.mounter.Copy(c, mountPoint, firmwareFile)
		}); err != nil {
			if isDeviceGone(err) {
				// ZMK devices reboot out of the bootloader on receiving a
				// valid image; disappearing here counts as success.
				return Outcome{Device: d, State: DoneOK}
			}
			lastErr = err
			if ctx.Err() != nil {
				return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
			}
			continue
		}

		if ctx.Err() != nil {
			return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
		}
		if err := m.stage(ctx, Syncing, SyncTimeout, d, func(c context.Context) error {
			return m.mounter.Sync(c, mountPoint)
		}); err != nil {
			if isDeviceGone(err) {
				return Outcome{Device: d, State: DoneOK}
			}
			lastErr = err
			if ctx.Err() != nil {
				return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
			}
			continue
		}

		if ctx.Err() != nil {
			return Outcome{Device: d, State: DoneCancelled, Err: ctx.Err()}
		}
		unmountErr := m.stage(ctx, Unmounting, UnmountTimeout, d, func(c context.Context) error {
			return m.mounter.Unmount(c, d, mountPoint)
		})
		if unmountErr != nil && !isDeviceGone(unmountErr) {
			m.log.Warn("unmount failed after successful flash", "device", d.Path, "error", unmountErr)
		}
		return Outcome{Device: d, State: DoneOK}
	}
	stage := Mounting.String()
	var fe *gloverr.FlashError
	if errors.As(lastErr, &fe) {
		stage = fe.Stage
	}
	return Outcome{Device: d, State: DoneErr, Err: &gloverr.FlashError{Stage: stage, Device: d.Key(), Reason: "exhausted retries", Err: lastErr}}
}

// stage runs fn under an optional per-transition timeout, wrapping any
// error as a gloverr.FlashError naming the stage and device.
func (m *Machine) stage(ctx context.Context, st State, timeout time.Duration, d usbdev.BlockDevice, fn func(context.Context) error) error {
	c := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		c, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := fn(c); err != nil {
		if isDeviceGone(err) {
			return err
		}
		return &gloverr.FlashError{Stage: st.String(), Device: d.Key(), Reason: err.Error(), Err: err}
	}
	return nil
}

// stageWithResult is stage's counterpart for Mount, which also returns the
// mount point on success.
func (m *Machine) stageWithResult(ctx context.Context, st State, timeout time.Duration, d usbdev.BlockDevice, fn func(context.Context) (string, error)) (string, error) {
	c := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		c, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := fn(c)
	if err != nil {
		if isDeviceGone(err) {
			return "", err
		}
		return "", &gloverr.FlashError{Stage: st.String(), Device: d.Key(), Reason: err.Error(), Err: err}
	}
	return result, nil
}

// deviceGoneError marks an error as "device disconnected," used to
// distinguish the disappears-after-Copying-before-Unmounting success case
// from a genuine failure.
type deviceGoneError struct{ err error }

func (e *deviceGoneError) Error() string { return e.err.Error() }
func (e *deviceGoneError) Unwrap() error { return e.err }

// DeviceGone wraps err to mark it as a disconnect, for Mounter
// implementations to report.
func DeviceGone(err error) error { return &deviceGoneError{err: err} }

func isDeviceGone(err error) bool {
	var dg *deviceGoneError
	return errors.As(err, &dg)
}

// Request describes one multi-device flash invocation (spec §4.8:
// "flash(firmware_file, query, count, timeout, track)").
type Request struct {
	FirmwareFile string
	Query        string
	Count        int
	Timeout      time.Duration
	Track        bool
}

// Flash drives up to req.Count independent Machines concurrently over
// devices matching req.Query observed on prober's event stream, completing
// when Count successes occur, the deadline fires, or ctx is cancelled.
// Cancellation propagates to in-flight Machines, which finish their current
// transition and report Done(cancelled) (spec §4.8).
func Flash(ctx context.Context, prober usbdev.Prober, machine *Machine, log *glog.Logger, req Request) ([]Outcome, error) {
	if log == nil {
		log = glog.Noop()
	}
	pred, err := usbdev.ParseQuery(req.Query)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if req.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, req.Timeout)
		defer timeoutCancel()
	}

	events := usbdev.Watch(runCtx, prober, 0, log)

	var (
		mu       sync.Mutex
		outcomes []Outcome
		tracked  = map[string]bool{}
		successN int
		wg       sync.WaitGroup
	)

	g, gctx := errgroup.WithContext(runCtx)

eventLoop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break eventLoop
			}
			if ev.Kind != usbdev.Added || !pred(ev.Device) {
				continue
			}
			key := ev.Device.Key()
			mu.Lock()
			if req.Track && tracked[key] {
				mu.Unlock()
				continue
			}
			tracked[key] = true
			alreadyDone := req.Count > 0 && successN >= req.Count
			mu.Unlock()
			if alreadyDone {
				continue
			}

			d := ev.Device
			wg.Add(1)
			g.Go(func() error {
				defer wg.Done()
				o := machine.Run(gctx, d, req.FirmwareFile)
				mu.Lock()
				outcomes = append(outcomes, o)
				if o.State == DoneOK {
					successN++
					if req.Count > 0 && successN >= req.Count {
						cancel()
					}
				}
				mu.Unlock()
				return nil
			})
		case <-runCtx.Done():
			break eventLoop
		}
	}
	cancel() // stop Watch's poll loop; drain its final-flush events so it can exit
	go func() {
		for range events {
		}
	}()

	wg.Wait()
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return outcomes, nil
}
