package flash

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddyglow/glovebox/internal/usbdev"
)

type scriptedMounter struct {
	mu           sync.Mutex
	mountFails   int // number of leading Mount calls that fail
	mountCalls   int32
	copyErr      error
	syncErr      error
	unmountErr   error
}

func (m *scriptedMounter) Mount(ctx context.Context, d usbdev.BlockDevice) (string, error) {
	n := atomic.AddInt32(&m.mountCalls, 1)
	if int(n) <= m.mountFails {
		return "", errors.New("mount failed")
	}
	return "/mnt/" + d.Path, nil
}

func (m *scriptedMounter) Copy(ctx context.Context, mountPoint, firmwareFile string) error {
	return m.copyErr
}

func (m *scriptedMounter) Sync(ctx context.Context, mountPoint string) error {
	return m.syncErr
}

func (m *scriptedMounter) Unmount(ctx context.Context, d usbdev.BlockDevice, mountPoint string) error {
	return m.unmountErr
}

func TestMachineRunHappyPath(t *testing.T) {
	mounter := &scriptedMounter{}
	machine := NewMachine(mounter, nil, 3)
	o := machine.Run(context.Background(), usbdev.BlockDevice{Path: "/dev/sda1"}, "fw.uf2")
	assert.Equal(t, DoneOK, o.State)
}

func TestMachineRunRetriesMountFailures(t *testing.T) {
	mounter := &scriptedMounter{mountFails: 2}
	machine := NewMachine(mounter, nil, 3)
	o := machine.Run(context.Background(), usbdev.BlockDevice{Path: "/dev/sda1"}, "fw.uf2")
	assert.Equal(t, DoneOK, o.State)
	assert.Equal(t, int32(3), mounter.mountCalls)
}

func TestMachineRunExhaustsRetries(t *testing.T) {
	mounter := &scriptedMounter{mountFails: 100}
	machine := NewMachine(mounter, nil, 2)
	o := machine.Run(context.Background(), usbdev.BlockDevice{Path: "/dev/sda1"}, "fw.uf2")
	assert.Equal(t, DoneErr, o.State)
	require.Error(t, o.Err)
}

func TestMachineRunDeviceGoneDuringCopyIsSuccess(t *testing.T) {
	mounter := &scriptedMounter{copyErr: DeviceGone(errors.New("no such file or directory"))}
	machine := NewMachine(mounter, nil, 3)
	o := machine.Run(context.Background(), usbdev.BlockDevice{Path: "/dev/sda1"}, "fw.uf2")
	assert.Equal(t, DoneOK, o.State)
}

func TestMachineRunUnmountFailureDoesNotChangeOKVerdict(t *testing.T) {
	mounter := &scriptedMounter{unmountErr: errors.New("busy")}
	machine := NewMachine(mounter, nil, 3)
	o := machine.Run(context.Background(), usbdev.BlockDevice{Path: "/dev/sda1"}, "fw.uf2")
	assert.Equal(t, DoneOK, o.State)
}

type fakeProber struct {
	mu      sync.Mutex
	devices []usbdev.BlockDevice
}

func (p *fakeProber) List(ctx context.Context) ([]usbdev.BlockDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]usbdev.BlockDevice, len(p.devices))
	copy(out, p.devices)
	return out, nil
}

func (p *fakeProber) add(d usbdev.BlockDevice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append(p.devices, d)
}

func TestFlashCompletesOnCount(t *testing.T) {
	prober := &fakeProber{}
	prober.add(usbdev.BlockDevice{Path: "/dev/sda1", Vendor: "Nice", Serial: "A"})
	prober.add(usbdev.BlockDevice{Path: "/dev/sdb1", Vendor: "Nice", Serial: "B"})

	machine := NewMachine(&scriptedMounter{}, nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcomes, err := Flash(ctx, prober, machine, nil, Request{
		FirmwareFile: "fw.uf2", Query: "vendor=Nice", Count: 2, Timeout: time.Second, Track: true,
	})
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, DoneOK, o.State)
	}
}

func TestFlashTrackPreventsDoubleFlash(t *testing.T) {
	prober := &fakeProber{}
	prober.add(usbdev.BlockDevice{Path: "/dev/sda1", Vendor: "Nice", Serial: "A"})

	machine := NewMachine(&scriptedMounter{}, nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	outcomes, err := Flash(ctx, prober, machine, nil, Request{
		FirmwareFile: "fw.uf2", Query: "vendor=Nice", Count: 5, Timeout: 250 * time.Millisecond, Track: true,
	})
	require.NoError(t, err)
	assert.Len(t, outcomes, 1, "the same device must not be flashed twice in one invocation")
}

func TestFlashFiltersByQuery(t *testing.T) {
	prober := &fakeProber{}
	prober.add(usbdev.BlockDevice{Path: "/dev/sda1", Vendor: "Other", Serial: "A"})

	machine := NewMachine(&scriptedMounter{}, nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	outcomes, err := Flash(ctx, prober, machine, nil, Request{
		FirmwareFile: "fw.uf2", Query: "vendor=Nice", Count: 1, Timeout: 150 * time.Millisecond, Track: true,
	})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
