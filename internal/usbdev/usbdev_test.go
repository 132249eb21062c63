package usbdev

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mu      sync.Mutex
	devices []BlockDevice
}

func (p *fakeProber) List(ctx context.Context) ([]BlockDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]BlockDevice, len(p.devices))
	copy(out, p.devices)
	return out, nil
}

func (p *fakeProber) set(devices []BlockDevice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = devices
}

func TestWatchEmitsAddedThenRemoved(t *testing.T) {
	prober := &fakeProber{}
	dev := BlockDevice{Path: "/dev/sda1", Vendor: "Nice", Serial: "ABC123"}
	prober.set([]BlockDevice{dev})

	ctx, cancel := context.WithCancel(context.Background())
	events := Watch(ctx, prober, 10*time.Millisecond, nil)

	first := <-events
	assert.Equal(t, Added, first.Kind)
	assert.Equal(t, "/dev/sda1", first.Device.Path)

	prober.set(nil)
	second := <-events
	assert.Equal(t, Removed, second.Kind)

	cancel()
	for range events {
		// drain until closed
	}
}

func TestBlockDeviceKeyPrefersVendorSerial(t *testing.T) {
	d := BlockDevice{Path: "/dev/sda1", Vendor: "Nice", Serial: "X"}
	assert.Equal(t, "Nice\x00X", d.Key())

	d2 := BlockDevice{Path: "/dev/sda1"}
	assert.Equal(t, "/dev/sda1", d2.Key())
}

func TestParseQueryExactMatch(t *testing.T) {
	pred, err := ParseQuery("vendor=Adafruit")
	require.NoError(t, err)
	assert.True(t, pred(BlockDevice{Vendor: "Adafruit"}))
	assert.False(t, pred(BlockDevice{Vendor: "Other"}))
}

func TestParseQueryNotEqualAbsentSucceeds(t *testing.T) {
	pred, err := ParseQuery("vendor!=Adafruit")
	require.NoError(t, err)
	assert.True(t, pred(BlockDevice{}), "absent attribute must satisfy !=")
}

func TestParseQueryAndOrNotParens(t *testing.T) {
	pred, err := ParseQuery("(vendor=Nice and removable=true) or not (size<100)")
	require.NoError(t, err)
	assert.True(t, pred(BlockDevice{Vendor: "Nice", Removable: true}))
	assert.True(t, pred(BlockDevice{Size: 500}))
	assert.False(t, pred(BlockDevice{Vendor: "Other", Removable: false, Size: 1}))
}

func TestParseQueryRegexUnanchored(t *testing.T) {
	pred, err := ParseQuery("product~=nano")
	require.NoError(t, err)
	assert.True(t, pred(BlockDevice{Product: "nice!nano v2"}))
	assert.False(t, pred(BlockDevice{Product: "keyboard"}))
}

func TestParseQueryNumericComparisons(t *testing.T) {
	pred, err := ParseQuery("size>=1000")
	require.NoError(t, err)
	assert.True(t, pred(BlockDevice{Size: 1000}))
	assert.False(t, pred(BlockDevice{Size: 999}))
}

func TestParseQueryInvalidSyntax(t *testing.T) {
	_, err := ParseQuery("vendor===bad")
	require.Error(t, err)
}

func TestParseQueryUnknownKeyTreatedAsAbsent(t *testing.T) {
	pred, err := ParseQuery("custom_attr=foo")
	require.NoError(t, err)
	assert.False(t, pred(BlockDevice{}))

	predNe, err := ParseQuery("custom_attr!=foo")
	require.NoError(t, err)
	assert.True(t, predNe(BlockDevice{}))
}

func TestParseQueryEmptyMatchesEverything(t *testing.T) {
	pred, err := ParseQuery("")
	require.NoError(t, err)
	assert.True(t, pred(BlockDevice{Path: "/dev/sda1"}))
	assert.True(t, pred(BlockDevice{}))
}
