// Package usbdev implements the USB Device Detector (spec component C9):
// platform-specific block-device probes unified behind one BlockDevice
// shape, a polling added/removed event stream, and a recursive-descent
// query-language parser evaluated against device attributes.
package usbdev

import "context"

// BlockDevice is the platform-independent device record every probe
// normalizes to (spec §4.8).
type BlockDevice struct {
	Path      string // e.g. /dev/sda1 or /Volumes/NICENANO
	Vendor    string
	Product   string
	Serial    string
	Size      int64
	Removable bool
	Attrs     map[string]string // vendor-supplied attributes beyond the fixed set
}

// Key returns a stable identity for dedup/tracking: (vendor, serial) when
// both are known, else the device path (spec §4.8 "stable (vendor, serial)
// or path").
func (d BlockDevice) Key() string {
	if d.Vendor != "" && d.Serial != "" {
		return d.Vendor + "\x00" + d.Serial
	}
	return d.Path
}

// Prober lists the block devices currently visible to the platform.
type Prober interface {
	List(ctx context.Context) ([]BlockDevice, error)
}

// EventKind distinguishes an added from a removed device in the poll loop.
type EventKind int

const (
	Added EventKind = iota
	Removed
)

// Event is one added/removed transition observed by the poll loop.
type Event struct {
	Kind   EventKind
	Device BlockDevice
}
