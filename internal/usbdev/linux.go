//go:build linux

package usbdev

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

const (
	udisksService    = "org.freedesktop.UDisks2"
	udisksObjectPath = dbus.ObjectPath("/org/freedesktop/UDisks2")
	blockIface       = "org.freedesktop.UDisks2.Block"
	driveIface       = "org.freedesktop.UDisks2.Drive"
)

// LinuxProber lists block devices via UDisks2 over the system D-Bus,
// the standard removable-media introspection service on modern Linux
// desktops (spec §4.8: "Linux: udisks-style block listing").
type LinuxProber struct {
	connect func() (*dbus.Conn, error)
}

// NewLinuxProber returns the production Linux Prober, dialing the real
// system bus on each List call.
func NewLinuxProber() *LinuxProber {
	return &LinuxProber{connect: dbus.SystemBus}
}

// NewPlatformProber returns the Prober appropriate for the running OS.
func NewPlatformProber() Prober {
	return NewLinuxProber()
}

func (p *LinuxProber) List(ctx context.Context) ([]BlockDevice, error) {
	conn, err := p.connect()
	if err != nil {
		return nil, &gloverr.IOError{Op: "udisks_connect", Err: err}
	}

	obj := conn.Object(udisksService, udisksObjectPath)
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if err := call.Store(&managed); err != nil {
		return nil, &gloverr.IOError{Op: "udisks_get_managed_objects", Err: err}
	}

	drives := map[dbus.ObjectPath]map[string]dbus.Variant{}
	for path, ifaces := range managed {
		if props, ok := ifaces[driveIface]; ok {
			drives[path] = props
		}
	}

	var devices []BlockDevice
	for path, ifaces := range managed {
		blockProps, ok := ifaces[blockIface]
		if !ok {
			continue
		}
		devices = append(devices, blockDeviceFrom(path, blockProps, drives))
	}
	return devices, nil
}

func blockDeviceFrom(path dbus.ObjectPath, block map[string]dbus.Variant, drives map[dbus.ObjectPath]map[string]dbus.Variant) BlockDevice {
	d := BlockDevice{Path: devicePathOf(block), Attrs: map[string]string{}}

	if drivePath, ok := variantObjectPath(block["Drive"]); ok {
		if driveProps, ok := drives[drivePath]; ok {
			d.Vendor = variantString(driveProps["Vendor"])
			d.Product = variantString(driveProps["Model"])
			d.Serial = variantString(driveProps["Serial"])
			d.Removable = variantBool(driveProps["Removable"])
			d.Size = variantInt64(driveProps["Size"])
		}
	}
	if d.Size == 0 {
		d.Size = variantInt64(block["Size"])
	}
	d.Attrs["id_type"] = variantString(block["IdType"])
	d.Attrs["id_usage"] = variantString(block["IdUsage"])
	return d
}

func devicePathOf(block map[string]dbus.Variant) string {
	if raw, ok := block["Device"]; ok {
		if bytesVal, ok := raw.Value().([]byte); ok {
			return trimNulBytes(bytesVal)
		}
	}
	return fmt.Sprintf("%v", block["Device"])
}

func trimNulBytes(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

func variantBool(v dbus.Variant) bool {
	b, _ := v.Value().(bool)
	return b
}

func variantInt64(v dbus.Variant) int64 {
	switch n := v.Value().(type) {
	case uint64:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

func variantObjectPath(v dbus.Variant) (dbus.ObjectPath, bool) {
	p, ok := v.Value().(dbus.ObjectPath)
	return p, ok
}
