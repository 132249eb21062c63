//go:build !linux && !darwin

package usbdev

import (
	"context"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// UnsupportedProber reports that device detection has no implementation on
// this platform (spec §4.8: "Windows: unsupported").
type UnsupportedProber struct{}

// NewPlatformProber returns the Prober appropriate for the running OS.
func NewPlatformProber() Prober {
	return UnsupportedProber{}
}

func (UnsupportedProber) List(ctx context.Context) ([]BlockDevice, error) {
	return nil, &gloverr.IOError{Op: "usbdev_list", Err: errUnsupportedPlatform}
}

var errUnsupportedPlatform = unsupportedError("usb device detection is not implemented on this platform")

type unsupportedError string

func (e unsupportedError) Error() string { return string(e) }
