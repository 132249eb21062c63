package flash

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/usbdev"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// OSMounter is the production Mounter: it treats d.Path as an already
// OS-mounted volume path (the normal case for a UF2 bootloader drive, which
// the OS auto-mounts on insertion) and copies the firmware file onto it.
// fs defaults to the real filesystem; tests inject afero.NewMemMapFs().
type OSMounter struct {
	fs afero.Fs
}

// NewOSMounter returns the production Mounter.
func NewOSMounter(fs afero.Fs) *OSMounter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &OSMounter{fs: fs}
}

func (m *OSMounter) Mount(ctx context.Context, d usbdev.BlockDevice) (string, error) {
	if exists, _ := afero.DirExists(m.fs, d.Path); !exists {
		return "", &gloverr.IOError{Op: "mount", Path: d.Path, Err: os.ErrNotExist}
	}
	return d.Path, nil
}

func (m *OSMounter) Copy(ctx context.Context, mountPoint, firmwareFile string) error {
	src, err := m.fs.Open(firmwareFile)
	if err != nil {
		return &gloverr.IOError{Op: "copy_open_source", Path: firmwareFile, Err: err}
	}
	defer src.Close()

	dst := filepath.Join(mountPoint, filepath.Base(firmwareFile))
	out, err := m.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return DeviceGone(&gloverr.IOError{Op: "copy_open_dest", Path: dst, Err: err})
		}
		return &gloverr.IOError{Op: "copy_open_dest", Path: dst, Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		if os.IsNotExist(err) {
			return DeviceGone(&gloverr.IOError{Op: "copy", Path: dst, Err: err})
		}
		return &gloverr.IOError{Op: "copy", Path: dst, Err: err}
	}
	return nil
}

func (m *OSMounter) Sync(ctx context.Context, mountPoint string) error {
	if exists, _ := afero.DirExists(m.fs, mountPoint); !exists {
		return DeviceGone(&gloverr.IOError{Op: "sync", Path: mountPoint, Err: os.ErrNotExist})
	}
	return nil
}

func (m *OSMounter) Unmount(ctx context.Context, d usbdev.BlockDevice, mountPoint string) error {
	if exists, _ := afero.DirExists(m.fs, mountPoint); !exists {
		return DeviceGone(&gloverr.IOError{Op: "unmount", Path: mountPoint, Err: os.ErrNotExist})
	}
	return nil
}
