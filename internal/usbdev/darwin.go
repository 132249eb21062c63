//go:build darwin

package usbdev

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// DarwinProber lists block devices via `diskutil list` + `diskutil info`,
// the standard removable-media introspection tool on macOS (spec §4.8:
// "macOS: diskutil").
type DarwinProber struct {
	execCommand func(name string, arg ...string) *exec.Cmd
}

// NewDarwinProber returns the production macOS Prober.
func NewDarwinProber() *DarwinProber {
	return &DarwinProber{execCommand: exec.Command}
}

// NewPlatformProber returns the Prober appropriate for the running OS.
func NewPlatformProber() Prober {
	return NewDarwinProber()
}

func (p *DarwinProber) List(ctx context.Context) ([]BlockDevice, error) {
	ids, err := p.listDiskIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	var devices []BlockDevice
	for _, id := range ids {
		d, err := p.info(ctx, id)
		if err != nil {
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// listDiskIdentifiers scans `diskutil list` output for `/dev/diskN` lines.
func (p *DarwinProber) listDiskIdentifiers(ctx context.Context) ([]string, error) {
	out, err := p.run(ctx, "diskutil", "list")
	if err != nil {
		return nil, err
	}
	var ids []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "/dev/disk") {
			ids = append(ids, strings.TrimPrefix(line, "/dev/"))
		}
	}
	return ids, nil
}

// info parses `diskutil info <id>`'s "Key:   Value" lines for the fields
// the spec's BlockDevice needs.
func (p *DarwinProber) info(ctx context.Context, id string) (BlockDevice, error) {
	out, err := p.run(ctx, "diskutil", "info", id)
	if err != nil {
		return BlockDevice{}, err
	}
	fields := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	size, _ := strconv.ParseInt(fields["Total Size"], 10, 64)
	return BlockDevice{
		Path:      "/dev/" + id,
		Product:   fields["Media Name"],
		Serial:    fields["Volume UUID"],
		Size:      size,
		Removable: strings.EqualFold(fields["Removable Media"], "Yes") || strings.EqualFold(fields["Device Location"], "External"),
		Attrs:     map[string]string{"volume_name": fields["Volume Name"]},
	}, nil
}

func (p *DarwinProber) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := p.execCommand(name, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", &gloverr.IOError{Op: "diskutil_exec", Path: name, Err: err}
	}
	return string(out), nil
}
