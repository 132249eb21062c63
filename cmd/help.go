package cmd

import (
	"fmt"
	"io"
)

// Helper prints the top-level command summary (spec §6's command table).
type Helper struct {
	out io.Writer
}

// NewHelper constructs a Helper.
func NewHelper(out io.Writer) *Helper {
	return &Helper{out: out}
}

// Show prints usage.
func (h *Helper) Show() {
	fmt.Fprint(h.out, `glovebox - ZMK keyboard firmware toolchain

Usage: glovebox <group> <command> [flags]

  layout    compile | validate | show | decompose | compose | edit | diff | patch | upgrade
  firmware  compile | flash | devices
  config    list | show | edit
  keyboard  list | show | firmwares
  cache     stats | clear
  status
`)
}
