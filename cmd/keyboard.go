package cmd

import (
	"fmt"
	"io"

	"github.com/caddyglow/glovebox/internal/profile"
)

// Keyboarder implements the `keyboard` command group (spec §6): profile
// discovery over the Profile Resolver's search paths.
type Keyboarder struct {
	resolver *profile.Resolver
	out      io.Writer
}

// NewKeyboarder constructs a Keyboarder.
func NewKeyboarder(resolver *profile.Resolver, out io.Writer) *Keyboarder {
	return &Keyboarder{resolver: resolver, out: out}
}

func (k *Keyboarder) requireResolver() bool {
	if k.resolver == nil {
		fmt.Fprintln(k.out, "error: no keyboard search paths configured")
		return false
	}
	return true
}

// List prints every discoverable keyboard name.
func (k *Keyboarder) List(args []string) int {
	if !k.requireResolver() {
		return ExitConfigError
	}
	names, err := k.resolver.ListKeyboards()
	if err != nil {
		fmt.Fprintf(k.out, "error: %v\n", err)
		return ExitUserError
	}
	for _, n := range names {
		fmt.Fprintln(k.out, n)
	}
	return ExitOK
}

// Show prints the resolved keyboard-only profile summary for the keyboard
// named by the first positional argument.
func (k *Keyboarder) Show(args []string) int {
	if !k.requireResolver() {
		return ExitConfigError
	}
	pos, _ := parseFlags(args)
	if len(pos) != 1 {
		fmt.Fprintln(k.out, "usage: glovebox keyboard show <name>")
		return ExitUsage
	}
	p, err := k.resolver.Load(pos[0], "")
	if err != nil {
		fmt.Fprintf(k.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(k.out, "name: %s\n", p.KeyboardName)
	fmt.Fprintf(k.out, "description: %s\n", p.Description)
	fmt.Fprintf(k.out, "vendor: %s\n", p.Vendor)
	fmt.Fprintf(k.out, "key_count: %d\n", p.KeyCount)
	fmt.Fprintf(k.out, "flash_method: %s\n", p.FlashMethod)
	return ExitOK
}

// Firmwares prints every discoverable firmware variant for a keyboard.
func (k *Keyboarder) Firmwares(args []string) int {
	if !k.requireResolver() {
		return ExitConfigError
	}
	pos, _ := parseFlags(args)
	if len(pos) != 1 {
		fmt.Fprintln(k.out, "usage: glovebox keyboard firmwares <name>")
		return ExitUsage
	}
	names, err := k.resolver.ListFirmwares(pos[0])
	if err != nil {
		fmt.Fprintf(k.out, "error: %v\n", err)
		return ExitUserError
	}
	for _, n := range names {
		fmt.Fprintln(k.out, n)
	}
	return ExitOK
}
