// Package gloverr defines the typed error taxonomy shared by every glovebox
// component, modeled on the teacher's pkg/git.Error: one concrete struct per
// kind, each wrapping an underlying error and rendering operation context.
package gloverr

import "fmt"

// ConfigError reports a problem loading or merging keyboard/firmware profile
// configuration: a missing file, a broken include, a schema violation, or an
// include cycle.
type ConfigError struct {
	Op     string // e.g. "load", "include", "merge"
	Path   string // file or field path involved
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s failed at %s: %s", e.Op, e.Path, e.Reason)
	}
	return fmt.Sprintf("config: %s failed: %s", e.Op, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError reports a layout invariant violation, an unknown behavior
// code, an arity mismatch, or a limit exceeded.
type ValidationError struct {
	Op      string
	Path    string // binding / layer / field path
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("validation: %s at %s: %s", e.Op, e.Path, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ResolutionError reports an undefined variable reference or an unknown
// layer reference encountered while generating DTSI.
type ResolutionError struct {
	Op     string
	Name   string // variable or layer name
	Path   string // binding location
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution: %s: %q not found (at %s)", e.Op, e.Name, e.Path)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IOError wraps a filesystem, network, or container-runtime-absent failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io: %s failed on %s: %s", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("io: %s failed: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// BuildError reports a non-zero compiler exit; it always carries the tail of
// the build log so the caller can render it without re-opening the log file.
type BuildError struct {
	Strategy string
	ExitCode int
	LogTail  []string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build: %s strategy exited %d", e.Strategy, e.ExitCode)
}

func (e *BuildError) Unwrap() error { return e.Err }

// FlashError reports a device-not-found, mount, copy, or unmount failure.
// It always names the device and the state-machine stage it occurred in.
type FlashError struct {
	Stage  string // Mounting, Copying, Syncing, Unmounting
	Device string // vendor/serial or path, for display
	Reason string
	Err    error
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("flash: %s stage failed for %s: %s", e.Stage, e.Device, e.Reason)
}

func (e *FlashError) Unwrap() error { return e.Err }

// Cancelled reports that an operation ended because of user or timeout
// cancellation. It is never surfaced as a failure beyond the exit code.
type Cancelled struct {
	Op string
}

func (e *Cancelled) Error() string { return fmt.Sprintf("%s: cancelled", e.Op) }

// Internal reports an invariant violation inside glovebox itself (a bug),
// as distinct from bad input.
type Internal struct {
	Op  string
	Err error
}

func (e *Internal) Error() string { return fmt.Sprintf("internal error in %s: %s", e.Op, e.Err) }

func (e *Internal) Unwrap() error { return e.Err }

// ProfileIncomplete reports that a keyboard-only profile (no firmware_config)
// was asked to perform a compile-category operation.
type ProfileIncomplete struct {
	Keyboard  string
	Operation string
}

func (e *ProfileIncomplete) Error() string {
	return fmt.Sprintf("profile %q has no firmware config: cannot %s", e.Keyboard, e.Operation)
}

// ConfigNotFound reports that no profile file matched the requested keyboard
// name across any search path.
type ConfigNotFound struct {
	Name string
}

func (e *ConfigNotFound) Error() string { return fmt.Sprintf("config: no profile found for keyboard %q", e.Name) }

// IncludeCycle reports an include graph that revisits a file already on the
// current resolution stack.
type IncludeCycle struct {
	PathStack []string
}

func (e *IncludeCycle) Error() string {
	return fmt.Sprintf("config: include cycle detected: %s", joinArrow(e.PathStack))
}

func joinArrow(paths []string) string {
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

// SchemaError reports a validated profile field that fails its schema rule.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("config: schema violation on %q: %s", e.Field, e.Reason) }

// FirmwareMissing reports that the requested firmware variant is absent from
// an otherwise valid keyboard profile; callers may downgrade to a
// keyboard-only profile.
type FirmwareMissing struct {
	Keyboard string
	Version  string
}

func (e *FirmwareMissing) Error() string {
	return fmt.Sprintf("config: keyboard %q has no firmware variant %q", e.Keyboard, e.Version)
}
