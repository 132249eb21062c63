package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/layout"
)

// Layouter implements the `layout` command group (spec §6): JSON <->
// in-memory Layout transforms. It never touches profiles or firmware; that
// boundary is what keeps layout operations usable without a container or a
// connected board.
type Layouter struct {
	fs  afero.Fs
	out io.Writer
}

// NewLayouter constructs a Layouter.
func NewLayouter(fs afero.Fs, out io.Writer) *Layouter {
	return &Layouter{fs: fs, out: out}
}

func (l *Layouter) readLayout(path string) (*layout.Layout, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	return layout.Parse(data)
}

func (l *Layouter) writeLayout(path string, lay *layout.Layout) error {
	data, err := lay.Canonical()
	if err != nil {
		return err
	}
	return afero.WriteFile(l.fs, path, data, 0o644)
}

// Compile parses --layout and re-emits its canonical JSON to --out,
// validating structure along the way (`layout.Parse` round-trips via
// UnmarshalJSON/MarshalJSON). DTSI/.keymap emission belongs to `firmware
// compile`; chaining the two is the caller's job (spec §6: "optionally
// chained to firmware").
func (l *Layouter) Compile(args []string) int {
	pos, flags := parseFlags(args)
	_ = pos
	in := flags["layout"]
	out := flags["out"]
	if in == "" || out == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout compile --layout <file> --out <file>")
		return ExitUsage
	}
	lay, err := l.readLayout(in)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	if err := l.writeLayout(out, lay); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "wrote %s\n", out)
	return ExitOK
}

// Validate parses --layout, reporting success or the first structural
// error. Behavior-level validation (arity, unknown codes, layer limits)
// happens inside `firmware compile`'s call to dtsi.Generate, since it needs
// a profile; layout-only validation is limited to what the JSON model
// itself enforces.
func (l *Layouter) Validate(args []string) int {
	_, flags := parseFlags(args)
	in := flags["layout"]
	if in == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout validate --layout <file>")
		return ExitUsage
	}
	if _, err := l.readLayout(in); err != nil {
		fmt.Fprintf(l.out, "invalid: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintln(l.out, "valid")
	return ExitOK
}

// Show renders each layer as a textual grid of binding codes.
func (l *Layouter) Show(args []string) int {
	_, flags := parseFlags(args)
	in := flags["layout"]
	if in == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout show --layout <file>")
		return ExitUsage
	}
	lay, err := l.readLayout(in)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	for i, name := range lay.LayerNames {
		fmt.Fprintf(l.out, "layer %d: %s\n", i, name)
		if i >= len(lay.Layers) {
			continue
		}
		for pos, b := range lay.Layers[i] {
			fmt.Fprintf(l.out, "  [%3d] %s\n", pos, renderBinding(b))
		}
	}
	return ExitOK
}

func renderBinding(b layout.Binding) string {
	if b.IsLeaf() {
		return b.Value
	}
	s := b.Value
	for _, p := range b.Params {
		s += " " + renderBinding(p)
	}
	return s
}

// Decompose splits --layout into per-layer files under --dir.
func (l *Layouter) Decompose(args []string) int {
	_, flags := parseFlags(args)
	in, dir := flags["layout"], flags["dir"]
	if in == "" || dir == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout decompose --layout <file> --dir <dir>")
		return ExitUsage
	}
	lay, err := l.readLayout(in)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	if err := layout.Decompose(l.fs, lay, dir); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "decomposed into %s\n", dir)
	return ExitOK
}

// Compose merges per-layer files under --dir back into --out.
func (l *Layouter) Compose(args []string) int {
	_, flags := parseFlags(args)
	dir, out := flags["dir"], flags["out"]
	if dir == "" || out == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout compose --dir <dir> --out <file>")
		return ExitUsage
	}
	lay, err := layout.Compose(l.fs, dir)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	if err := l.writeLayout(out, lay); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "composed into %s\n", out)
	return ExitOK
}

// Edit applies a single batched field mutation: `--set path=value`,
// `--unset path`, or `--append path=value`. Multiple flags of different
// kinds in one invocation are rejected rather than silently picking one,
// since spec §4.3 calls edit "transactional": one invocation, one mutation.
func (l *Layouter) Edit(args []string) int {
	_, flags := parseFlags(args)
	in, out := flags["layout"], flags["out"]
	if in == "" || out == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout edit --layout <file> --out <file> [--set path=value|--unset path|--append path=value]")
		return ExitUsage
	}
	given := 0
	for _, k := range []string{"set", "unset", "append"} {
		if flags[k] != "" {
			given++
		}
	}
	if given > 1 {
		fmt.Fprintln(l.out, "error: only one of --set, --unset, --append may be given")
		return ExitUsage
	}
	lay, err := l.readLayout(in)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}

	var edited *layout.Layout
	switch {
	case flags["set"] != "":
		path, value, ok := splitKV(flags["set"])
		if !ok {
			fmt.Fprintln(l.out, "error: --set requires path=value")
			return ExitUsage
		}
		edited, err = lay.SetField(path, value)
	case flags["unset"] != "":
		edited, err = lay.Unset(flags["unset"])
	case flags["append"] != "":
		path, value, ok := splitKV(flags["append"])
		if !ok {
			fmt.Fprintln(l.out, "error: --append requires path=value")
			return ExitUsage
		}
		edited, err = lay.Append(path, value)
	default:
		fmt.Fprintln(l.out, "error: one of --set, --unset, --append is required")
		return ExitUsage
	}
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	if err := l.writeLayout(out, edited); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "wrote %s\n", out)
	return ExitOK
}

// Diff computes a structural patch between --a and --b, writing JSON to
// --out (or stdout if --out is omitted).
func (l *Layouter) Diff(args []string) int {
	_, flags := parseFlags(args)
	aPath, bPath := flags["a"], flags["b"]
	if aPath == "" || bPath == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout diff --a <file> --b <file> [--out <file>]")
		return ExitUsage
	}
	a, err := l.readLayout(aPath)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	b, err := l.readLayout(bPath)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	patch, err := layout.Diff(a, b, layout.DiffOptions{})
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	return l.writePatchOrStdout(patch, flags["out"])
}

// Patch applies a previously computed diff (--patch) to --layout, writing
// --out under the given --policy (source|patch|fail; default source).
func (l *Layouter) Patch(args []string) int {
	_, flags := parseFlags(args)
	in, patchPath, out := flags["layout"], flags["patch"], flags["out"]
	if in == "" || patchPath == "" || out == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout patch --layout <file> --patch <file> --out <file> [--policy source|patch|fail]")
		return ExitUsage
	}
	lay, err := l.readLayout(in)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	patch, err := readPatch(l.fs, patchPath)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	policy := parsePolicy(flags["policy"])
	result, conflicts, err := layout.Apply(lay, patch, policy)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	for _, c := range conflicts {
		fmt.Fprintf(l.out, "conflict: %s (%s)\n", c.Change.Kind, c.Reason)
	}
	if err := l.writeLayout(out, result); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "wrote %s\n", out)
	return ExitOK
}

// Upgrade rebases --layout (derived from --old-master) onto --new-master.
func (l *Layouter) Upgrade(args []string) int {
	_, flags := parseFlags(args)
	in, oldMaster, newMaster, out := flags["layout"], flags["old-master"], flags["new-master"], flags["out"]
	if in == "" || oldMaster == "" || newMaster == "" || out == "" {
		fmt.Fprintln(l.out, "usage: glovebox layout upgrade --layout <file> --old-master <file> --new-master <file> --out <file>")
		return ExitUsage
	}
	custom, err := l.readLayout(in)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	om, err := l.readLayout(oldMaster)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	nm, err := l.readLayout(newMaster)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	upgraded, conflicts, err := layout.Upgrade(custom, om, nm)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	for _, c := range conflicts {
		fmt.Fprintf(l.out, "conflict: %s (%s)\n", c.Change.Kind, c.Reason)
	}
	if err := l.writeLayout(out, upgraded); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "wrote %s\n", out)
	return ExitOK
}

func (l *Layouter) writePatchOrStdout(patch *layout.Patch, out string) int {
	data, err := marshalPatch(patch)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	if out == "" {
		l.out.Write(data)
		fmt.Fprintln(l.out)
		return ExitOK
	}
	if err := afero.WriteFile(l.fs, out, data, 0o644); err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return ExitUserError
	}
	fmt.Fprintf(l.out, "wrote %s\n", out)
	return ExitOK
}

func splitKV(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func parsePolicy(s string) layout.ConflictPolicy {
	switch s {
	case "patch":
		return layout.PreferPatch
	case "fail":
		return layout.ConflictFail
	default:
		return layout.PreferSource
	}
}
