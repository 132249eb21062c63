// Package build implements the Build Driver (spec component C8): it runs
// one of several build strategies inside a container, resolves the
// container-side user mapping, collects artifacts out of the workspace,
// and retries network/git failures during workspace init with exponential
// backoff.
package build

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/caddyglow/glovebox/internal/glog"
	"github.com/caddyglow/glovebox/internal/profile"
	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// UserMapping is the container-side UID/GID/home the driver asks the
// container runtime to run as. Resolved by precedence: CLI flags > profile
// config > user config > auto-detect (spec §4.7).
type UserMapping struct {
	UID     int
	GID     int
	Home    string
	Enabled bool
}

// ResolveUserMapping applies the spec's precedence order, returning the
// first non-nil source, cli overriding profile overriding user overriding
// autoDetect.
func ResolveUserMapping(cli, profileCfg, user, autoDetect *UserMapping) UserMapping {
	for _, m := range []*UserMapping{cli, profileCfg, user, autoDetect} {
		if m != nil {
			return *m
		}
	}
	return UserMapping{}
}

// Options controls one compile invocation.
type Options struct {
	OutputDir         string
	WorkspaceDir      string
	PreserveOnFailure bool
	User              UserMapping
	NoCache           bool
}

// Result is BuildResult from the spec: per-matrix-entry artifacts found (or
// missing), plus the full container log.
type Result struct {
	Artifacts []string // output paths written
	Missing   []string // artifact names expected but not found
	Log       []string
}

// Runner executes one container invocation and returns its combined
// stdout+stderr. Production code wires ContainerRunner (teacher-style
// execCommand DI, see pkg/git.Client); tests supply a fake.
type Runner interface {
	Run(ctx context.Context, image string, workspaceDir string, user UserMapping, cmd []string) ([]string, int, error)
}

// Driver runs the spec's build strategies.
type Driver struct {
	fs     afero.Fs
	runner Runner
	log    *glog.Logger
}

// New constructs a Driver. runner is required; nil panics are avoided by
// requiring callers pass a concrete Runner (ContainerRunner in production).
func New(fs afero.Fs, runner Runner, log *glog.Logger) *Driver {
	if log == nil {
		log = glog.Noop()
	}
	return &Driver{fs: fs, runner: runner, log: log}
}

// Compile runs p.BuildMethod.Strategy inside a container against the
// already-materialized workspace at opts.WorkspaceDir (written by
// internal/workspace.Build), then collects artifacts.
func (d *Driver) Compile(ctx context.Context, p *profile.KeyboardProfile, opts Options) (*Result, error) {
	cmds, err := d.strategyCommands(p)
	if err != nil {
		return nil, err
	}

	var fullLog []string
	for i, cmd := range cmds {
		retryable := i == 0 // only workspace-init (the first command) is retried
		out, exitCode, err := d.runWithRetry(ctx, p.BuildMethod.Image, opts.WorkspaceDir, opts.User, cmd, retryable)
		fullLog = append(fullLog, out...)
		if err != nil || exitCode != 0 {
			d.persistLog(opts.OutputDir, fullLog)
			tail := lastN(fullLog, 50)
			return nil, &gloverr.BuildError{Strategy: p.BuildMethod.Strategy, ExitCode: exitCode, LogTail: tail, Err: err}
		}
	}
	d.persistLog(opts.OutputDir, fullLog)

	result := d.collectArtifacts(p, opts)
	result.Log = fullLog
	return result, nil
}

func (d *Driver) runWithRetry(ctx context.Context, image, workspaceDir string, user UserMapping, cmd []string, retryable bool) ([]string, int, error) {
	if !retryable {
		return d.runner.Run(ctx, image, workspaceDir, user, cmd)
	}
	backoffs := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	var lastOut []string
	var lastCode int
	var lastErr error
	for attempt := 0; attempt <= len(backoffs); attempt++ {
		out, code, err := d.runner.Run(ctx, image, workspaceDir, user, cmd)
		lastOut, lastCode, lastErr = out, code, err
		if err == nil && code == 0 {
			return out, code, nil
		}
		if attempt == len(backoffs) {
			break
		}
		d.log.Warn("workspace init failed, retrying", "attempt", attempt+1, "backoff", backoffs[attempt])
		select {
		case <-ctx.Done():
			return lastOut, lastCode, ctx.Err()
		case <-time.After(backoffs[attempt]):
		}
	}
	return lastOut, lastCode, lastErr
}

// strategyCommands returns the container-invoked command sequence for the
// profile's build strategy (spec §4.7). The first returned command is
// treated as the retryable workspace-init step.
func (d *Driver) strategyCommands(p *profile.KeyboardProfile) ([][]string, error) {
	switch p.BuildMethod.Strategy {
	case "zmk_config":
		cmds := [][]string{{"west", "init", "-l", "config"}, {"west", "update"}}
		for _, m := range p.BuildMethod.BuildMatrix {
			cmds = append(cmds, westBuildCmd(m))
		}
		return cmds, nil
	case "west":
		cmds := [][]string{{"west", "update"}}
		for _, m := range p.BuildMethod.BuildMatrix {
			cmds = append(cmds, westBuildCmd(m))
		}
		return cmds, nil
	case "cmake":
		var cmds [][]string
		for _, m := range p.BuildMethod.BuildMatrix {
			cmds = append(cmds, cmakeCmd(m))
		}
		return cmds, nil
	case "make", "ninja":
		var cmds [][]string
		for range p.BuildMethod.BuildMatrix {
			cmds = append(cmds, []string{p.BuildMethod.Strategy})
		}
		return cmds, nil
	case "custom":
		return nil, &gloverr.ConfigError{Op: "strategy_commands", Reason: "custom strategy requires shell commands from the profile, none supplied to the driver"}
	default:
		return nil, &gloverr.ConfigError{Op: "strategy_commands", Reason: fmt.Sprintf("unknown build strategy %q", p.BuildMethod.Strategy)}
	}
}

func westBuildCmd(m profile.BuildMatrixEntry) []string {
	dir := buildDirFor(m)
	cmd := []string{"west", "build", "-d", dir, "-b", m.Board}
	if m.Shield != "" {
		cmd = append(cmd, "--", "-DSHIELD="+m.Shield)
	}
	if m.Snippet != "" {
		cmd = append(cmd, "-S", m.Snippet)
	}
	cmd = append(cmd, m.CMakeArgs...)
	return cmd
}

func cmakeCmd(m profile.BuildMatrixEntry) []string {
	cmd := []string{"cmake", "-B", buildDirFor(m), "-DBOARD=" + m.Board}
	if m.Shield != "" {
		cmd = append(cmd, "-DSHIELD="+m.Shield)
	}
	cmd = append(cmd, m.CMakeArgs...)
	return cmd
}

// buildDirFor returns the spec's split-aware build directory name:
// build_<shield> when a shield is present, else build (spec §4.7).
func buildDirFor(m profile.BuildMatrixEntry) string {
	if m.Shield != "" {
		return "build_" + m.Shield
	}
	return "build"
}

func (d *Driver) collectArtifacts(p *profile.KeyboardProfile, opts Options) *Result {
	res := &Result{}
	for _, m := range p.BuildMethod.BuildMatrix {
		artifact := m.ArtifactName
		if artifact == "" {
			artifact = defaultArtifactName(m.Board, m.Shield)
		}
		src := filepath.Join(opts.WorkspaceDir, buildDirFor(m), "zephyr", "zmk.uf2")
		exists, _ := afero.Exists(d.fs, src)
		if !exists {
			d.log.Warn("expected artifact missing", "artifact", artifact, "path", src)
			res.Missing = append(res.Missing, artifact)
			continue
		}
		dst := filepath.Join(opts.OutputDir, artifact+".uf2")
		data, err := afero.ReadFile(d.fs, src)
		if err != nil {
			res.Missing = append(res.Missing, artifact)
			continue
		}
		if err := afero.WriteFile(d.fs, dst, data, 0o644); err != nil {
			res.Missing = append(res.Missing, artifact)
			continue
		}
		res.Artifacts = append(res.Artifacts, dst)
	}
	return res
}

func defaultArtifactName(board, shield string) string {
	if shield == "" {
		return fmt.Sprintf("%s-zmk", board)
	}
	return fmt.Sprintf("%s-%s-zmk", shield, board)
}

func (d *Driver) persistLog(outputDir string, lines []string) {
	path := filepath.Join(outputDir, "build.log")
	_ = afero.WriteFile(d.fs, path, []byte(joinLines(lines)), 0o644)
}

func joinLines(lines []string) string {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteString("\n")
	}
	return buf.String()
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// ContainerRunner is the production Runner, wrapping os/exec the same way
// pkg/git.Client wraps the git binary: an injectable execCommand field so
// tests can substitute a fake without touching a real container runtime.
type ContainerRunner struct {
	execCommand func(name string, arg ...string) *exec.Cmd
	Engine      string // "docker" or "podman"
}

// NewContainerRunner returns a ContainerRunner invoking the real docker/podman
// binary.
func NewContainerRunner(engine string) *ContainerRunner {
	if engine == "" {
		engine = "docker"
	}
	return &ContainerRunner{execCommand: exec.Command, Engine: engine}
}

// Run invokes `<engine> run --rm -v <workspaceDir>:/workspace [-u uid:gid] <image> <cmd...>`,
// the exactly-one-mounted-volume contract from spec §4.7.
func (r *ContainerRunner) Run(ctx context.Context, image, workspaceDir string, user UserMapping, cmd []string) ([]string, int, error) {
	args := []string{"run", "--rm", "-v", workspaceDir + ":/workspace", "-w", "/workspace"}
	if user.Enabled {
		args = append(args, "-u", strconv.Itoa(user.UID)+":"+strconv.Itoa(user.GID))
		if user.Home != "" {
			args = append(args, "-e", "HOME="+user.Home)
		}
	}
	args = append(args, image)
	args = append(args, cmd...)

	c := r.execCommand(r.Engine, args...)
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out
	runErr := c.Run()

	lines := splitLines(out.String())
	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
		runErr = nil
	} else if runErr != nil {
		return lines, -1, &gloverr.IOError{Op: "container_run", Path: r.Engine, Err: runErr}
	}
	return lines, exitCode, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
