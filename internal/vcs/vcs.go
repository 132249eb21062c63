// Package vcs wraps the `git` binary for the one operation the Build
// Driver's config-repo mode needs: cloning a ZMK config repository at a
// pinned revision into a workspace directory. It follows the teacher's
// pkg/git.Client discipline of wrapping exec.Command behind an injectable
// field rather than calling it directly, so tests can assert on the
// invoked command without running a real git binary.
package vcs

import (
	"fmt"
	"os/exec"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// Cloner clones repoURL at revision into dst (component C6/C7's injected
// "clone" callback).
type Cloner struct {
	execCommand func(name string, arg ...string) *exec.Cmd
}

// NewCloner returns a Cloner backed by the real git binary.
func NewCloner() *Cloner {
	return &Cloner{execCommand: exec.Command}
}

// Clone performs a shallow, single-branch clone, matching what a build
// driver needs (full history is never read downstream).
func (c *Cloner) Clone(repoURL, revision, dst string) error {
	cmd := c.execCommand("git", "clone", "--depth", "1", "--branch", revision, repoURL, dst)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &gloverr.IOError{Op: "git_clone", Path: dst, Err: fmt.Errorf("%s: %w", string(out), err)}
	}
	return nil
}
