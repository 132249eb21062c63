package vcs

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneInvokesGitWithPinnedRevision(t *testing.T) {
	var gotName string
	var gotArgs []string
	c := &Cloner{execCommand: func(name string, arg ...string) *exec.Cmd {
		gotName, gotArgs = name, arg
		return exec.Command("true")
	}}
	require.NoError(t, c.Clone("https://example.com/zmk-config.git", "v1.2.3", "/ws"))
	assert.Equal(t, "git", gotName)
	assert.Equal(t, []string{"clone", "--depth", "1", "--branch", "v1.2.3", "https://example.com/zmk-config.git", "/ws"}, gotArgs)
}

func TestCloneFailurePropagatesAsIOError(t *testing.T) {
	c := &Cloner{execCommand: func(name string, arg ...string) *exec.Cmd {
		return exec.Command("false")
	}}
	err := c.Clone("https://example.com/zmk-config.git", "main", "/ws")
	require.Error(t, err)
}
