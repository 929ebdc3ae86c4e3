// Package cmdexec abstracts running external commands so callers can be
// tested without spawning real processes.
package cmdexec

import (
	"context"
	"os/exec"
)

// Executor runs an external command and returns its captured output.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// OS is the real Executor backed by os/exec.
type OS struct{}

func (OS) Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err = cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr = exitErr.Stderr
	}
	return stdout, stderr, err
}
