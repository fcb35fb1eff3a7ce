package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Environment passed to child processes so Python based tools flush every line
const (
	UnbufferedEnv = "PYTHONUNBUFFERED=1"
)

// SignalExitBase is added to the signal number of a killed process, as shells do
const SignalExitBase = 128

// Process is a started subprocess whose standard output and standard error
// share a single ordered stream.
type Process interface {
	// Output returns the merged output stream. It reaches EOF once every
	// writer, including grandchildren, has closed it.
	Output() io.Reader

	// Wait blocks until the process exits and returns its exit status.
	// A non-zero status is not an error; err is set only when the status
	// could not be obtained. A process killed by a signal reports
	// SignalExitBase plus the signal number.
	Wait() (exitCode int, err error)
}

// Launcher starts subprocesses
type Launcher interface {
	Launch(ctx context.Context, name string, args ...string) (Process, error)
}

// ExecLauncher starts real processes with os/exec. Both output streams are
// attached to the write end of one OS pipe, which keeps the interleaving the
// child produced.
type ExecLauncher struct{}

// NewExecLauncher returns a Launcher backed by os/exec
func NewExecLauncher() Launcher {
	return ExecLauncher{}
}

// Launch starts name with args. The process is killed when ctx is done.
func (ExecLauncher) Launch(ctx context.Context, name string, args ...string) (Process, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.Env = append(os.Environ(), UnbufferedEnv)

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	// The child holds its own copy; closing ours lets the reader see EOF.
	w.Close()

	return &execProcess{cmd: cmd, out: r}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	out *os.File
}

func (p *execProcess) Output() io.Reader {
	return p.out
}

func (p *execProcess) Wait() (int, error) {
	defer p.out.Close()

	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitStatus(exitErr), nil
	}
	return -1, err
}

func exitStatus(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return SignalExitBase + int(status.Signal())
	}
	return exitErr.ExitCode()
}
