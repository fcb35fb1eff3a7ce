// Package platformtest provides an in-memory platform.Launcher for tests
package platformtest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/Gherucu/gloload/internal/platform"
)

// Call records one Launch invocation
type Call struct {
	Name string
	Args []string
}

// Launcher is a scripted platform.Launcher. Every launch replays Lines and
// exits with ExitCode. With BlockUntilDone set the output stays open until
// the launch context is cancelled.
type Launcher struct {
	Lines          []string
	ExitCode       int
	WaitErr        error
	LaunchErr      error
	BlockUntilDone bool

	mu    sync.Mutex
	calls []Call
}

// Launch implements platform.Launcher
func (l *Launcher) Launch(ctx context.Context, name string, args ...string) (platform.Process, error) {
	l.mu.Lock()
	l.calls = append(l.calls, Call{Name: name, Args: append([]string(nil), args...)})
	l.mu.Unlock()

	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}

	r, w := io.Pipe()
	go func() {
		for _, line := range l.Lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return
			}
		}
		if l.BlockUntilDone {
			<-ctx.Done()
		}
		w.Close()
	}()

	return &process{out: r, ctx: ctx, launcher: l}, nil
}

// Calls returns the recorded invocations
func (l *Launcher) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// CommandLines returns each recorded invocation joined with spaces
func (l *Launcher) CommandLines() []string {
	var lines []string
	for _, c := range l.Calls() {
		lines = append(lines, strings.TrimSpace(c.Name+" "+strings.Join(c.Args, " ")))
	}
	return lines
}

type process struct {
	out      *io.PipeReader
	ctx      context.Context
	launcher *Launcher
}

func (p *process) Output() io.Reader {
	return p.out
}

func (p *process) Wait() (int, error) {
	if p.launcher.BlockUntilDone {
		<-p.ctx.Done()
		return -1, nil
	}
	return p.launcher.ExitCode, p.launcher.WaitErr
}
