// Package tool runs the external front end that prints the fact stream of a
// C translation unit.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxStderr bounds how much of the tool's stderr is kept in errors.
const maxStderr = 4 << 10

// waitDelay bounds how long output pipes are drained after the tool is killed.
const waitDelay = 2 * time.Second

// ErrTimeout is returned when the tool does not finish within Runner.Timeout.
var ErrTimeout = errors.New("tool timed out")

// RunError reports a tool invocation that failed.
type RunError struct {
	Path   string
	Source string
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("running %s on %s: %v", e.Path, e.Source, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Runner invokes `Path Args... source` and collects stdout lines.
type Runner struct {
	Path    string
	Args    []string
	Timeout time.Duration
	// Dir is the working directory of the tool; empty uses the current one.
	Dir string
}

// Resolve returns the absolute path of the tool binary.
func (r *Runner) Resolve() (string, error) {
	return exec.LookPath(r.Path)
}

// Run executes the tool on source and returns its non-empty stdout lines.
// A timeout yields an error wrapping ErrTimeout.
func (r *Runner) Run(ctx context.Context, source string) ([]string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.Args...), source)
	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
		}
		return nil, &RunError{Path: r.Path, Source: source, Stderr: trimStderr(stderr.String()), Err: err}
	}

	return Lines(stdout.String()), nil
}

// Lines splits tool output into lines, dropping empty ones and trailing CRs.
func Lines(out string) []string {
	raw := strings.Split(out, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	return s
}
