// Package vcs runs the git and p4 command-line clients and explains their
// failures in user-facing terms.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// Runner executes an external command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ToolInvocationError is returned when an external command cannot be
// started or exits unsuccessfully.
type ToolInvocationError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	msg := fmt.Sprintf("command failed: %s: %v", CommandLine(e.Tool, e.Args...), e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// CommandLine renders a command for logs and messages.
func CommandLine(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}

// ExecRunner runs commands with os/exec. Arguments are passed directly to
// the process; no shell is involved.
type ExecRunner struct {
	// Timeout bounds each command. Zero means no timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	logger.Debug("vcs: command finished",
		"cmd", CommandLine(name, args...),
		"dir", dir,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return stdout.String(), &ToolInvocationError{
			Tool:   name,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}
