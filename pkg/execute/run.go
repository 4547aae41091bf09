// Package execute runs workflow commands with captured output, working
// directory bounds, and per-command timeouts. Commands are opaque to the
// runner: only the exit status and output streams are observed.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
)

const (
	DefaultMaxOutput = 1 << 20 // bytes, per stream
)

// Runner executes commands inside a workspace boundary.
type Runner struct {
	Workspace string
	Timeout   time.Duration // zero means no timeout
	MaxOutput int           // bytes per stream, DefaultMaxOutput when zero
}

// SplitCommand parses a workflow `run:` string into an argv using shell
// quoting rules, without involving a shell.
func SplitCommand(command string) ([]string, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command %q is empty", command)
	}
	return argv, nil
}

// Run executes a command with the given argv. The first element is the
// binary name (resolved via PATH), and the rest are arguments. dir is
// resolved relative to the workspace root and must remain within it.
// env is the complete environment for the child process.
//
// A non-zero exit is not an error: it is reported through Result.ExitCode.
// An error return means the command could not be launched at all.
func (r *Runner) Run(ctx context.Context, argv []string, dir string, env []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	wd, err := r.resolveDir(dir)
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = wd
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Binary not found or other exec error.
			return nil, fmt.Errorf("executing %s: %w", argv[0], runErr)
		}
	}

	return &Result{
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.Len() >= maxOutput || stderr.Len() >= maxOutput,
		Duration:  elapsed,
	}, nil
}

// resolveDir resolves dir relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(dir string) (string, error) {
	if dir == "" {
		return r.Workspace, nil
	}

	var wd string
	if filepath.IsAbs(dir) {
		wd = filepath.Clean(dir)
	} else {
		wd = filepath.Clean(filepath.Join(r.Workspace, dir))
	}

	rel, err := filepath.Rel(r.Workspace, wd)
	if err != nil {
		return "", fmt.Errorf("resolving dir: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dir %q is outside workspace %q", dir, r.Workspace)
	}
	return wd, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
