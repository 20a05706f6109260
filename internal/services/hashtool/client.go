package hashtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scrub/internal/checksumfile"
	"scrub/internal/services"
)

// Executor abstracts command execution for testability. Run reports the tool's
// exit code when the tool ran at all; err is reserved for invocations that
// could not run (binary missing, timeout, kill).
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string, stdin string) (stdout string, exitCode int, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout bounds each tool invocation. Zero means no limit; a hung tool
// then blocks the run, matching the tool's own behavior.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client wraps a sha256sum-style hashing tool: one mode that prints a digest
// line for a file, and a strict check mode that re-verifies a supplied line.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a hashing tool client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("hashing tool binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured tool command.
func (c *Client) Binary() string {
	return c.binary
}

// Digest computes the digest record for relPath. The tool runs with the
// sidecar's directory as its working directory so recorded paths stay
// relative; no process-global state is touched.
func (c *Client) Digest(ctx context.Context, dir, relPath string) (checksumfile.Record, error) {
	runCtx, cancel := c.bound(ctx)
	defer cancel()

	stdout, code, err := c.exec.Run(runCtx, dir, c.binary, []string{relPath}, "")
	if err != nil {
		return checksumfile.Record{}, services.Wrap(services.ErrExternalTool, "", "digest", relPath, err)
	}
	if code != 0 {
		return checksumfile.Record{}, services.Wrap(services.ErrIO, "", "digest", relPath, fmt.Errorf("%s exited with status %d", c.binary, code))
	}

	line, _, _ := strings.Cut(stdout, "\n")
	rec, err := checksumfile.ParseRecordLine(strings.TrimRight(line, "\r"))
	if err != nil {
		return checksumfile.Record{}, services.Wrap(services.ErrExternalTool, "", "digest", relPath, fmt.Errorf("unexpected tool output %q: %w", line, err))
	}
	// Record the path as requested; some tools re-quote or escape it.
	rec.Path = relPath
	return rec, nil
}

// Outcome classifies one record verification.
type Outcome int

const (
	// Pass means the tool confirmed the recorded digest.
	Pass Outcome = iota
	// Mismatch means the file exists but its digest changed.
	Mismatch
	// Missing means the recorded file no longer exists. Counted as a failure
	// like Mismatch, but worth its own diagnostic.
	Missing
	// ToolError means the hashing tool itself could not run.
	ToolError
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Mismatch:
		return "mismatch"
	case Missing:
		return "missing"
	case ToolError:
		return "tool error"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome counts toward a file's failure tally.
func (o Outcome) Failed() bool {
	return o != Pass
}

// Check verifies a single record via the tool's strict check mode, feeding the
// record line on stdin. The returned detail is empty for Pass.
func (c *Client) Check(ctx context.Context, dir string, rec checksumfile.Record) (Outcome, string) {
	if _, err := os.Stat(filepath.Join(dir, rec.Path)); errors.Is(err, fs.ErrNotExist) {
		return Missing, "file is missing"
	}

	runCtx, cancel := c.bound(ctx)
	defer cancel()

	stdout, code, err := c.exec.Run(runCtx, dir, c.binary, []string{"-c", "--strict", "-"}, rec.Line()+"\n")
	switch {
	case err != nil:
		return ToolError, err.Error()
	case code == 0:
		return Pass, ""
	default:
		detail, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n")
		if detail == "" {
			detail = "digest mismatch"
		}
		return Mismatch, detail
	}
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, dir, binary string, args []string, stdin string) (string, int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 && ctx.Err() == nil {
		return stdout.String(), exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return "", -1, fmt.Errorf("%s: %w", binary, ctx.Err())
	}
	if detail := strings.TrimSpace(stderr.String()); detail != "" {
		return "", -1, fmt.Errorf("%w: %s", err, detail)
	}
	return "", -1, err
}
