// Package verify drives per-record verification of scheduled checksum files
// through the external hashing tool and accounts for the results.
package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"scrub/internal/checksumfile"
	"scrub/internal/logging"
	"scrub/internal/schedule"
	"scrub/internal/services/hashtool"
)

// Checker verifies one record against the file on disk. *hashtool.Client
// satisfies this.
type Checker interface {
	Check(ctx context.Context, dir string, rec checksumfile.Record) (hashtool.Outcome, string)
}

// Option configures the runner.
type Option func(*Runner)

// WithOutput redirects user-facing failure lines (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithQuiet suppresses progress logging; only failing records and unusable
// files are surfaced.
func WithQuiet(quiet bool) Option {
	return func(r *Runner) {
		r.quiet = quiet
	}
}

// WithLockWait bounds how long the runner waits for a sidecar's advisory
// lock before skipping the file.
func WithLockWait(d time.Duration) Option {
	return func(r *Runner) {
		r.lockWait = d
	}
}

// WithClock overrides the metadata timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner processes scheduled sidecars strictly one at a time, in plan order.
type Runner struct {
	tool     Checker
	log      *slog.Logger
	out      io.Writer
	quiet    bool
	lockWait time.Duration
	now      func() time.Time
}

// New constructs a runner.
func New(tool Checker, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	runner := &Runner{
		tool:     tool,
		log:      logger,
		out:      os.Stdout,
		lockWait: 2 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// FileResult is the outcome of one sidecar.
type FileResult struct {
	Path       string
	Records    int
	Failures   int
	Missing    int
	ToolErrors int
	// Skipped is set when the sidecar could not be locked or reloaded, or the
	// run was interrupted before its metadata could be stamped; its records
	// do not count as checked.
	Skipped      bool
	MetaWriteErr error
}

// Summary aggregates a whole run.
type Summary struct {
	FilesPlanned    int
	FilesChecked    int
	TotalRecords    int
	CheckedRecords  int
	Failures        int
	ParseErrors     int
	SkippedFiles    int
	MetaWriteErrors int
	Results         []FileResult
}

// Errors is the total error count surfaced to the caller: integrity failures
// plus every per-file problem that kept records from being verified.
func (s Summary) Errors() int {
	return s.Failures + s.ParseErrors + s.SkippedFiles + s.MetaWriteErrors
}

// Run verifies every sidecar in the plan. One file's failures never abort
// later files; only context cancellation stops the run early, and then only
// between files.
func (r *Runner) Run(ctx context.Context, plan schedule.Plan) (Summary, error) {
	summary := Summary{
		FilesPlanned: len(plan.Items),
		TotalRecords: plan.TotalRecords,
		ParseErrors:  plan.ParseErrors,
	}

	for _, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result := r.verifyFile(ctx, item)
		summary.Results = append(summary.Results, result)
		if result.Skipped {
			summary.SkippedFiles++
			continue
		}
		summary.FilesChecked++
		summary.CheckedRecords += result.Records
		summary.Failures += result.Failures
		if result.MetaWriteErr != nil {
			summary.MetaWriteErrors++
		}
	}
	return summary, nil
}

func (r *Runner) verifyFile(ctx context.Context, item schedule.Item) FileResult {
	result := FileResult{Path: item.Path}

	lock := flock.New(item.Path)
	locked, err := r.acquire(ctx, lock)
	if err != nil || !locked {
		result.Skipped = true
		if ctx.Err() != nil {
			fmt.Fprintf(r.out, "%s: could not be verified (run interrupted)\n", item.Path)
			r.log.Warn("run interrupted before lock", logging.String("path", item.Path))
		} else {
			fmt.Fprintf(r.out, "%s: could not be verified (locked by another run)\n", item.Path)
			r.log.Warn("sidecar locked, skipping", logging.String("path", item.Path), logging.Error(err))
		}
		return result
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// Reload under the lock; the file may have changed since discovery.
	file, err := checksumfile.Load(item.Path)
	if err != nil {
		result.Skipped = true
		fmt.Fprintf(r.out, "%s: could not be verified (%v)\n", item.Path, err)
		r.log.Warn("sidecar unusable", logging.String("path", item.Path), logging.Error(err))
		return result
	}

	for _, rec := range file.Records() {
		if ctx.Err() != nil {
			break
		}
		result.Records++
		outcome, detail := r.tool.Check(ctx, item.Dir, rec)
		if !outcome.Failed() {
			continue
		}
		result.Failures++
		switch outcome {
		case hashtool.Missing:
			result.Missing++
		case hashtool.ToolError:
			result.ToolErrors++
		}
		fmt.Fprintf(r.out, "%s: FAILED (%s)\n", filepath.Join(item.Dir, rec.Path), outcomeDetail(outcome, detail))
	}

	if ctx.Err() != nil {
		// Interrupted mid-file. Leave the header alone: an absent or stale
		// stamp keeps the file at the front of the staleness queue, and a
		// partial failure count would misdescribe the record set.
		result.Skipped = true
		return result
	}

	if err := checksumfile.WriteMeta(item.Path, result.Failures, r.now().UTC()); err != nil {
		// Verification results stand; the failure is counted separately.
		result.MetaWriteErr = err
		r.log.Error("metadata write failed", logging.String("path", item.Path), logging.Error(err))
	}

	if !r.quiet {
		r.log.Info("checksum file verified",
			logging.String("path", item.Path),
			logging.Int("records", result.Records),
			logging.Int("failures", result.Failures),
		)
	}
	return result
}

func (r *Runner) acquire(ctx context.Context, lock *flock.Flock) (bool, error) {
	if r.lockWait <= 0 {
		return lock.TryLock()
	}
	lockCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil && lockCtx.Err() != nil && ctx.Err() == nil {
		// Timed out waiting, treat as held by another run.
		return false, nil
	}
	return locked, err
}

func outcomeDetail(outcome hashtool.Outcome, detail string) string {
	if detail == "" {
		return outcome.String()
	}
	return detail
}
