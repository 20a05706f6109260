// Package reconcile aligns a directory's checksum sidecar with its current
// eligible file set: new files are digested and appended, vanished files have
// their records removed, and untouched files are never rehashed.
package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"scrub/internal/checksumfile"
	"scrub/internal/logging"
)

// Digester computes a digest record for one file. *hashtool.Client satisfies
// this.
type Digester interface {
	Digest(ctx context.Context, dir, relPath string) (checksumfile.Record, error)
}

// Engine applies reconciliation to one sidecar at a time.
type Engine struct {
	tool Digester
	log  *slog.Logger
}

// New constructs an engine.
func New(tool Digester, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{tool: tool, log: logger}
}

// Result summarizes one reconciliation.
type Result struct {
	Created bool
	Added   int
	Removed int
}

// Changed reports whether the sidecar was rewritten.
func (r Result) Changed() bool {
	return r.Created || r.Added > 0 || r.Removed > 0
}

// Reconcile diffs the eligible files against the records in sidecarPath and
// applies the result. A recorded digest is trusted until explicitly
// re-verified, so paths present on both sides are never rehashed. Any digest
// or read error aborts the whole directory with nothing written; when records
// change, the metadata header is cleared because its failure count no longer
// describes the record set. A missing sidecar is created, even when the
// directory has no eligible files.
func (e *Engine) Reconcile(ctx context.Context, dir, sidecarPath string, eligible []string) (Result, error) {
	var result Result

	file := &checksumfile.File{}
	data, err := os.ReadFile(sidecarPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Created = true
	case err != nil:
		return Result{}, err
	default:
		if file, err = checksumfile.Parse(data); err != nil {
			return Result{}, err
		}
	}

	recorded := file.PathSet()
	current := mapset.NewThreadUnsafeSet(eligible...)

	toAdd := current.Difference(recorded).ToSlice()
	toRemove := recorded.Difference(current).ToSlice()
	sort.Strings(toAdd)
	sort.Strings(toRemove)

	for _, rel := range toAdd {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rec, err := e.tool.Digest(ctx, dir, rel)
		if err != nil {
			return Result{}, err
		}
		file.Append(rec)
		result.Added++
		e.log.Debug("recorded new file", logging.String("dir", dir), logging.String("file", rel))
	}
	for _, rel := range toRemove {
		rec, ok := file.DigestFor(rel)
		if ok && file.Remove(rel, rec.Digest) {
			result.Removed++
			e.log.Debug("dropped stale record", logging.String("dir", dir), logging.String("file", rel))
		}
	}

	if !result.Changed() {
		return result, nil
	}
	if result.Added > 0 || result.Removed > 0 {
		// Stored failure counts are meaningless once the record set changed.
		file.Meta = nil
	}
	if err := checksumfile.Write(sidecarPath, file); err != nil {
		return Result{}, err
	}
	return result, nil
}
