package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks startup failures: bad flags, unusable
	// directories, or a hashing tool that cannot be found. These abort the
	// run before any work happens.
	ErrConfiguration = errors.New("configuration error")

	// ErrParse marks a checksum file whose contents could not be understood.
	// The file is excluded from the operation; nothing is partially applied.
	ErrParse = errors.New("parse error")

	// ErrIO marks a localized read/write failure that does not stop the batch.
	ErrIO = errors.New("io error")

	// ErrExternalTool marks a hashing tool invocation that failed to run.
	ErrExternalTool = errors.New("external tool error")

	// ErrIntegrity marks a completed run that found digest mismatches or
	// per-file errors. Callers map it to the dedicated exit status so
	// automation can tell corruption from a broken run.
	ErrIntegrity = errors.New("integrity failures found")

	// ErrMetadataWrite marks a failed metadata header rewrite. Verification
	// results for the file remain valid; the failure is counted separately.
	ErrMetadataWrite = errors.New("metadata write error")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later exit-status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, scope, operation, message string, err error) error {
	detail := buildDetail(scope, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
