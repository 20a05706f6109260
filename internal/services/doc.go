// Package services defines the error taxonomy shared by every scrub
// operation and the Wrap helper that tags errors with it.
//
// The sentinels separate the three outcomes automation cares about: startup
// problems (ErrConfiguration) that abort before any work, per-file and
// per-record problems that are counted but never stop the batch, and the
// ErrIntegrity marker a finished run returns when it found anything wrong.
package services
