// Package checksumfile reads and writes the per-directory sidecar files that
// record content digests.
//
// A sidecar is plain text in the hashing tool's own format: one record per
// line ("<digest>  <relative path>", with a '*' marker for binary mode), '#'
// comment lines preserved verbatim, and an optional metadata header on line 1
// recording when the file was last verified and with how many failures.
//
// Parsing is strict: a malformed record line, a duplicate path, or digests of
// mixed widths (which would mean mixed algorithms in one file) make the whole
// file unusable for the operation. Metadata reads are deliberately lenient;
// a missing or unreadable header always means "never checked".
package checksumfile
