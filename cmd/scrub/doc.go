// Command scrub maintains per-directory checksum sidecars.
//
// scrub create walks a tree and writes a sidecar of digest records into each
// directory. scrub verify re-checks recorded digests with the configured
// hashing tool, oldest sidecars first, stamping each verified file with a
// metadata header. status and history report on sidecar freshness and past
// runs.
//
// Exit status 0 means a clean run, 1 a configuration or startup failure, and
// 2 a completed run that found integrity errors.
package main
