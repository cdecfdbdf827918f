// Package daemon owns the archivist process lifecycle on one host.
//
// It wraps the cycle loop with a flock-based lock in the state directory so a
// second daemon, or a manual `archivist cycle`, cannot archive the same flag
// directory concurrently. ReadStatus inspects the lock and pid file without
// taking ownership, which is what `archivist status` reports.
//
// Keep orchestration here; scanning, archiving and reaping live in their own
// packages.
package daemon
