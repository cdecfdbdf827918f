// Package archive consolidates a job's raw logs into its daily gzip archive.
//
// Writer drives the per-job sequence: snapshot the raw logs, compress them
// into a staging file next to the logs, delete exactly the snapshotted
// files, then move the staging file into <log_dir>/archive/<YYYYMMDD>/.
// Raw logs are never deleted before staging was written, and the archive is
// never overwritten: a second run on the same day appends another gzip member.
//
// All filesystem effects go through the Ops interface. OSOps is the real
// implementation; tests wrap it to inject failures.
package archive
