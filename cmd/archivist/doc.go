// Package main hosts the archivist CLI entrypoint and command graph.
//
// The Cobra command tree runs the archival daemon in the foreground, runs a
// single cycle on demand, reports lock/pid status, renders the archive
// ledger, and scaffolds configuration. Configuration is resolved once per
// invocation; commands that must work without a valid config opt out with
// the skipConfigLoad annotation.
package main
