// Package config loads, normalizes, and validates archivist configuration.
//
// Values come from an optional TOML file, then environment overrides for the
// two ingest directories. The resulting Config is treated as immutable once
// Load returns: the daemon receives a pointer at construction and never
// mutates it.
//
// Validation fails fast on missing or non-directory log and flag paths so a
// misconfigured daemon never enters its poll loop.
package config
