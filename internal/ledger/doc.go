// Package ledger records the outcome of every archived or failed job in a
// SQLite database under the state directory.
//
// The ledger is an audit trail for operators: `archivist history` reads it,
// and nothing in the archival path depends on it. Open creates the schema on
// first use and refuses databases written by a different schema version. All
// writes retry briefly on SQLITE_BUSY so a concurrent `history` reader never
// fails a cycle's bookkeeping.
//
// When adding columns, update schema.sql and bump schemaVersion.
package ledger
