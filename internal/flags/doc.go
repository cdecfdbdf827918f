// Package flags reads and clears the completion markers left by the ingest
// process.
//
// A completion flag is named <job>.flag.done; an optional <job>.cleanup
// marker travels with it. Scanner snapshots the flag directory once per cycle
// and counts flags per job identifier. Reaper removes a job's markers after
// its logs are archived. Both treat files that vanish between listing and
// removal as already handled.
package flags
