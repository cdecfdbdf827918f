package cycle

import (
	"time"

	"archivist/internal/archive"
	"archivist/internal/flags"
)

// JobReport is the outcome of one job within a cycle.
type JobReport struct {
	JobID  string
	Flags  int
	Result archive.Result
	Reap   flags.ReapResult
}

// OK reports whether the job was archived.
func (j JobReport) OK() bool {
	return j.Result.OK()
}

// Report summarizes one cycle.
type Report struct {
	CycleID  string
	Day      string
	Started  time.Time
	Jobs     []JobReport
	Archived int
	Failed   int
	// Deferred counts jobs left for a later cycle because shutdown was requested.
	Deferred int
	Err      error
	Duration time.Duration
}

// Interrupted reports whether shutdown cut the cycle short.
func (r Report) Interrupted() bool {
	return r.Deferred > 0
}
