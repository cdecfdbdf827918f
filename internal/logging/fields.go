package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (scan_complete, job_archived, ...).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldJobID is the job identifier derived from a completion flag.
	FieldJobID = "job_id"
	// FieldCycleID identifies one scan/archive/reap pass.
	FieldCycleID = "cycle_id"
	// FieldDay is the YYYYMMDD archive day of a cycle.
	FieldDay = "day"
	// FieldState is the poll loop state name.
	FieldState = "state"
	// FieldPath is a filesystem path subject.
	FieldPath = "path"
)
