package flags

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"archivist/internal/logging"
)

// ReapResult lists the markers removed for one job and any removal failures.
type ReapResult struct {
	Removed []string
	Errors  []RemoveError
}

// RemoveError pairs a marker path with its removal error.
type RemoveError struct {
	Path  string
	Error error
}

// OK reports whether every marker was removed or already absent.
func (r ReapResult) OK() bool {
	return len(r.Errors) == 0
}

// Reaper clears completion and cleanup markers for archived jobs.
type Reaper struct {
	dir    string
	logger *slog.Logger
	remove func(string) error
}

// ReaperOption customizes a Reaper.
type ReaperOption func(*Reaper)

// WithRemove replaces the file removal function.
func WithRemove(fn func(string) error) ReaperOption {
	return func(r *Reaper) {
		if fn != nil {
			r.remove = fn
		}
	}
}

// NewReaper builds a reaper over the flag directory.
func NewReaper(dir string, logger *slog.Logger, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "reaper"),
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reap removes <job>.flag.done and <job>.cleanup. Missing markers are skipped;
// failures are logged and reported but never abort the remaining removals.
func (r *Reaper) Reap(_ context.Context, job string) ReapResult {
	result := ReapResult{}
	for _, name := range MarkerNames(job) {
		path := filepath.Join(r.dir, name)
		if err := r.remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			result.Errors = append(result.Errors, RemoveError{Path: path, Error: err})
			logging.WarnWithContext(r.logger, "flag removal failed; marker remains", "flag_remove_failed",
				logging.String(logging.FieldJobID, job),
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check flag_dir permissions"),
				logging.String(logging.FieldImpact, "job will be picked up again next cycle and append to today's archive"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
	}
	if len(result.Removed) > 0 {
		r.logger.Info("flags cleared",
			logging.String(logging.FieldJobID, job),
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "flags_cleared"),
		)
	}
	return result
}
