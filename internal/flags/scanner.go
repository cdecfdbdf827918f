package flags

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"archivist/internal/logging"
)

// Scanner lists the flag directory and groups completion flags by job.
type Scanner struct {
	dir     string
	logger  *slog.Logger
	readDir func(string) ([]fs.DirEntry, error)
}

// ScannerOption customizes a Scanner.
type ScannerOption func(*Scanner)

// WithReadDir replaces the directory listing function.
func WithReadDir(fn func(string) ([]fs.DirEntry, error)) ScannerOption {
	return func(s *Scanner) {
		if fn != nil {
			s.readDir = fn
		}
	}
}

// NewScanner builds a scanner over dir.
func NewScanner(dir string, logger *slog.Logger, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		dir:     dir,
		logger:  logging.NewComponentLogger(logger, "scanner"),
		readDir: os.ReadDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the completion count per job identifier. A listing failure is
// returned as-is; no partial result is produced.
func (s *Scanner) Scan(ctx context.Context) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.readDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list flag directory %s: %w", s.dir, err)
	}

	counts := make(Counts)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		job, ok := JobID(entry.Name())
		if !ok {
			continue
		}
		if strings.Contains(job, ".") {
			s.logger.Debug("job identifier contains a dot; suffix split may be ambiguous",
				logging.String(logging.FieldJobID, job),
				logging.String("flag", entry.Name()),
				logging.String(logging.FieldEventType, "ambiguous_job_id"),
			)
		}
		counts[job]++
	}
	return counts, nil
}
