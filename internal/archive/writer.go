package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"archivist/internal/config"
	"archivist/internal/logging"
)

const (
	// DayLayout formats the dated archive directory name.
	DayLayout = "20060102"
	// StagingSuffix names both the staging file and the archived file.
	StagingSuffix = ".log.gz"
	// RawLogSuffix ends every raw log name.
	RawLogSuffix = "log"
)

// Stage names the step a job reached.
type Stage string

const (
	StageSnapshot Stage = "snapshot"
	StageCompress Stage = "compress"
	StageCleanup  Stage = "cleanup"
	StageMove     Stage = "move"
	StageDone     Stage = "done"
)

// Result captures the outcome of archiving one job.
type Result struct {
	JobID       string
	Day         string
	ArchivePath string
	StagingPath string
	Sources     []string
	// Recovered is set when staged data from an earlier run was carried forward.
	Recovered      bool
	InputBytes     int64
	OutputBytes    int64
	RemoveFailures int
	Stage          Stage
	Err            error
	Duration       time.Duration
}

// OK reports whether the archive was placed.
func (r Result) OK() bool {
	return r.Err == nil && r.Stage == StageDone
}

// Writer archives jobs from the log directory into dated directories.
type Writer struct {
	logDir      string
	archiveRoot string
	timeout     time.Duration
	ops         Ops
	logger      *slog.Logger
}

// NewWriter constructs a Writer for cfg. A nil ops uses the local filesystem.
func NewWriter(cfg *config.Config, ops Ops, logger *slog.Logger) *Writer {
	if ops == nil {
		ops = NewOSOps(cfg.Archive.CompressionLevel)
	}
	return &Writer{
		logDir:      cfg.Paths.LogDir,
		archiveRoot: cfg.ArchiveRoot(),
		timeout:     cfg.OperationTimeout(),
		ops:         ops,
		logger:      logging.NewComponentLogger(logger, "archive"),
	}
}

// DayDir returns the archive directory for day (YYYYMMDD).
func (w *Writer) DayDir(day string) string {
	return filepath.Join(w.archiveRoot, day)
}

// ArchivePath returns the archived file for job on day.
func (w *Writer) ArchivePath(job, day string) string {
	return filepath.Join(w.DayDir(day), job+StagingSuffix)
}

// StagingPath returns the staging file for job in the log directory.
func (w *Writer) StagingPath(job string) string {
	return filepath.Join(w.logDir, job+StagingSuffix)
}

// PrepareDay creates the dated archive directory, including parents.
func (w *Writer) PrepareDay(ctx context.Context, day string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := w.DayDir(day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory %s: %w", dir, err)
	}
	return dir, nil
}

// Archive runs snapshot, compress, cleanup and move for one job. The day
// directory must already exist. Failures are reported in Result.Err and leave
// the job's flags for a later cycle.
func (w *Writer) Archive(ctx context.Context, job, day string) Result {
	start := time.Now()
	result := Result{
		JobID:       job,
		Day:         day,
		ArchivePath: w.ArchivePath(job, day),
		StagingPath: w.StagingPath(job),
		Stage:       StageSnapshot,
	}
	logger := w.logger.With(logging.String(logging.FieldJobID, job), logging.String(logging.FieldDay, day))
	finish := func() Result {
		result.Duration = time.Since(start)
		return result
	}

	var sources []string
	err := w.bounded(ctx, func(opCtx context.Context) error {
		var globErr error
		sources, globErr = w.ops.Glob(opCtx, w.logDir, job, RawLogSuffix)
		return globErr
	})
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrSnapshot, err)
		logging.ErrorWithContext(logger, "raw log snapshot failed", "archive_snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
		)
		return finish()
	}
	result.Sources = sources

	var staged bool
	err = w.bounded(ctx, func(opCtx context.Context) error {
		var statErr error
		staged, statErr = w.ops.Exists(opCtx, result.StagingPath)
		return statErr
	})
	if err != nil {
		result.Err = fmt.Errorf("%w: stat staging file: %w", ErrSnapshot, err)
		logging.ErrorWithContext(logger, "staging file check failed", "archive_snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, result.StagingPath),
		)
		return finish()
	}
	result.Recovered = staged

	if len(sources) == 0 && !staged {
		result.Err = fmt.Errorf("%w for job %s in %s", ErrNoSources, job, w.logDir)
		logging.WarnWithContext(logger, "no raw logs for completed job", "archive_no_sources",
			logging.String(logging.FieldErrorHint, "confirm ingest wrote <job>*log files into log_dir"),
			logging.String(logging.FieldImpact, "flags kept; job retried next cycle"),
		)
		return finish()
	}
	if staged {
		logging.WarnWithContext(logger, "staging file left by an earlier run; carrying it forward", "archive_staging_recovered",
			logging.String(logging.FieldPath, result.StagingPath),
			logging.String(logging.FieldErrorHint, "previous run stopped between compress and move"),
			logging.String(logging.FieldImpact, "earlier compressed data is included in today's archive"),
		)
	}

	if len(sources) > 0 {
		result.Stage = StageCompress
		var stats CompressStats
		err := w.bounded(ctx, func(opCtx context.Context) error {
			var compressErr error
			stats, compressErr = w.ops.ConcatCompress(opCtx, result.StagingPath, sources)
			return compressErr
		})
		if err != nil {
			result.Err = fmt.Errorf("%w: %w", ErrCompress, err)
			logging.ErrorWithContext(logger, "compression failed; raw logs kept", "archive_compress_failed",
				logging.Error(err),
				logging.Int("sources", len(sources)),
				logging.String(logging.FieldErrorHint, "check free space and permissions in log_dir"),
			)
			return finish()
		}
		result.InputBytes = stats.InputBytes
		result.OutputBytes = stats.OutputBytes
		if len(stats.Missing) > 0 {
			logger.Info("raw logs vanished before compression; skipped",
				logging.String(logging.FieldEventType, "raw_log_vanished"),
				logging.Strings("paths", stats.Missing),
			)
		}

		result.Stage = StageCleanup
		for _, src := range sources {
			err := w.bounded(ctx, func(opCtx context.Context) error {
				return w.ops.Remove(opCtx, src)
			})
			if err != nil {
				result.RemoveFailures++
				logging.WarnWithContext(logger, "raw log removal failed", "raw_log_remove_failed",
					logging.String(logging.FieldPath, src),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "remove the file manually once archived"),
					logging.String(logging.FieldImpact, "file may be archived again with this job's next flag"),
				)
			}
		}
	}

	result.Stage = StageMove
	err = w.bounded(ctx, func(opCtx context.Context) error {
		return w.ops.Move(opCtx, result.StagingPath, result.ArchivePath)
	})
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrMove, err)
		logging.ErrorWithContext(logger, "archive move failed; staging file kept", "archive_move_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, result.StagingPath),
			logging.String(logging.FieldErrorHint, "check archive directory permissions and free space"),
			logging.String(logging.FieldImpact, "flags kept; staged data is carried into the next attempt"),
		)
		return finish()
	}

	result.Stage = StageDone
	logger.Info("job archived",
		logging.String(logging.FieldEventType, "job_archived"),
		logging.String("archive_path", result.ArchivePath),
		logging.Int("sources", len(sources)),
		logging.Int64("input_bytes", result.InputBytes),
		logging.Int64("output_bytes", result.OutputBytes),
		logging.Bool("recovered", result.Recovered),
	)
	return finish()
}

// bounded runs fn under the configured per-operation timeout.
func (w *Writer) bounded(ctx context.Context, fn func(context.Context) error) error {
	if w.timeout <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return fn(opCtx)
}
