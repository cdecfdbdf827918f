package cycle

import (
	"context"
	"fmt"
	"log/slog"

	"archivist/internal/archive"
	"archivist/internal/ledger"
	"archivist/internal/logging"
)

// RunCycle performs one scan, archive and reap pass. Scan and day-directory
// failures end the cycle and are returned in Report.Err; job failures are
// reported per job.
func (l *Loop) RunCycle(ctx context.Context) (report Report) {
	start := l.now()
	report = Report{
		CycleID: l.newID(),
		Day:     start.Format(archive.DayLayout),
		Started: start,
	}
	logger := l.logger.With(
		logging.String(logging.FieldCycleID, report.CycleID),
		logging.String(logging.FieldDay, report.Day),
	)
	defer func() {
		report.Duration = l.now().Sub(start)
		l.setState(StateIdle)
		l.mu.Lock()
		l.last = report
		l.mu.Unlock()
	}()

	l.setState(StateScanning)
	counts, err := l.scanner.Scan(ctx)
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrScan, err)
		if ctx.Err() == nil {
			logging.ErrorWithContext(logger, "flag scan failed; cycle skipped", "cycle_scan_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check flag_dir exists and is readable"),
			)
		}
		return report
	}
	if len(counts) == 0 {
		logger.Debug("no completed jobs", logging.String(logging.FieldEventType, "cycle_idle"))
		return report
	}
	jobs := counts.Jobs()
	logger.Info("completed jobs found",
		logging.String(logging.FieldEventType, "cycle_scan_complete"),
		logging.Int("jobs", len(jobs)),
		logging.Int("flags", counts.Total()),
		logging.Strings("job_ids", jobs),
	)

	l.setState(StateArchiving)
	if _, err := l.writer.PrepareDay(context.WithoutCancel(ctx), report.Day); err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrPrepareDay, err)
		logging.ErrorWithContext(logger, "archive directory unavailable; cycle skipped", "cycle_prepare_day_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions and free space"),
		)
		return report
	}

	for i, job := range jobs {
		if ctx.Err() != nil {
			report.Deferred = len(jobs) - i
			logger.Info("shutdown requested; remaining jobs deferred",
				logging.String(logging.FieldEventType, "cycle_interrupted"),
				logging.Int("deferred", report.Deferred),
			)
			break
		}
		jobReport := l.runJob(context.WithoutCancel(ctx), logger, report, job, counts[job])
		report.Jobs = append(report.Jobs, jobReport)
		if jobReport.OK() {
			report.Archived++
		} else {
			report.Failed++
		}
	}

	logger.Info("cycle complete",
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Int("archived", report.Archived),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", l.now().Sub(start)),
	)
	return report
}

// runJob archives and reaps one job. ctx is detached from shutdown.
func (l *Loop) runJob(ctx context.Context, logger *slog.Logger, report Report, job string, flagCount int) (jr JobReport) {
	jr = JobReport{JobID: job, Flags: flagCount}
	defer func() {
		if r := recover(); r != nil {
			jr.Result.Err = fmt.Errorf("job %s panicked: %v", job, r)
			logging.ErrorWithContext(logger, "job aborted by panic", "job_panic",
				logging.String(logging.FieldJobID, job),
				logging.Any("panic", r),
			)
		}
		l.record(ctx, logger, report, jr)
	}()

	l.setState(StateArchiving)
	jr.Result = l.writer.Archive(ctx, job, report.Day)
	if !jr.Result.OK() {
		return jr
	}

	l.setState(StateReaping)
	jr.Reap = l.reaper.Reap(ctx, job)
	return jr
}

func (l *Loop) record(ctx context.Context, logger *slog.Logger, report Report, jr JobReport) {
	if l.recorder == nil {
		return
	}
	res := jr.Result
	entry := ledger.Entry{
		CycleID:     report.CycleID,
		JobID:       jr.JobID,
		Day:         report.Day,
		Status:      ledger.StatusArchived,
		Stage:       string(res.Stage),
		FlagCount:   jr.Flags,
		SourceCount: len(res.Sources),
		InputBytes:  res.InputBytes,
		OutputBytes: res.OutputBytes,
		Recovered:   res.Recovered,
		Duration:    res.Duration,
		CreatedAt:   l.now(),
	}
	if jr.OK() {
		entry.ArchivePath = res.ArchivePath
	} else {
		entry.Status = ledger.StatusFailed
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
	}
	if _, err := l.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logger, "ledger write failed", "ledger_record_failed",
			logging.String(logging.FieldJobID, jr.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.String(logging.FieldImpact, "archival unaffected; history will miss this entry"),
		)
	}
}
