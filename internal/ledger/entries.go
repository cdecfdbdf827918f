package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the recorded outcome of one job in one cycle.
type Status string

const (
	StatusArchived Status = "archived"
	StatusFailed   Status = "failed"
)

// Entry is one ledger row.
type Entry struct {
	ID          int64
	CycleID     string
	JobID       string
	Day         string
	ArchivePath string
	Status      Status
	Stage       string
	FlagCount   int
	SourceCount int
	InputBytes  int64
	OutputBytes int64
	Recovered   bool
	Error       string
	Duration    time.Duration
	CreatedAt   time.Time
}

// Summary aggregates entries recorded since a point in time.
type Summary struct {
	Archived    int
	Failed      int
	InputBytes  int64
	OutputBytes int64
	LastEntryAt time.Time
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = "id, cycle_id, job_id, day, archive_path, status, stage, flag_count, source_count, input_bytes, output_bytes, recovered, error_message, duration_ms, created_at"

// Record inserts entry and returns its assigned ID. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.JobID) == "" {
		return 0, errors.New("ledger entry requires a job id")
	}
	if entry.Status == "" {
		return 0, errors.New("ledger entry requires a status")
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO archive_runs (cycle_id, job_id, day, archive_path, status, stage, flag_count, source_count,
				input_bytes, output_bytes, recovered, error_message, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.CycleID,
			entry.JobID,
			entry.Day,
			nullableString(entry.ArchivePath),
			string(entry.Status),
			nullableString(entry.Stage),
			entry.FlagCount,
			entry.SourceCount,
			entry.InputBytes,
			entry.OutputBytes,
			boolToInt(entry.Recovered),
			nullableString(entry.Error),
			entry.Duration.Milliseconds(),
			created.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record ledger entry: %w", err)
	}
	return id, nil
}

// Recent returns the newest entries first. A non-positive limit returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM archive_runs ORDER BY id DESC"
	return s.query(ctx, query, limit)
}

// ForJob returns the newest entries for jobID first.
func (s *Store) ForJob(ctx context.Context, jobID string, limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM archive_runs WHERE job_id = ? ORDER BY id DESC"
	return s.query(ctx, query, limit, jobID)
}

// SummarySince aggregates entries created at or after since.
func (s *Store) SummarySince(ctx context.Context, since time.Time) (Summary, error) {
	var (
		summary  Summary
		archived sql.NullInt64
		failed   sql.NullInt64
		in       sql.NullInt64
		out      sql.NullInt64
		last     sql.NullString
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT
				SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
				SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
				SUM(input_bytes),
				SUM(output_bytes),
				MAX(created_at)
			FROM archive_runs WHERE created_at >= ?`,
			string(StatusArchived), string(StatusFailed), since.UTC().Format(timeLayout),
		).Scan(&archived, &failed, &in, &out, &last)
	})
	if err != nil {
		return summary, fmt.Errorf("summarize ledger: %w", err)
	}
	summary.Archived = int(archived.Int64)
	summary.Failed = int(failed.Int64)
	summary.InputBytes = in.Int64
	summary.OutputBytes = out.Int64
	if t, err := parseTimeString(last.String); err == nil {
		summary.LastEntryAt = t
	}
	return summary, nil
}

func (s *Store) query(ctx context.Context, query string, limit int, args ...any) ([]Entry, error) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	return entries, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry       Entry
		archivePath sql.NullString
		status      string
		stage       sql.NullString
		recovered   int64
		errorMsg    sql.NullString
		durationMS  int64
		createdRaw  string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.CycleID,
		&entry.JobID,
		&entry.Day,
		&archivePath,
		&status,
		&stage,
		&entry.FlagCount,
		&entry.SourceCount,
		&entry.InputBytes,
		&entry.OutputBytes,
		&recovered,
		&errorMsg,
		&durationMS,
		&createdRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.ArchivePath = archivePath.String
	entry.Status = Status(status)
	entry.Stage = stage.String
	entry.Recovered = recovered != 0
	entry.Error = errorMsg.String
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
