package cycle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"archivist/internal/archive"
	"archivist/internal/config"
	"archivist/internal/cycle"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/testsupport"
)

var jan15 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)

func fixedClock() time.Time { return jan15 }

// hookOps wraps the real filesystem operations with per-call hooks.
type hookOps struct {
	archive.Ops
	beforeCompress func(dst string) error
}

func (h *hookOps) ConcatCompress(ctx context.Context, dst string, sources []string) (archive.CompressStats, error) {
	if h.beforeCompress != nil {
		if err := h.beforeCompress(dst); err != nil {
			return archive.CompressStats{}, err
		}
	}
	return h.Ops.ConcatCompress(ctx, dst, sources)
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []ledger.Entry
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, entry ledger.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.entries = append(m.entries, entry)
	return int64(len(m.entries)), nil
}

func newLoop(cfg *config.Config, opts ...cycle.Option) *cycle.Loop {
	opts = append([]cycle.Option{cycle.WithClock(fixedClock)}, opts...)
	return cycle.New(cfg, logging.NewNop(), opts...)
}

func seedExample(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteFlags(t, cfg.Paths.FlagDir, "hostA.flag.done", "hostB.flag.done", "hostB.cleanup")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LogDir, "hostA-1.log"), "a1\n")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LogDir, "hostA-2.log"), "a2\n")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LogDir, "hostB.log"), "b\n")
}

func TestRunCycleArchivesCompletedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)

	report := newLoop(cfg).RunCycle(context.Background())
	if report.Err != nil {
		t.Fatalf("cycle error: %v", report.Err)
	}
	if report.Day != "20240115" {
		t.Fatalf("Day = %q", report.Day)
	}
	if report.Archived != 2 || report.Failed != 0 {
		t.Fatalf("archived=%d failed=%d", report.Archived, report.Failed)
	}

	dayDir := filepath.Join(cfg.Paths.LogDir, "archive", "20240115")
	if got := testsupport.ListNames(t, dayDir); !reflect.DeepEqual(got, []string{"hostA.log.gz", "hostB.log.gz"}) {
		t.Fatalf("day dir = %v", got)
	}
	if got := testsupport.ReadGzip(t, filepath.Join(dayDir, "hostA.log.gz")); got != "a1\na2\n" {
		t.Fatalf("hostA archive = %q", got)
	}
	if got := testsupport.ReadGzip(t, filepath.Join(dayDir, "hostB.log.gz")); got != "b\n" {
		t.Fatalf("hostB archive = %q", got)
	}
	if got := testsupport.ListNames(t, cfg.Paths.LogDir); !reflect.DeepEqual(got, []string{"archive"}) {
		t.Fatalf("log dir = %v", got)
	}
	if got := testsupport.ListNames(t, cfg.Paths.FlagDir); len(got) != 0 {
		t.Fatalf("flag dir should be empty, got %v", got)
	}
}

func TestRunCycleIsIdempotentWithoutNewFlags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)
	loop := newLoop(cfg)

	first := loop.RunCycle(context.Background())
	if first.Archived != 2 {
		t.Fatalf("first cycle archived %d", first.Archived)
	}
	archivePath := filepath.Join(cfg.Paths.LogDir, "archive", "20240115", "hostA.log.gz")
	before, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}

	second := loop.RunCycle(context.Background())
	if second.Err != nil || len(second.Jobs) != 0 {
		t.Fatalf("second cycle should be a no-op, got %+v", second)
	}
	after, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("archive changed without new flags")
	}
}

func TestRunCycleIsolatesJobFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)

	ops := &hookOps{
		Ops: archive.NewOSOps(cfg.Archive.CompressionLevel),
		beforeCompress: func(dst string) error {
			if strings.HasSuffix(dst, "hostA.log.gz") {
				return errors.New("disk full")
			}
			return nil
		},
	}
	recorder := &memoryRecorder{}
	report := newLoop(cfg, cycle.WithOps(ops), cycle.WithRecorder(recorder)).RunCycle(context.Background())

	if report.Err != nil {
		t.Fatalf("job failure must not fail the cycle: %v", report.Err)
	}
	if report.Archived != 1 || report.Failed != 1 {
		t.Fatalf("archived=%d failed=%d", report.Archived, report.Failed)
	}
	if !errors.Is(report.Jobs[0].Result.Err, archive.ErrCompress) {
		t.Fatalf("hostA error = %v", report.Jobs[0].Result.Err)
	}
	for _, name := range []string{"hostA-1.log", "hostA-2.log"} {
		if !testsupport.Exists(t, filepath.Join(cfg.Paths.LogDir, name)) {
			t.Fatalf("%s must remain after failed compression", name)
		}
	}
	if got := testsupport.ListNames(t, cfg.Paths.FlagDir); !reflect.DeepEqual(got, []string{"hostA.flag.done"}) {
		t.Fatalf("flag dir = %v", got)
	}
	if !testsupport.Exists(t, filepath.Join(cfg.Paths.LogDir, "archive", "20240115", "hostB.log.gz")) {
		t.Fatal("hostB should be archived")
	}

	if len(recorder.entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(recorder.entries))
	}
	if recorder.entries[0].Status != ledger.StatusFailed || recorder.entries[0].Stage != "compress" {
		t.Fatalf("hostA entry = %+v", recorder.entries[0])
	}
	if recorder.entries[1].Status != ledger.StatusArchived || recorder.entries[1].CycleID != report.CycleID {
		t.Fatalf("hostB entry = %+v", recorder.entries[1])
	}
}

func TestRunCycleKeepsFlagsWithoutRawLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFlags(t, cfg.Paths.FlagDir, "hostC.flag.done")

	report := newLoop(cfg).RunCycle(context.Background())
	if report.Failed != 1 || !errors.Is(report.Jobs[0].Result.Err, archive.ErrNoSources) {
		t.Fatalf("expected no-sources failure, got %+v", report)
	}
	if !testsupport.Exists(t, filepath.Join(cfg.Paths.FlagDir, "hostC.flag.done")) {
		t.Fatal("flag should remain for a later cycle")
	}
}

func TestRunCycleScanFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.RemoveAll(cfg.Paths.FlagDir); err != nil {
		t.Fatal(err)
	}

	loop := newLoop(cfg)
	report := loop.RunCycle(context.Background())
	if !errors.Is(report.Err, cycle.ErrScan) {
		t.Fatalf("expected ErrScan, got %v", report.Err)
	}
	if loop.State() != cycle.StateIdle {
		t.Fatalf("state = %s, want idle", loop.State())
	}
	if testsupport.Exists(t, cfg.ArchiveRoot()) {
		t.Fatal("archive directory should not be created when the scan fails")
	}
}

func TestRunCyclePrepareDayFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)
	testsupport.WriteFile(t, cfg.ArchiveRoot(), "blocking file")

	report := newLoop(cfg).RunCycle(context.Background())
	if !errors.Is(report.Err, cycle.ErrPrepareDay) {
		t.Fatalf("expected ErrPrepareDay, got %v", report.Err)
	}
	if len(report.Jobs) != 0 {
		t.Fatalf("no job should run, got %d", len(report.Jobs))
	}
	if got := testsupport.ListNames(t, cfg.Paths.FlagDir); len(got) != 3 {
		t.Fatalf("flags should be untouched, got %v", got)
	}
}

func TestRunCycleFinishesCurrentJobOnShutdown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ops := &hookOps{
		Ops: archive.NewOSOps(cfg.Archive.CompressionLevel),
		beforeCompress: func(string) error {
			cancel()
			return nil
		},
	}

	report := newLoop(cfg, cycle.WithOps(ops)).RunCycle(ctx)
	if report.Archived != 1 || report.Deferred != 1 || !report.Interrupted() {
		t.Fatalf("expected one archived and one deferred job, got %+v", report)
	}
	if !testsupport.Exists(t, filepath.Join(cfg.Paths.LogDir, "archive", "20240115", "hostA.log.gz")) {
		t.Fatal("in-flight job should complete")
	}
	if got := testsupport.ListNames(t, cfg.Paths.FlagDir); !reflect.DeepEqual(got, []string{"hostB.cleanup", "hostB.flag.done"}) {
		t.Fatalf("deferred job flags should remain, got %v", got)
	}
}

func TestRunCycleIgnoresLedgerFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)

	report := newLoop(cfg, cycle.WithRecorder(&memoryRecorder{err: errors.New("database is locked")})).RunCycle(context.Background())
	if report.Archived != 2 {
		t.Fatalf("ledger failure must not affect archival, got %+v", report)
	}
}

func TestRunCycleRecordsToLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExample(t, cfg)
	store := testsupport.MustOpenLedger(t, cfg)

	report := newLoop(cfg, cycle.WithRecorder(store)).RunCycle(context.Background())
	entries, err := store.ForJob(context.Background(), "hostA", 0)
	if err != nil {
		t.Fatalf("ForJob: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.CycleID != report.CycleID || entry.Day != "20240115" || entry.SourceCount != 2 || entry.FlagCount != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestStateTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFlags(t, cfg.Paths.FlagDir, "hostA.flag.done")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LogDir, "hostA.log"), "a\n")

	var states []cycle.State
	loop := newLoop(cfg, cycle.WithStateObserver(func(s cycle.State) { states = append(states, s) }))
	loop.RunCycle(context.Background())

	want := []cycle.State{cycle.StateScanning, cycle.StateArchiving, cycle.StateReaping, cycle.StateIdle}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
}

func TestRunSleepsBetweenCyclesAndStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		cycles int
		slept  []time.Duration
	)
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) == 2 {
			cancel()
		}
		return ctx.Err()
	}
	ids := func() string {
		cycles++
		return "cycle"
	}

	if err := newLoop(cfg, cycle.WithSleep(sleep), cycle.WithCycleIDs(ids)).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cycles != 2 {
		t.Fatalf("expected 2 cycles, got %d", cycles)
	}
	for _, d := range slept {
		if d != time.Second {
			t.Fatalf("slept %s, want 1s", d)
		}
	}
}

func TestRunPicksUpFlagsInLaterCycles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &memoryRecorder{}
	sleeps := 0
	sleep := func(ctx context.Context, _ time.Duration) error {
		sleeps++
		switch sleeps {
		case 1:
			testsupport.WriteFlags(t, cfg.Paths.FlagDir, "hostA.flag.done")
			testsupport.WriteFile(t, filepath.Join(cfg.Paths.LogDir, "hostA.log"), "late\n")
		case 2:
			cancel()
		}
		return ctx.Err()
	}

	if err := newLoop(cfg, cycle.WithSleep(sleep), cycle.WithRecorder(recorder)).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].JobID != "hostA" {
		t.Fatalf("expected hostA archived in the second cycle, got %+v", recorder.entries)
	}
}
