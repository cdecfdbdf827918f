package cycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"archivist/internal/archive"
	"archivist/internal/config"
	"archivist/internal/flags"
	"archivist/internal/ledger"
	"archivist/internal/logging"
)

// State is the loop's current phase.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateArchiving State = "archiving"
	StateReaping   State = "reaping"
)

var (
	// ErrScan aborts a cycle when the flag directory cannot be listed.
	ErrScan = errors.New("scan flag directory")
	// ErrPrepareDay aborts a cycle when the dated archive directory cannot be created.
	ErrPrepareDay = errors.New("prepare archive directory")
)

// Recorder persists per-job outcomes.
type Recorder interface {
	Record(ctx context.Context, entry ledger.Entry) (int64, error)
}

// Loop runs archival cycles.
type Loop struct {
	scanner  *flags.Scanner
	writer   *archive.Writer
	reaper   *flags.Reaper
	recorder Recorder
	interval time.Duration
	logger   *slog.Logger

	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	newID    func() string
	observer func(State)
	ops      archive.Ops

	mu    sync.RWMutex
	state State
	last  Report
}

// Option configures optional Loop behavior.
type Option func(*Loop)

// WithClock replaces the wall clock used to pick the archive day.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleep replaces the inter-cycle sleep. It must return ctx.Err() once ctx is done.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(l *Loop) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithRecorder records every job outcome.
func WithRecorder(recorder Recorder) Option {
	return func(l *Loop) {
		l.recorder = recorder
	}
}

// WithOps replaces the filesystem operations used by the archive writer.
func WithOps(ops archive.Ops) Option {
	return func(l *Loop) {
		l.ops = ops
	}
}

// WithCycleIDs replaces the cycle identifier generator.
func WithCycleIDs(newID func() string) Option {
	return func(l *Loop) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// WithStateObserver is invoked on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(l *Loop) {
		l.observer = fn
	}
}

// New constructs a Loop over cfg's directories.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Loop {
	logger = logging.NewComponentLogger(logger, "cycle")
	l := &Loop{
		interval: cfg.PollInterval(),
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
		newID:    uuid.NewString,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.scanner = flags.NewScanner(cfg.Paths.FlagDir, logger)
	l.writer = archive.NewWriter(cfg, l.ops, logger)
	l.reaper = flags.NewReaper(cfg.Paths.FlagDir, logger)
	return l
}

// State returns the current phase.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// LastReport returns the most recent cycle report.
func (l *Loop) LastReport() Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

func (l *Loop) setState(state State) {
	l.mu.Lock()
	changed := l.state != state
	l.state = state
	l.mu.Unlock()
	if changed && l.observer != nil {
		l.observer(state)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
