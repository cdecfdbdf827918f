package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"archivist/internal/config"
	"archivist/internal/cycle"
	"archivist/internal/logging"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another archivist instance is already running")

// Daemon runs the archival loop under a single-instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	loop   *cycle.Loop

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon around loop.
func New(cfg *config.Config, logger *slog.Logger, loop *cycle.Loop) (*Daemon, error) {
	if cfg == nil || loop == nil {
		return nil, errors.New("daemon requires config and cycle loop")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		loop:     loop,
		lockPath: lockPath,
		pidPath:  cfg.PIDPath(),
		lock:     flock.New(lockPath),
	}, nil
}

// Run acquires the lock, writes the pid file and executes cycles until ctx is
// cancelled. The pid file belongs to the lock holder and is removed on return.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	if err := WritePID(d.pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer d.removePID()

	d.logger.Info("archivist daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("log_dir", d.cfg.Paths.LogDir),
		logging.String("flag_dir", d.cfg.Paths.FlagDir),
		logging.String("archive_dir", d.cfg.ArchiveRoot()),
	)
	if err := d.loop.Run(ctx); err != nil {
		return fmt.Errorf("run archival loop: %w", err)
	}
	d.logger.Info("archivist daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

// RunOnce acquires the lock and executes exactly one cycle.
func (d *Daemon) RunOnce(ctx context.Context) (cycle.Report, error) {
	if err := d.acquire(); err != nil {
		return cycle.Report{}, err
	}
	defer d.release()
	return d.loop.RunCycle(ctx), nil
}

// Running reports whether this daemon currently holds the lock.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) acquire() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	d.running.Store(true)
	return nil
}

func (d *Daemon) release() {
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, d.lockPath),
			logging.String(logging.FieldErrorHint, "remove the lock file if no archivist process is running"),
			logging.String(logging.FieldImpact, "next start may report an existing instance"),
		)
	}
	d.running.Store(false)
}

func (d *Daemon) removePID() {
	if d.pidPath == "" {
		return
	}
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(d.logger, "failed to remove pid file", "daemon_pid_remove_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, d.pidPath),
			logging.String(logging.FieldErrorHint, "remove the stale pid file manually"),
			logging.String(logging.FieldImpact, "status may report a stale pid"),
		)
	}
}
