package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"archivist/internal/config"
	"archivist/internal/cycle"
	"archivist/internal/daemon"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel  string
	LogFormat string
}

// runtime bundles what a daemon process or a one-shot cycle needs.
type runtime struct {
	logger *slog.Logger
	store  *ledger.Store
	daemon *daemon.Daemon
}

func (r *runtime) Close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

func setup(cfg *config.Config, opts Options) (*runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	logCfg := *cfg
	if opts.LogLevel != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		logCfg.Logging.Format = opts.LogFormat
	}
	logger, err := logging.NewFromConfig(&logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Info("directories resolved",
		logging.String(logging.FieldEventType, "directories_resolved"),
		logging.String("log_dir", cfg.Paths.LogDir),
		logging.String("flag_dir", cfg.Paths.FlagDir),
		logging.String("archive_dir", cfg.ArchiveRoot()),
		logging.String("state_dir", cfg.Paths.StateDir),
	)

	logPreflight(logger, cfg)

	rt := &runtime{logger: logger}
	loopOpts := []cycle.Option{}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logging.WarnWithContext(logger, "archive ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, cfg.LedgerPath()),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or delete a mismatched ledger.db"),
			logging.String(logging.FieldImpact, "archival continues; history is not recorded"),
		)
	} else {
		rt.store = store
		loopOpts = append(loopOpts, cycle.WithRecorder(store))
	}

	loop := cycle.New(cfg, logger, loopOpts...)
	d, err := daemon.New(cfg, logger, loop)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	rt.daemon = d
	return rt, nil
}

// Run starts the archivist daemon and blocks until SIGINT/SIGTERM or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := setup(cfg, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.daemon.Run(signalCtx); err != nil {
		rt.logger.Error("daemon exited with error", logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_run_failed"))
		return err
	}
	rt.logger.Info("archivist daemon shutting down")
	return nil
}

// RunCycle executes exactly one archival cycle under the daemon lock.
func RunCycle(cmdCtx context.Context, cfg *config.Config, opts Options) (cycle.Report, error) {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := setup(cfg, opts)
	if err != nil {
		return cycle.Report{}, err
	}
	defer rt.Close()

	return rt.daemon.RunOnce(signalCtx)
}

func logPreflight(logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String(logging.FieldEventType, "preflight_ok"),
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path before flags accumulate"),
			logging.String(logging.FieldImpact, "jobs may fail until the check passes"),
		)
	}
}
