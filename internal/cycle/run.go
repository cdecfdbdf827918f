package cycle

import (
	"context"
	"fmt"

	"archivist/internal/logging"
)

// Run executes cycles until ctx is cancelled, sleeping the poll interval
// between them. It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", l.interval)
	}
	l.logger.Info("archival loop started",
		logging.String(logging.FieldEventType, "loop_start"),
		logging.Duration("poll_interval", l.interval),
	)
	for {
		if ctx.Err() != nil {
			break
		}
		l.RunCycle(ctx)
		if err := l.sleep(ctx, l.interval); err != nil {
			break
		}
	}
	l.logger.Info("archival loop stopped", logging.String(logging.FieldEventType, "loop_stop"))
	return nil
}
