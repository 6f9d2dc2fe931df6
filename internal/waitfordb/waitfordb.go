// Package waitfordb blocks until the database accepts connections.
package waitfordb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Pinger is satisfied by *sql.DB and the database service.
type Pinger interface {
	Ping(ctx context.Context) error
}

var ErrTimeout = errors.New("database did not become available in time")

// Wait pings until the database answers, ctx is cancelled or timeout elapses.
// A zero timeout waits until ctx is done.
func Wait(ctx context.Context, pinger Pinger, interval, timeout time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	slog.Info("waiting for database...")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		err := pinger.Ping(ctx)
		if err == nil {
			slog.Info("database available!", "attempts", attempt)
			return nil
		}
		slog.Info("database unavailable, waiting", "attempt", attempt, "retry_in", interval, "error", err)

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %d attempts: %v", ErrTimeout, attempt, err)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
