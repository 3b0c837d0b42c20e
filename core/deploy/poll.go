package deploy

import (
	"context"
	"fmt"
	"time"
)

// PollConfig controls the status-polling loop for remote jobs.
// Interval grows exponentially from Initial up to Max; Timeout bounds the
// whole wait on the caller side, independent of the remote service's own
// runtime budget.
type PollConfig struct {
	Initial time.Duration
	Max     time.Duration
	Timeout time.Duration
}

// DefaultPollConfig is suitable for compilation/packaging jobs, which
// typically finish within a few minutes.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Initial: 10 * time.Second,
		Max:     60 * time.Second,
		Timeout: 45 * time.Minute,
	}
}

// Poll calls check at a bounded-exponential-backoff interval until it
// reports done, fails, the timeout elapses, or ctx is cancelled.
func Poll(ctx context.Context, cfg PollConfig, check func(ctx context.Context) (done bool, err error)) error {
	if cfg.Initial <= 0 {
		cfg.Initial = 10 * time.Second
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}

	deadline := time.Time{}
	if cfg.Timeout > 0 {
		deadline = time.Now().Add(cfg.Timeout)
	}

	interval := cfg.Initial
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if !deadline.IsZero() && time.Now().Add(interval).After(deadline) {
			return fmt.Errorf("polling timed out after %s", cfg.Timeout)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		interval *= 2
		if interval > cfg.Max {
			interval = cfg.Max
		}
	}
}
