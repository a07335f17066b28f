package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/five82/logsift/internal/logging"
	"github.com/five82/logsift/internal/session"
)

// maxBackoff caps the delay between refreshes after repeated failures.
const maxBackoff = 10 * time.Minute

// Fetcher is the part of session.Controller the refresher drives.
type Fetcher interface {
	Fetch(ctx context.Context) error
}

// Refresher re-fetches on a fixed cadence so preset windows follow the
// wall clock. Failures back off exponentially up to maxBackoff.
type Refresher struct {
	Fetcher  Fetcher
	Interval time.Duration
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled. A non-positive Interval disables
// refreshing and Run returns immediately.
func (r Refresher) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return nil
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	timer := time.NewTimer(r.Interval)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		err := r.Fetcher.Fetch(ctx)
		switch {
		case err == nil:
			failures = 0
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, session.ErrFetchSuperseded):
			// A user-triggered fetch replaced this one.
		default:
			failures++
			logger.Warn("refresh failed", "error", err, "failures", failures)
		}
		timer.Reset(calculateBackoff(failures, r.Interval))
	}
}

// calculateBackoff doubles the interval per consecutive failure.
func calculateBackoff(failures int, interval time.Duration) time.Duration {
	if failures <= 0 || interval >= maxBackoff {
		return interval
	}
	backoff := interval
	for range failures {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
