package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// expiryBatchLimit caps how many attempts one sweep terminates.
const expiryBatchLimit = 100

// AttemptExpirer terminates and grades overdue attempts.
// *service.AttemptService satisfies it.
type AttemptExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// ExpiryWorker periodically settles ACTIVE attempts whose deadline passed
// without the student ever coming back. Correctness does not depend on it:
// any read of an expired attempt settles it in place. The sweeper just keeps
// abandoned sessions from lingering in storage indefinitely.
type ExpiryWorker struct {
	attempts AttemptExpirer
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(attempts AttemptExpirer, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		attempts: attempts,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopping")
			return
		case <-ticker.C:
			expired, err := w.attempts.ExpireOverdue(ctx, expiryBatchLimit)
			if err != nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
				continue
			}
			if expired > 0 {
				w.log.Info().Int("expired", expired).Msg("Settled overdue attempts")
			}
		}
	}
}
