package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/api/metrics"
)

const defaultSweepInterval = time.Hour

// TokenSweeper removes refresh tokens that expired before now.
type TokenSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// WindowCleaner drops finished rate limit windows. Only in-process counters
// need it; Redis expires its own keys.
type WindowCleaner interface {
	Cleanup(now time.Time) int
}

// Sweeper runs periodic maintenance: the expired refresh token purge and,
// when configured, rate limit window cleanup.
type Sweeper struct {
	tokens   TokenSweeper
	windows  WindowCleaner
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewSweeper builds a Sweeper. windows may be nil. A non-positive interval
// falls back to one hour.
func NewSweeper(tokens TokenSweeper, windows WindowCleaner, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		tokens:   tokens,
		windows:  windows,
		interval: interval,
		log:      log.With().Str("component", "sweeper").Logger(),
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single maintenance pass. Failures are logged and the
// next tick tries again.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	start := s.now()

	deleted, err := s.tokens.SweepExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expired token sweep failed")
	} else {
		metrics.SweepDeletedTotal.Add(float64(deleted))
		if deleted > 0 {
			s.log.Info().Int64("deleted", deleted).Msg("expired refresh tokens removed")
		}
	}

	if s.windows != nil {
		if n := s.windows.Cleanup(s.now()); n > 0 {
			s.log.Debug().Int("windows", n).Msg("rate limit windows pruned")
		}
	}

	metrics.SweepDuration.Observe(s.now().Sub(start).Seconds())
}
