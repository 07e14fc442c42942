package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepStats summarizes one sweep run for logging and monitoring.
type SweepStats struct {
	Found     int
	Processed int
	Failed    int
}

// Sweeper executes one expiry sweep pass. Sweeps must be safe to run
// concurrently with themselves: every row move is a conditional transition,
// so an overlapping run resolves to one winner per row.
type Sweeper interface {
	// Name identifies the sweep in logs
	Name() string
	// Sweep runs one pass over the overdue rows
	Sweep(ctx context.Context) (SweepStats, error)
}

// SweepSchedulerConfig holds configuration for a sweep scheduler
type SweepSchedulerConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
	// RetryAttempts is the number of attempts per tick before giving up
	// until the next tick
	RetryAttempts int
	// RetryBackoff is the delay between attempts within one tick
	RetryBackoff time.Duration
}

// DefaultSweepSchedulerConfig returns default sweep scheduler configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Interval:      time.Minute,
		RetryAttempts: 3,
		RetryBackoff:  30 * time.Second,
	}
}

// Validate validates the configuration
func (c *SweepSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SweepScheduler runs a Sweeper on a fixed interval. A failed pass is
// retried with a short backoff; once the attempts for a tick are exhausted
// the remaining rows simply wait for the next tick, since expiry is a soft
// deadline.
type SweepScheduler struct {
	config  SweepSchedulerConfig
	sweeper Sweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a new SweepScheduler
func NewSweepScheduler(config SweepSchedulerConfig, sweeper Sweeper, logger *zap.Logger) (*SweepScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SweepScheduler{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}, nil
}

// Start starts the scheduler
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sweep scheduler started",
		zap.String("sweep", s.sweeper.Name()),
		zap.Duration("interval", s.config.Interval),
		zap.Int("retry_attempts", s.config.RetryAttempts),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweep scheduler stopped", zap.String("sweep", s.sweeper.Name()))
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sweep scheduler stop timed out", zap.String("sweep", s.sweeper.Name()))
		return ctx.Err()
	}
}

// TriggerNow runs one sweep pass immediately, outside the interval. Used by
// operator tooling and tests.
func (s *SweepScheduler) TriggerNow(ctx context.Context) (SweepStats, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return SweepStats{}, ErrSchedulerNotRunning
	}

	return s.sweeper.Sweep(ctx)
}

// runLoop runs sweeps until the context is cancelled
func (s *SweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce runs one tick's sweep with per-tick retries
func (s *SweepScheduler) runOnce(ctx context.Context) {
	for attempt := 1; attempt <= s.config.RetryAttempts; attempt++ {
		stats, err := s.sweeper.Sweep(ctx)
		if err == nil {
			if stats.Found > 0 {
				s.logger.Info("Sweep pass completed",
					zap.String("sweep", s.sweeper.Name()),
					zap.Int("found", stats.Found),
					zap.Int("processed", stats.Processed),
					zap.Int("failed", stats.Failed),
				)
			}
			return
		}

		s.logger.Error("Sweep pass failed",
			zap.String("sweep", s.sweeper.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.config.RetryAttempts),
			zap.Error(err),
		)

		if attempt == s.config.RetryAttempts {
			// Leave the remaining rows for the next tick.
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.RetryBackoff):
		}
	}
}
