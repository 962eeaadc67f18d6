package renewal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hiredeck/domainkit/core/logger"
)

// Scheduler runs the renewal sweep on a fixed interval.
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	log      *slog.Logger

	mu              sync.RWMutex
	ctx             context.Context
	cancel          context.CancelFunc
	running         atomic.Bool
	wg              sync.WaitGroup
	shutdownTimeout time.Duration

	sweepsCompleted atomic.Int64
	activeSweeps    atomic.Int32
}

// SchedulerStats provides observability metrics for monitoring.
type SchedulerStats struct {
	SweepsCompleted int64
	ActiveSweeps    int32
	IsRunning       bool
}

// NewScheduler wraps a sweeper in a periodic loop. Interval and shutdown
// timeout come from the sweeper's config.
func NewScheduler(sweeper *Sweeper, log *slog.Logger) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is nil")
	}
	if log == nil {
		log = logger.NewDiscard()
	}

	return &Scheduler{
		sweeper:         sweeper,
		interval:        sweeper.cfg.SweepInterval,
		shutdownTimeout: sweeper.cfg.ShutdownTimeout,
		log:             log,
	}, nil
}

// Start begins periodic sweeping. Blocking; runs until the context is
// cancelled. The first sweep runs immediately on start so a freshly deployed
// instance never waits a full interval with expiring certificates.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.running.Store(true)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.InfoContext(s.ctx, "renewal scheduler started",
		slog.Duration("sweep_interval", s.interval))

	s.sweepWithWait()

	for {
		select {
		case <-s.ctx.Done():
			s.log.InfoContext(context.Background(), "renewal scheduler stopping")
			s.running.Store(false)
			return s.ctx.Err()
		case <-ticker.C:
			s.sweepWithWait()
		}
	}
}

// Stop gracefully shuts down the scheduler, waiting for an in-flight sweep
// up to the shutdown timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.running.Store(false)
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.InfoContext(context.Background(), "renewal scheduler stopped cleanly")
		return nil
	case <-ctx.Done():
		s.log.WarnContext(context.Background(), "renewal scheduler shutdown timeout exceeded",
			slog.Duration("timeout", s.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", s.shutdownTimeout)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = s.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// sweepWithWait tracks the sweep with the WaitGroup and recovers panics so a
// failed sweep never kills the loop.
func (s *Scheduler) sweepWithWait() {
	// Must verify the scheduler is still running and add to the waitgroup
	// atomically, otherwise Stop() might wait on an incomplete count.
	s.mu.RLock()
	if s.cancel == nil {
		s.mu.RUnlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.RUnlock()

	defer s.wg.Done()

	s.activeSweeps.Add(1)
	defer s.activeSweeps.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(context.Background(), "renewal sweep panic recovered",
				slog.Any("panic", r))
		}
	}()

	s.sweeper.Sweep(ctx)
	s.sweepsCompleted.Add(1)
}

// Stats returns current scheduler statistics. Thread-safe.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.RLock()
	isRunning := s.cancel != nil
	s.mu.RUnlock()

	return SchedulerStats{
		SweepsCompleted: s.sweepsCompleted.Load(),
		ActiveSweeps:    s.activeSweeps.Load(),
		IsRunning:       isRunning,
	}
}

// Healthcheck validates that the scheduler is operational. Suitable for use
// in health check endpoints.
func (s *Scheduler) Healthcheck(ctx context.Context) error {
	if !s.Stats().IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrSchedulerNotRunning)
	}
	return nil
}
