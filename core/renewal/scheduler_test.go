package renewal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hiredeck/domainkit/core/renewal"
)

func newTestScheduler(t *testing.T, interval time.Duration) *renewal.Scheduler {
	t.Helper()

	cfg := renewal.Config{
		SweepInterval:       interval,
		DefaultContactEmail: "ops@example.com",
	}
	sweeper, err := renewal.NewSweeper(cfg, newFakeStore(), newFakeRenewer(),
		renewal.WithRetrySleeper(noSleep))
	require.NoError(t, err)

	scheduler, err := renewal.NewScheduler(sweeper, nil)
	require.NoError(t, err)
	return scheduler
}

func TestSchedulerLifecycle(t *testing.T) {
	t.Parallel()

	scheduler := newTestScheduler(t, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- scheduler.Start(ctx) }()

	require.Eventually(t, func() bool {
		return scheduler.Stats().SweepsCompleted >= 1
	}, 2*time.Second, 10*time.Millisecond, "first sweep should run immediately on start")

	require.True(t, scheduler.Stats().IsRunning)
	require.NoError(t, scheduler.Healthcheck(ctx))

	require.NoError(t, scheduler.Stop())
	require.ErrorIs(t, <-errCh, context.Canceled)

	require.False(t, scheduler.Stats().IsRunning)
	require.ErrorIs(t, scheduler.Healthcheck(ctx), renewal.ErrSchedulerNotRunning)
}

func TestSchedulerDoubleStart(t *testing.T) {
	t.Parallel()

	scheduler := newTestScheduler(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- scheduler.Start(ctx) }()

	require.Eventually(t, func() bool {
		return scheduler.Stats().IsRunning
	}, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, scheduler.Start(ctx), renewal.ErrAlreadyStarted)

	require.NoError(t, scheduler.Stop())
	<-errCh
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	t.Parallel()

	scheduler := newTestScheduler(t, time.Hour)
	require.ErrorIs(t, scheduler.Stop(), renewal.ErrNotStarted)
}

func TestSchedulerRunWithContextCancel(t *testing.T) {
	t.Parallel()

	scheduler := newTestScheduler(t, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	run := scheduler.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	require.Eventually(t, func() bool {
		return scheduler.Stats().SweepsCompleted >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh, "context cancellation is a normal shutdown")
}
