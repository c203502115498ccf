package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs atomic.Int64
	err  error
}

func (r *countingRunner) RunBillingCycle(ctx context.Context, now time.Time) error {
	r.runs.Add(1)
	return r.err
}

func TestBillingScheduler_StartStop(t *testing.T) {
	t.Run("runs the billing cycle on each tick", func(t *testing.T) {
		runner := &countingRunner{}
		sched := NewBillingScheduler(runner, nil, BillingSchedulerConfig{
			Enabled:     true,
			RunInterval: 10 * time.Millisecond,
			RunTimeout:  time.Second,
		})

		require.NoError(t, sched.Start(context.Background()))

		assert.Eventually(t, func() bool {
			return runner.runs.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, sched.Stop(context.Background()))
	})

	t.Run("disabled scheduler never runs", func(t *testing.T) {
		runner := &countingRunner{}
		sched := NewBillingScheduler(runner, nil, BillingSchedulerConfig{
			Enabled:     false,
			RunInterval: time.Millisecond,
		})

		require.NoError(t, sched.Start(context.Background()))
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, int64(0), runner.runs.Load())
		require.NoError(t, sched.Stop(context.Background()))
	})

	t.Run("stop halts further runs", func(t *testing.T) {
		runner := &countingRunner{}
		sched := NewBillingScheduler(runner, nil, BillingSchedulerConfig{
			Enabled:     true,
			RunInterval: 10 * time.Millisecond,
		})

		require.NoError(t, sched.Start(context.Background()))
		assert.Eventually(t, func() bool {
			return runner.runs.Load() >= 1
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, sched.Stop(context.Background()))
		after := runner.runs.Load()
		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, after, runner.runs.Load())
	})

	t.Run("start is idempotent", func(t *testing.T) {
		runner := &countingRunner{}
		sched := NewBillingScheduler(runner, nil, BillingSchedulerConfig{
			Enabled:     true,
			RunInterval: time.Hour,
		})

		require.NoError(t, sched.Start(context.Background()))
		require.NoError(t, sched.Start(context.Background()))
		require.NoError(t, sched.Stop(context.Background()))
		require.NoError(t, sched.Stop(context.Background()))
	})

	t.Run("a failing run does not stop the loop", func(t *testing.T) {
		runner := &countingRunner{err: assert.AnError}
		sched := NewBillingScheduler(runner, nil, BillingSchedulerConfig{
			Enabled:     true,
			RunInterval: 10 * time.Millisecond,
		})

		require.NoError(t, sched.Start(context.Background()))
		assert.Eventually(t, func() bool {
			return runner.runs.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, sched.Stop(context.Background()))
	})
}
