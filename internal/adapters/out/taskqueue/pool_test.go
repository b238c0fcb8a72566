package taskqueue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orderflow/internal/adapters/out/taskqueue"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, opts ...taskqueue.Option) *taskqueue.Pool {
	t.Helper()
	p := taskqueue.NewPool(slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, p.Start(t.Context()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Stop(ctx)
	})
	return p
}

func task(timeout time.Duration, run func(ctx context.Context) error) ports.Task {
	return ports.Task{Name: "payment", OrderID: kernel.NewUUID(), Attempt: 1, Timeout: timeout, Run: run}
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("task result not delivered")
		return nil
	}
}

func TestPool_Dispatch(t *testing.T) {
	t.Run("should deliver success", func(t *testing.T) {
		p := newPool(t)

		err := await(t, p.Dispatch(t.Context(), task(time.Second, func(context.Context) error { return nil })))

		require.NoError(t, err)
	})

	t.Run("should deliver the task error", func(t *testing.T) {
		p := newPool(t)
		boom := errors.New("card declined")

		err := await(t, p.Dispatch(t.Context(), task(time.Second, func(context.Context) error { return boom })))

		require.ErrorIs(t, err, boom)
	})

	t.Run("should report timeouts", func(t *testing.T) {
		p := newPool(t)

		err := await(t, p.Dispatch(t.Context(), task(20*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})))

		require.ErrorIs(t, err, ports.ErrTaskTimeout)
	})

	t.Run("should report timeouts of tasks ignoring their context", func(t *testing.T) {
		p := newPool(t)
		release := make(chan struct{})
		defer close(release)

		err := await(t, p.Dispatch(t.Context(), task(20*time.Millisecond, func(context.Context) error {
			<-release
			return nil
		})))

		require.ErrorIs(t, err, ports.ErrTaskTimeout)
	})

	t.Run("should recover panics", func(t *testing.T) {
		p := newPool(t)

		err := await(t, p.Dispatch(t.Context(), task(time.Second, func(context.Context) error {
			panic("nil map")
		})))

		require.ErrorIs(t, err, taskqueue.ErrTaskPanicked)
		assert.Contains(t, err.Error(), "nil map")
	})

	t.Run("should forward caller cancellation", func(t *testing.T) {
		p := newPool(t)
		ctx, cancel := context.WithCancel(t.Context())
		started := make(chan struct{})

		ch := p.Dispatch(ctx, task(time.Second, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}))
		<-started
		cancel()

		err := await(t, ch)
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ports.ErrTaskTimeout)
	})
}

func TestPool_Concurrency(t *testing.T) {
	p := newPool(t, taskqueue.WithConcurrency(2), taskqueue.WithQueueSize(10))

	var running, peak atomic.Int32
	results := make([]<-chan error, 0, 6)
	for range 6 {
		results = append(results, p.Dispatch(t.Context(), task(time.Second, func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		})))
	}
	for _, ch := range results {
		require.NoError(t, await(t, ch))
	}

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_RateLimit(t *testing.T) {
	p := newPool(t, taskqueue.WithRateLimit(20, 1))

	start := time.Now()
	results := make([]<-chan error, 0, 3)
	for range 3 {
		results = append(results, p.Dispatch(t.Context(), task(time.Second, func(context.Context) error { return nil })))
	}
	for _, ch := range results {
		require.NoError(t, await(t, ch))
	}

	// 1 immediate + 2 spaced by 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestPool_Stop(t *testing.T) {
	p := taskqueue.NewPool(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, p.Start(t.Context()))
	require.NoError(t, p.Stop(t.Context()))

	err := await(t, p.Dispatch(t.Context(), task(time.Second, func(context.Context) error { return nil })))

	require.ErrorIs(t, err, taskqueue.ErrPoolStopped)
	require.ErrorIs(t, p.Start(t.Context()), taskqueue.ErrPoolStopped)
}

func TestPool_DispatchRacingStop(t *testing.T) {
	const tasks = 200
	p := taskqueue.NewPool(slog.New(slog.NewTextHandler(io.Discard, nil)),
		taskqueue.WithConcurrency(2), taskqueue.WithQueueSize(4))
	require.NoError(t, p.Start(t.Context()))

	results := make(chan (<-chan error), tasks)
	var wg sync.WaitGroup
	for range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- p.Dispatch(context.Background(), task(time.Second, func(context.Context) error {
				time.Sleep(time.Millisecond)
				return nil
			}))
		}()
	}

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	wg.Wait()
	close(results)

	for ch := range results {
		err := await(t, ch)
		if err != nil {
			assert.ErrorIs(t, err, taskqueue.ErrPoolStopped)
		}
	}
}
