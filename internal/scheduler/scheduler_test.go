package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler(t *testing.T) {
	t.Run("runs once at startup and once per tick", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var runs atomic.Int32

		s := New("resolve", time.Hour, clock, func(context.Context) {
			runs.Add(1)
		}, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		// The ticker registering with the fake clock means the startup run
		// already happened.
		clock.BlockUntil(1)
		assert.Equal(t, int32(1), runs.Load())

		clock.Advance(time.Hour)
		require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)

		clock.Advance(time.Hour)
		require.Eventually(t, func() bool { return runs.Load() == 3 }, time.Second, time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop on cancellation")
		}
	})

	t.Run("cancellation stops further ticks", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var runs atomic.Int32

		s := New("resolve", time.Hour, clock, func(context.Context) {
			runs.Add(1)
		}, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		clock.BlockUntil(1)
		cancel()
		<-done

		clock.Advance(2 * time.Hour)
		assert.Equal(t, int32(1), runs.Load(), "only the startup run")
	})
}
