package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stepRecorder struct {
	mu    sync.Mutex
	steps []string
}

func (that *stepRecorder) add(step string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.steps = append(that.steps, step)
}

func (that *stepRecorder) list() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.steps...)
}

type recordingScheduler struct {
	steps *stepRecorder
}

func (that *recordingScheduler) Stop()   { that.steps.add("stop") }
func (that *recordingScheduler) AllOff() { that.steps.add("all off") }

func newShutdown(steps *stepRecorder, releaseErr error) (*shutdown, context.Context, *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	workers := &sync.WaitGroup{}

	return &shutdown{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cancel:    cancel,
		workers:   workers,
		scheduler: &recordingScheduler{steps: steps},
		release: func() error {
			steps.add("close")
			return releaseErr
		},
	}, ctx, workers
}

func TestShutdown_Run(t *testing.T) {
	t.Run("Workers stop before the hardware is released", func(t *testing.T) {
		// Given: a poller that only exits once the context is canceled
		steps := &stepRecorder{}
		teardown, ctx, workers := newShutdown(steps, nil)

		workers.Add(1)
		go func() {
			defer workers.Done()
			<-ctx.Done()
			steps.add("poller stopped")
		}()

		// When: tearing down
		teardown.run()

		// Then: the poller is gone before the scheduler and board are touched
		require.Equal(t, []string{"poller stopped", "stop", "all off", "close"}, steps.list())
	})

	t.Run("Second call is a no-op", func(t *testing.T) {
		// Given: a teardown that already ran
		steps := &stepRecorder{}
		teardown, _, _ := newShutdown(steps, nil)
		teardown.run()

		// When: running it again
		teardown.run()

		// Then: the board is released once
		require.Equal(t, []string{"stop", "all off", "close"}, steps.list())
	})

	t.Run("Release error is logged, not raised", func(t *testing.T) {
		// Given: a board that fails to close
		steps := &stepRecorder{}
		teardown, ctx, _ := newShutdown(steps, errors.New("busy"))

		// When: tearing down
		require.NotPanics(t, teardown.run)

		// Then: the context is canceled and close was attempted
		require.ErrorIs(t, ctx.Err(), context.Canceled)
		require.Equal(t, []string{"stop", "all off", "close"}, steps.list())
	})
}
