package indicator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

const (
	EffectFlash = "flash"
	EffectReset = "reset"
)

// Timing configures the win and draw effects.
type Timing struct {
	FlashDelay  time.Duration
	FlashCount  int
	FlashPeriod time.Duration
	ResetDelay  time.Duration
}

// ResetFunc performs the auto-reset for the given generation. The callee decides
// whether that generation is still current.
type ResetFunc func(generation uint64)

type effectMetrics interface {
	IncStaleEffect(kind string)
}

type noopMetrics struct{}

func (noopMetrics) IncStaleEffect(string) {}

// Scheduler turns move results into indicator effects. Timed effects are tagged
// with the generation they were scheduled for and become no-ops once it moves on.
type Scheduler struct {
	logger  *slog.Logger
	clock   clockwork.Clock
	output  Output
	timing  Timing
	metrics effectMetrics

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	onReset    ResetFunc
	stopped    bool
}

func NewScheduler(logger *slog.Logger, clock clockwork.Clock, output Output, timing Timing, metrics effectMetrics) *Scheduler {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Scheduler{
		logger:  logger.With("component", "indicator-scheduler"),
		clock:   clock,
		output:  output,
		timing:  timing,
		metrics: metrics,
		cancel:  func() {},
	}
}

// SetResetHandler registers the function invoked when a delayed reset fires.
func (that *Scheduler) SetResetHandler(fn ResetFunc) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.onReset = fn
}

// OnMoveResult schedules the effects for an accepted move made at generation.
func (that *Scheduler) OnMoveResult(result entity.MoveResult, generation uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped {
		return
	}

	that.generation = generation

	switch {
	case result.IsWon():
		ctx := that.newEffectContext()
		go that.runFlash(ctx, result.Winner, generation)
		go that.runDelayedReset(ctx, generation)
	case result.IsDrawn():
		that.setAll(false)
		ctx := that.newEffectContext()
		go that.runDelayedReset(ctx, generation)
	default:
		that.setSteady(result.NextPlayer)
	}
}

// OnReset drops every effect of the superseded game and shows the starting mark.
func (that *Scheduler) OnReset(generation uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped {
		return
	}

	that.generation = generation
	that.cancel()
	that.cancel = func() {}
	that.setSteady(entity.StartingMark)
}

// Stop abandons outstanding effects without waiting for them.
func (that *Scheduler) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopped = true
	that.cancel()
}

// AllOff drives both channels off.
func (that *Scheduler) AllOff() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.setAll(false)
}

func (that *Scheduler) newEffectContext() context.Context {
	that.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	that.cancel = cancel

	return ctx
}

func (that *Scheduler) runFlash(ctx context.Context, mark entity.Mark, generation uint64) {
	log := that.logger.With("method", "runFlash", "mark", mark, "generation", generation)

	if !that.sleep(ctx, that.timing.FlashDelay) {
		return
	}

	if !that.applyIfCurrent(generation, EffectFlash, func() { that.set(mark.Opponent(), false) }) {
		return
	}

	for range that.timing.FlashCount {
		if !that.applyIfCurrent(generation, EffectFlash, func() { that.set(mark, true) }) {
			return
		}

		if !that.sleep(ctx, that.timing.FlashPeriod) {
			return
		}

		if !that.applyIfCurrent(generation, EffectFlash, func() { that.set(mark, false) }) {
			return
		}

		if !that.sleep(ctx, that.timing.FlashPeriod) {
			return
		}
	}

	log.Debug("flash sequence finished")
}

func (that *Scheduler) runDelayedReset(ctx context.Context, generation uint64) {
	log := that.logger.With("method", "runDelayedReset", "generation", generation)

	if !that.sleep(ctx, that.timing.ResetDelay) {
		return
	}

	that.mu.Lock()
	current := that.generation == generation && !that.stopped
	onReset := that.onReset
	that.mu.Unlock()

	if !current {
		log.Debug("skipping stale auto-reset")
		that.metrics.IncStaleEffect(EffectReset)
		return
	}

	if onReset == nil {
		log.Warn("auto-reset fired without a reset handler")
		return
	}

	log.Info("auto-reset fired")
	onReset(generation)
}

// applyIfCurrent runs fn under the lock if generation is still current.
func (that *Scheduler) applyIfCurrent(generation uint64, kind string, fn func()) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped || that.generation != generation {
		that.logger.Debug("skipping stale effect", "kind", kind, "generation", generation, "current", that.generation)
		that.metrics.IncStaleEffect(kind)
		return false
	}

	fn()

	return true
}

// sleep waits for d on the scheduler clock. It reports false if ctx ended first.
func (that *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := that.clock.NewTimer(d)

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		stopAndDrainTimer(timer)
		return false
	}
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func (that *Scheduler) setSteady(mark entity.Mark) {
	that.set(mark, true)
	that.set(mark.Opponent(), false)
}

func (that *Scheduler) setAll(on bool) {
	that.set(entity.PlayerX, on)
	that.set(entity.PlayerO, on)
}

func (that *Scheduler) set(mark entity.Mark, on bool) {
	if err := that.output.Set(mark, on); err != nil {
		that.logger.Error("failed to set indicator", "mark", mark, "on", on, "error", err)
	}
}
