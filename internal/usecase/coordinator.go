package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-board/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
	"github.com/rocketscienceinc/tictactoe-board/internal/tictactoe"
)

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

type indicatorScheduler interface {
	OnMoveResult(result entity.MoveResult, generation uint64)
	OnReset(generation uint64)
}

type publisher interface {
	Publish(ctx context.Context, event entity.Event) error
}

// Subscriber receives events addressed to it alone.
type Subscriber interface {
	Send(ctx context.Context, event entity.Event) error
}

type coordinatorMetrics interface {
	IncMoveAccepted(source string)
	IncMoveRejected(reason string)
	IncReset(trigger string)
}

type noopMetrics struct{}

func (noopMetrics) IncMoveAccepted(string) {}
func (noopMetrics) IncMoveRejected(string) {}
func (noopMetrics) IncReset(string)        {}

// Coordinator is the single writer of the game. Hardware presses and network
// commands are applied one at a time. Indicator effects are scheduled inside the
// critical section; broadcasts are queued there too and sent by Run, so they go
// out in the order the game changed without making producers wait on subscribers.
type Coordinator struct {
	logger    *slog.Logger
	game      *tictactoe.GameController
	scheduler indicatorScheduler
	publisher publisher
	metrics   coordinatorMetrics
	outbox    *outbox

	mutex sync.Mutex
}

func NewCoordinator(logger *slog.Logger, game *tictactoe.GameController, scheduler indicatorScheduler, publisher publisher, metrics coordinatorMetrics) *Coordinator {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Coordinator{
		logger:    logger.With("component", "coordinator"),
		game:      game,
		scheduler: scheduler,
		publisher: publisher,
		metrics:   metrics,
		outbox:    newOutbox(),
	}
}

// Start shows the starting indicator for the current game.
func (that *Coordinator) Start() {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	that.scheduler.OnReset(that.game.Generation())
}

// Run sends queued events until ctx is done. Events still queued at that
// point are abandoned.
func (that *Coordinator) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	log.Info("broadcasting started")

	for {
		select {
		case <-ctx.Done():
			log.Info("broadcasting stopped")
			return nil
		case <-that.outbox.ready:
			for _, d := range that.outbox.take() {
				that.deliver(ctx, d)
			}
		}
	}
}

// Submit applies one move attempt. Rule violations are broadcast as invalid_move
// and not returned. Only an out-of-range position is returned, since that is a
// protocol error for the requester.
func (that *Coordinator) Submit(_ context.Context, attempt entity.MoveAttempt) error {
	log := that.logger.With("method", "Submit", "position", attempt.Position, "source", attempt.Source)

	that.mutex.Lock()
	defer that.mutex.Unlock()

	result, err := that.game.AttemptMove(attempt.Position)
	if err != nil {
		reason := rejectReason(err)
		that.metrics.IncMoveRejected(reason)

		if errors.Is(err, apperror.ErrOutOfRange) {
			log.Warn("move rejected", "error", err)
			return fmt.Errorf("failed to make move: %w", err)
		}

		log.Info("move rejected", "error", err)
		that.broadcast(entity.Event{
			Action:  entity.EventInvalidMove,
			Payload: entity.InvalidMove{Position: attempt.Position, Error: reason},
		})

		return nil
	}

	that.scheduler.OnMoveResult(result, that.game.Generation())
	that.metrics.IncMoveAccepted(string(attempt.Source))
	log.Info("move accepted", "player", result.Player, "status", result.Status)

	that.broadcast(entity.Event{Action: entity.EventMoveMade, Payload: result})

	return nil
}

// SubmitReset starts a new game unconditionally.
func (that *Coordinator) SubmitReset(_ context.Context) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	that.reset(TriggerManual)
}

// ResetIfCurrent is the auto-reset entry point for the indicator scheduler. It is
// a no-op unless generation is still the game's current generation.
func (that *Coordinator) ResetIfCurrent(generation uint64) {
	log := that.logger.With("method", "ResetIfCurrent", "generation", generation)

	that.mutex.Lock()
	defer that.mutex.Unlock()

	if current := that.game.Generation(); current != generation {
		log.Debug("skipping auto-reset for a superseded game", "current", current)
		return
	}

	that.reset(TriggerAuto)
}

// Attach queues the current state for subscriber only. It is queued behind
// every earlier broadcast, so the subscriber never sees an older board after it.
func (that *Coordinator) Attach(subscriber Subscriber) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	that.outbox.push(delivery{
		event: entity.Event{Action: entity.EventGameState, Payload: that.game.CurrentState()},
		to:    subscriber,
	})
}

func (that *Coordinator) State() entity.GameState {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	return that.game.CurrentState()
}

// reset must be called with the mutex held.
func (that *Coordinator) reset(trigger string) {
	state := that.game.Reset()
	that.scheduler.OnReset(that.game.Generation())
	that.metrics.IncReset(trigger)

	that.logger.Info("game reset", "trigger", trigger, "generation", that.game.Generation())

	that.broadcast(entity.Event{Action: entity.EventGameReset, Payload: state})
}

// broadcast must be called with the mutex held.
func (that *Coordinator) broadcast(event entity.Event) {
	that.outbox.push(delivery{event: event})
}

func (that *Coordinator) deliver(ctx context.Context, d delivery) {
	if d.to != nil {
		if err := d.to.Send(ctx, d.event); err != nil {
			that.logger.Warn("failed to send to subscriber", "action", d.event.Action, "error", err)
		}
		return
	}

	if err := that.publisher.Publish(ctx, d.event); err != nil {
		that.logger.Warn("broadcast incomplete", "action", d.event.Action, "error", err)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, apperror.ErrCellOccupied):
		return "cell_occupied"
	case errors.Is(err, apperror.ErrGameAlreadyOver):
		return "game_over"
	default:
		return "unknown"
	}
}
