package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

type Publisher interface {
	Publish(ctx context.Context, event entity.Event) error
}

// Fanout hands every event to each publisher in turn. A failing publisher is
// logged and skipped; the rest still receive the event.
type Fanout struct {
	logger     *slog.Logger
	publishers []Publisher
}

func NewFanout(logger *slog.Logger, publishers ...Publisher) *Fanout {
	return &Fanout{
		logger:     logger.With("component", "broadcast"),
		publishers: publishers,
	}
}

// Add registers another publisher. Not safe to call once publishing started.
func (that *Fanout) Add(publisher Publisher) {
	that.publishers = append(that.publishers, publisher)
}

func (that *Fanout) Publish(ctx context.Context, event entity.Event) error {
	log := that.logger.With("method", "Publish", "action", event.Action)

	var errs []error
	for i, publisher := range that.publishers {
		if err := publisher.Publish(ctx, event); err != nil {
			log.Error("failed to publish event", "publisher", i, "error", err)
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
