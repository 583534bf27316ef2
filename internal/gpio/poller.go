package gpio

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// ButtonReader reports whether the button at a position is currently held.
type ButtonReader interface {
	Positions() int
	Active(position int) (bool, error)
}

type PressHandler func(event PressEvent)

// Poller samples every button on a fixed interval and passes debounced presses
// to the handler, one at a time, on its own goroutine.
type Poller struct {
	logger    *slog.Logger
	clock     clockwork.Clock
	reader    ButtonReader
	debouncer *Debouncer
	interval  time.Duration
	handler   PressHandler

	failing []bool
}

func NewPoller(logger *slog.Logger, clock clockwork.Clock, reader ButtonReader, interval, debounce time.Duration, handler PressHandler) *Poller {
	positions := reader.Positions()

	return &Poller{
		logger:    logger.With("component", "button-poller"),
		clock:     clock,
		reader:    reader,
		debouncer: NewDebouncer(positions, debounce),
		interval:  interval,
		handler:   handler,
		failing:   make([]bool, positions),
	}
}

// Run samples until ctx is done.
func (that *Poller) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	ticker := that.clock.NewTicker(that.interval)
	defer ticker.Stop()

	log.Info("button polling started", "interval", that.interval, "positions", that.debouncer.Positions())

	for {
		select {
		case <-ctx.Done():
			log.Info("button polling stopped")
			return nil
		case <-ticker.Chan():
			that.sample()
		}
	}
}

func (that *Poller) sample() {
	now := that.clock.Now()

	for position := range that.debouncer.Positions() {
		active, err := that.reader.Active(position)
		if err != nil {
			// logged once until the pin reads again
			if !that.failing[position] {
				that.logger.Error("failed to read button", "position", position, "error", err)
				that.failing[position] = true
			}
			continue
		}
		that.failing[position] = false

		if event, ok := that.debouncer.Poll(position, active, now); ok {
			that.logger.Debug("button pressed", "position", position)
			that.handler(event)
		}
	}
}
