package gpio

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

var (
	ErrPinNotFound    = errors.New("gpio pin not found")
	ErrUnknownChannel = errors.New("unknown indicator channel")
)

// Board is the GPIO-backed button matrix and indicator pair. Buttons are wired
// to ground with pull-ups, so a held button reads low.
type Board struct {
	logger     *slog.Logger
	buttons    []gpio.PinIO
	indicators map[entity.Mark]gpio.PinIO
}

// OpenBoard initializes the host drivers and claims every configured pin.
func OpenBoard(logger *slog.Logger, buttonPins []string, indicatorPins map[entity.Mark]string) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gpio host: %w", err)
	}

	board := &Board{
		logger:     logger.With("component", "gpio-board"),
		buttons:    make([]gpio.PinIO, 0, len(buttonPins)),
		indicators: make(map[entity.Mark]gpio.PinIO, len(indicatorPins)),
	}

	for position, name := range buttonPins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: %s (position %d)", ErrPinNotFound, name, position)
		}

		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure button %s: %w", name, err)
		}

		board.buttons = append(board.buttons, pin)
	}

	for mark, name := range indicatorPins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: %s (indicator %s)", ErrPinNotFound, name, mark)
		}

		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("failed to configure indicator %s: %w", name, err)
		}

		board.indicators[mark] = pin
	}

	board.logger.Info("gpio board initialized", "buttons", len(board.buttons), "indicators", len(board.indicators))

	return board, nil
}

func (that *Board) Positions() int {
	return len(that.buttons)
}

func (that *Board) Active(position int) (bool, error) {
	return that.buttons[position].Read() == gpio.Low, nil
}

// PinName returns the pin wired to position.
func (that *Board) PinName(position int) string {
	return that.buttons[position].Name()
}

func (that *Board) Set(mark entity.Mark, on bool) error {
	pin, ok := that.indicators[mark]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, mark)
	}

	level := gpio.Low
	if on {
		level = gpio.High
	}

	if err := pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive indicator %s: %w", pin.Name(), err)
	}

	return nil
}

// Close drives the indicators low and releases every pin.
func (that *Board) Close() error {
	var errs []error

	for mark, pin := range that.indicators {
		if err := pin.Out(gpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("failed to switch off indicator %s: %w", mark, err))
		}

		if err := pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release indicator %s: %w", mark, err))
		}
	}

	for _, pin := range that.buttons {
		if err := pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release button %s: %w", pin.Name(), err))
		}
	}

	that.logger.Info("gpio board released")

	return errors.Join(errs...)
}

// IdleButtons never reports a press. It stands in for the board on machines
// without GPIO so the network side keeps working.
type IdleButtons struct {
	positions int
}

func NewIdleButtons(positions int) *IdleButtons {
	return &IdleButtons{positions: positions}
}

func (that *IdleButtons) Positions() int {
	return that.positions
}

func (that *IdleButtons) Active(int) (bool, error) {
	return false, nil
}
