// Command buttontest prints every debounced button press with its cell and pin.
// It reads the same config.yml as the board controller.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-board/internal/config"
	"github.com/rocketscienceinc/tictactoe-board/internal/gpio"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("button test failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	baseDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	conf, err := config.Load(filepath.Join(baseDir, "config.yml"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	board, err := gpio.OpenBoard(logger, conf.GPIO.ButtonPins, conf.GPIO.IndicatorPins.Marks())
	if err != nil {
		return fmt.Errorf("failed to open board: %w", err)
	}

	defer func() {
		if err = board.Close(); err != nil {
			logger.Error("failed to release board", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := gpio.NewPoller(logger, clockwork.NewRealClock(), board, conf.GPIO.PollInterval, conf.GPIO.Debounce, func(event gpio.PressEvent) {
		fmt.Printf("%s  cell %d  pin %s\n", event.At.Format("15:04:05.000"), event.Position, board.PinName(event.Position))
	})

	fmt.Println("press buttons, Ctrl+C to quit")

	return poller.Run(ctx)
}
