package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-board/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-board/internal/config"
	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
	"github.com/rocketscienceinc/tictactoe-board/internal/gpio"
	"github.com/rocketscienceinc/tictactoe-board/internal/indicator"
	"github.com/rocketscienceinc/tictactoe-board/internal/monitor"
	"github.com/rocketscienceinc/tictactoe-board/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-board/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-board/transport/redis"
	"github.com/rocketscienceinc/tictactoe-board/transport/rest"
	"github.com/rocketscienceinc/tictactoe-board/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// hardware is what the board offers the core: buttons to read and indicators to drive.
type hardware struct {
	buttons gpio.ButtonReader
	output  indicator.Output
	close   func() error
}

// shutdown stops the goroutines that touch the board before the board is released.
type shutdown struct {
	logger    *slog.Logger
	cancel    context.CancelFunc
	workers   *sync.WaitGroup
	scheduler interface {
		Stop()
		AllOff()
	}
	release func() error
	once    sync.Once
}

// run is safe to call more than once; only the first call does the work.
func (that *shutdown) run() {
	that.once.Do(func() {
		log := that.logger.With("method", "shutdown")

		that.cancel()
		that.workers.Wait()

		that.scheduler.Stop()
		that.scheduler.AllOff()

		if err := that.release(); err != nil {
			log.Error("could not release hardware", "error", err)
		}
	})
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	clock := clockwork.NewRealClock()
	metrics := monitor.NewMetrics()
	hw := openHardware(logger, conf)

	timing := indicator.Timing{
		FlashDelay:  conf.Timing.FlashDelay,
		FlashCount:  conf.Timing.FlashCount,
		FlashPeriod: conf.Timing.FlashPeriod,
		ResetDelay:  conf.Timing.ResetDelay,
	}
	scheduler := indicator.NewScheduler(logger, clock, hw.output, timing, metrics)

	var workers sync.WaitGroup
	teardown := &shutdown{
		logger:    log,
		cancel:    cancel,
		workers:   &workers,
		scheduler: scheduler,
		release:   hw.close,
	}
	defer teardown.run()

	fanout := broadcast.NewFanout(logger)
	coordinator := usecase.NewCoordinator(logger, tictactoe.NewGameController(), scheduler, fanout, metrics)
	scheduler.SetResetHandler(coordinator.ResetIfCurrent)

	wsServer := websocket.New(logger, coordinator, metrics)
	fanout.Add(wsServer)

	if conf.Redis.Enabled {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		redisClient, err := redis.Connect(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis: %w", err)
		}

		defer func() {
			teardown.run()

			if err = redisClient.Close(); err != nil {
				log.Error("could not close redis client", "error", err)
			}
		}()

		fanout.Add(redis.New(redisClient, conf.Redis.Channel, conf.Redis.StateKey, conf.Redis.PublishTimeout))
		log.Info("Mirroring events to redis", "addr", redisAddrString, "channel", conf.Redis.Channel)
	}

	coordinator.Start()

	poller := gpio.NewPoller(logger, clock, hw.buttons, conf.GPIO.PollInterval, conf.GPIO.Debounce, func(event gpio.PressEvent) {
		metrics.IncPress()

		attempt := entity.MoveAttempt{Position: event.Position, Source: entity.SourceHardware}
		if err := coordinator.Submit(ctx, attempt); err != nil {
			log.Error("hardware press rejected", "position", event.Position, "error", err)
		}
	})

	workers.Add(2)
	go func() {
		defer workers.Done()
		if err := coordinator.Run(ctx); err != nil {
			log.Error("event delivery stopped", "error", err)
		}
	}()
	go func() {
		defer workers.Done()
		if err := poller.Run(ctx); err != nil {
			log.Error("button polling stopped", "error", err)
		}
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		handler := rest.NewHandler(logger, coordinator, metrics.Handler())
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, handler); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// openHardware returns the GPIO board, or a logging stand-in when GPIO is
// disabled or cannot be opened.
func openHardware(logger *slog.Logger, conf *config.Config) hardware {
	log := logger.With("component", "app", "method", "openHardware")

	fallback := hardware{
		buttons: gpio.NewIdleButtons(len(conf.GPIO.ButtonPins)),
		output:  indicator.NewLoggingOutput(logger),
		close:   func() error { return nil },
	}

	if conf.GPIO.Disabled {
		log.Info("GPIO disabled, running without hardware")
		return fallback
	}

	board, err := gpio.OpenBoard(logger, conf.GPIO.ButtonPins, conf.GPIO.IndicatorPins.Marks())
	if err != nil {
		log.Warn("GPIO unavailable, running without hardware", "error", err)
		return fallback
	}

	return hardware{
		buttons: board,
		output:  board,
		close:   board.Close,
	}
}
