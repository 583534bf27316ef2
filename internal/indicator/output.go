package indicator

import (
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

// Output drives the two mark-indexed indicator channels.
type Output interface {
	Set(mark entity.Mark, on bool) error
}

// LoggingOutput stands in for the indicator hardware when none is available.
type LoggingOutput struct {
	logger *slog.Logger
}

func NewLoggingOutput(logger *slog.Logger) *LoggingOutput {
	return &LoggingOutput{
		logger: logger.With("component", "indicator-output"),
	}
}

func (that *LoggingOutput) Set(mark entity.Mark, on bool) error {
	that.logger.Debug("indicator changed", "mark", mark, "on", on)
	return nil
}
