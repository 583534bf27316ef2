package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

type stateSource interface {
	State() entity.GameState
}

type stateHandler struct {
	logger *slog.Logger
	source stateSource
}

// ServeHTTP writes the current game state in the same shape as game_state events.
func (that *stateHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(that.source.State()); err != nil {
		that.logger.Error("failed to encode game state", "error", err)
	}
}
