package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-board/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

func (that *Server) handleRequestState(ctx context.Context, conn *connection, _ *Message) error {
	event := entity.Event{Action: entity.EventGameState, Payload: that.coordinator.State()}
	if err := conn.Send(ctx, event); err != nil {
		return fmt.Errorf("failed to send game state: %w", err)
	}

	return nil
}

func (that *Server) handleResetGame(ctx context.Context, _ *connection, _ *Message) error {
	that.coordinator.SubmitReset(ctx)

	return nil
}

func (that *Server) handleMakeMove(ctx context.Context, conn *connection, message *Message) error {
	log := that.logger.With("method", "handleMakeMove", "connection", conn.id)

	var payload MovePayload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			that.sendError(ctx, conn, "malformed move payload")
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	if payload.Position == nil {
		log.Warn("position is missing in payload")
		that.sendError(ctx, conn, "position is required")
		return nil
	}

	attempt := entity.MoveAttempt{Position: *payload.Position, Source: entity.SourceNetwork}
	if err := that.coordinator.Submit(ctx, attempt); err != nil {
		if errors.Is(err, apperror.ErrOutOfRange) {
			that.sendError(ctx, conn, err.Error())
			return nil
		}

		return fmt.Errorf("failed to submit move: %w", err)
	}

	return nil
}
