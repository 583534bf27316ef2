package redis_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
	"github.com/rocketscienceinc/tictactoe-board/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-board/testing/suite"
	"github.com/rocketscienceinc/tictactoe-board/transport/redis"
)

func TestPublisher(t *testing.T) {
	ctx, st := suite.New(t)
	channel := st.Key("events")
	publisher := redis.New(st.Storage, channel, st.Key("state"), 5*time.Second)

	t.Run("No state before the first publish", func(t *testing.T) {
		_, err := publisher.LatestState(ctx)

		require.ErrorIs(t, err, redis.ErrNoState)
	})

	t.Run("Move is published on the channel and mirrored as state", func(t *testing.T) {
		// Given: a subscriber on the events channel
		messages := st.Subscribe(t, channel)

		game := tictactoe.NewGameController()
		result, err := game.AttemptMove(4)
		require.NoError(t, err)

		// When: the move is published
		err = publisher.Publish(ctx, entity.Event{Action: entity.EventMoveMade, Payload: result})
		require.NoError(t, err)

		// Then: the channel carries the event
		msg := suite.NextMessage(t, messages, 5*time.Second)
		var event struct {
			Action string `json:"action"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, entity.EventMoveMade, event.Action)

		// And: the latest state matches the game
		state, err := publisher.LatestState(ctx)
		require.NoError(t, err)
		assert.Equal(t, game.CurrentState(), state)
	})

	t.Run("Invalid move does not overwrite the state", func(t *testing.T) {
		// Given: a mirrored reset state
		fresh := tictactoe.NewGameController().CurrentState()
		require.NoError(t, publisher.Publish(ctx, entity.Event{Action: entity.EventGameReset, Payload: fresh}))

		// When: an invalid move notice is published
		err := publisher.Publish(ctx, entity.Event{Action: entity.EventInvalidMove, Payload: entity.InvalidMove{Position: 3}})
		require.NoError(t, err)

		// Then: the state is untouched
		state, err := publisher.LatestState(ctx)
		require.NoError(t, err)
		assert.Equal(t, fresh, state)
	})
}
