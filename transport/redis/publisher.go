package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

var ErrNoState = errors.New("no game state published yet")

// Publisher mirrors board events onto a Redis channel and keeps the latest
// game state under a key for late readers. Each Publish gives up after timeout,
// so an unreachable server delays the broadcast by at most that much.
type Publisher struct {
	client   *redis.Client
	channel  string
	stateKey string
	timeout  time.Duration
}

func New(client *redis.Client, channel, stateKey string, timeout time.Duration) *Publisher {
	return &Publisher{
		client:   client,
		channel:  channel,
		stateKey: stateKey,
		timeout:  timeout,
	}
}

func (that *Publisher) Publish(ctx context.Context, event entity.Event) error {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if state, ok := stateOf(event); ok {
		if err = that.saveState(ctx, state); err != nil {
			return err
		}
	}

	if err = that.client.Publish(ctx, that.channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish event in Redis: %w", err)
	}

	return nil
}

// LatestState returns the last mirrored game state.
func (that *Publisher) LatestState(ctx context.Context) (entity.GameState, error) {
	val, err := that.client.Get(ctx, that.stateKey).Result()
	if errors.Is(err, redis.Nil) {
		return entity.GameState{}, ErrNoState
	} else if err != nil {
		return entity.GameState{}, fmt.Errorf("failed to get game state from Redis: %w", err)
	}

	var state entity.GameState
	if err = json.Unmarshal([]byte(val), &state); err != nil {
		return entity.GameState{}, fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	return state, nil
}

func (that *Publisher) saveState(ctx context.Context, state entity.GameState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	if err = that.client.Set(ctx, that.stateKey, stateJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save game state in Redis: %w", err)
	}

	return nil
}

func stateOf(event entity.Event) (entity.GameState, bool) {
	switch payload := event.Payload.(type) {
	case entity.GameState:
		return payload, true
	case entity.MoveResult:
		return payload.State(), true
	default:
		return entity.GameState{}, false
	}
}
