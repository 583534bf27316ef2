package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-board/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
	"github.com/rocketscienceinc/tictactoe-board/internal/monitor"
	"github.com/rocketscienceinc/tictactoe-board/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-board/internal/usecase"
)

const readWait = 2 * time.Second

type idleScheduler struct{}

func (idleScheduler) OnMoveResult(entity.MoveResult, uint64) {}
func (idleScheduler) OnReset(uint64)                         {}

type inbound struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type fixture struct {
	server      *Server
	coordinator *usecase.Coordinator
	metrics     *monitor.Metrics
	url         string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := monitor.NewMetrics()
	fanout := broadcast.NewFanout(logger)
	coordinator := usecase.NewCoordinator(logger, tictactoe.NewGameController(), idleScheduler{}, fanout, metrics)
	server := New(logger, coordinator, metrics)
	fanout.Add(server)

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- coordinator.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return &fixture{
		server:      server,
		coordinator: coordinator,
		metrics:     metrics,
		url:         "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws",
	}
}

// dial connects a subscriber and consumes the game_state sent on attach.
func (that *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(that.url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	first := read(t, conn)
	require.Equal(t, entity.EventGameState, first.Action)

	return conn
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readWait)))

	var message inbound
	require.NoError(t, conn.ReadJSON(&message))

	return message
}

func send(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(message)))
}

func TestServer(t *testing.T) {
	t.Run("Connect sends the current state", func(t *testing.T) {
		// Given: a game with X in the corner
		f := newFixture(t)
		require.NoError(t, f.coordinator.Submit(context.Background(), entity.MoveAttempt{Position: 0, Source: entity.SourceHardware}))

		// When: a subscriber connects
		conn, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		defer conn.Close()

		// Then: the first message is the snapshot
		message := read(t, conn)
		assert.Equal(t, entity.EventGameState, message.Action)

		var state entity.GameState
		require.NoError(t, json.Unmarshal(message.Payload, &state))
		assert.Equal(t, entity.PlayerX, state.Board[0])
		assert.Equal(t, entity.PlayerO, state.CurrentPlayer)
	})

	t.Run("request_state answers the requester only", func(t *testing.T) {
		// Given: two subscribers
		f := newFixture(t)
		requester := f.dial(t)
		other := f.dial(t)

		// When: one asks for the state
		send(t, requester, `{"action":"request_state"}`)

		// Then: it receives game_state and the other gets nothing
		assert.Equal(t, entity.EventGameState, read(t, requester).Action)

		require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		_, _, err := other.ReadMessage()
		require.Error(t, err)
	})

	t.Run("make_move is broadcast to every subscriber", func(t *testing.T) {
		// Given: two subscribers
		f := newFixture(t)
		first := f.dial(t)
		second := f.dial(t)

		// When: the first one moves to the center
		send(t, first, `{"action":"make_move","payload":{"position":4}}`)

		// Then: both see move_made
		for _, conn := range []*websocket.Conn{first, second} {
			message := read(t, conn)
			require.Equal(t, entity.EventMoveMade, message.Action)

			var result entity.MoveResult
			require.NoError(t, json.Unmarshal(message.Payload, &result))
			assert.Equal(t, 4, result.Position)
			assert.Equal(t, entity.PlayerX, result.Player)
		}
	})

	t.Run("Occupied cell is broadcast as invalid_move", func(t *testing.T) {
		// Given: the center is taken
		f := newFixture(t)
		conn := f.dial(t)
		send(t, conn, `{"action":"make_move","payload":{"position":4}}`)
		require.Equal(t, entity.EventMoveMade, read(t, conn).Action)

		// When: the center is played again
		send(t, conn, `{"action":"make_move","payload":{"position":4}}`)

		// Then: invalid_move carries the position
		message := read(t, conn)
		require.Equal(t, entity.EventInvalidMove, message.Action)
		assert.JSONEq(t, `{"position":4,"error":"cell_occupied"}`, string(message.Payload))
	})

	t.Run("Out-of-range move is an error for the requester only", func(t *testing.T) {
		// Given: two subscribers
		f := newFixture(t)
		requester := f.dial(t)
		other := f.dial(t)

		// When: a move to position 12 arrives
		send(t, requester, `{"action":"make_move","payload":{"position":12}}`)

		// Then: the requester gets an error and the other subscriber nothing
		assert.Equal(t, entity.EventError, read(t, requester).Action)

		require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		_, _, err := other.ReadMessage()
		require.Error(t, err)
	})

	t.Run("reset_game broadcasts the fresh state", func(t *testing.T) {
		// Given: a subscriber and a move on the board
		f := newFixture(t)
		conn := f.dial(t)
		send(t, conn, `{"action":"make_move","payload":{"position":0}}`)
		require.Equal(t, entity.EventMoveMade, read(t, conn).Action)

		// When: the subscriber resets
		send(t, conn, `{"action":"reset_game"}`)

		// Then: game_reset carries an empty board with X to move
		message := read(t, conn)
		require.Equal(t, entity.EventGameReset, message.Action)

		var state entity.GameState
		require.NoError(t, json.Unmarshal(message.Payload, &state))
		assert.Equal(t, tictactoe.NewGameController().CurrentState(), state)
	})

	t.Run("Unknown action and malformed payload are answered with error", func(t *testing.T) {
		f := newFixture(t)
		conn := f.dial(t)

		send(t, conn, `{"action":"fly"}`)
		assert.Equal(t, entity.EventError, read(t, conn).Action)

		send(t, conn, `not json`)
		assert.Equal(t, entity.EventError, read(t, conn).Action)

		send(t, conn, `{"action":"make_move","payload":{}}`)
		assert.Equal(t, entity.EventError, read(t, conn).Action)
	})

	t.Run("Subscribers gauge follows connections", func(t *testing.T) {
		// Given: one connected subscriber
		f := newFixture(t)
		conn := f.dial(t)
		require.True(t, f.scrapeContains(t, "tictactoe_board_subscribers 1"))

		// When: it disconnects
		require.NoError(t, conn.Close())

		// Then: the gauge drops back to zero
		assert.Eventually(t, func() bool {
			return f.scrapeContains(t, "tictactoe_board_subscribers 0")
		}, readWait, 10*time.Millisecond)
	})
}

func (that *fixture) scrapeContains(t *testing.T, line string) bool {
	t.Helper()

	rec := httptest.NewRecorder()
	that.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	return strings.Contains(rec.Body.String(), line)
}
