package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

var ErrSendBufferFull = errors.New("send buffer full")

type connection struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	server *Server
}

// Send queues event for this connection only.
func (that *connection) Send(_ context.Context, event entity.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if !that.enqueue(data) {
		return ErrSendBufferFull
	}

	return nil
}

// enqueue never blocks. It reports false when the buffer is full or the
// connection is already closed.
func (that *connection) enqueue(data []byte) (sent bool) {
	that.server.connectionsMutex.RLock()
	defer that.server.connectionsMutex.RUnlock()

	if _, open := that.server.connections[that]; !open {
		return false
	}

	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

func (that *connection) writePump() {
	log := that.server.logger.With("method", "writePump", "connection", that.id)

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = that.ws.Close()
		that.server.unregister(that)
	}()

	for {
		select {
		case data, ok := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = that.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := that.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (that *connection) readPump() {
	log := that.server.logger.With("method", "readPump", "connection", that.id)

	defer func() {
		that.server.unregister(that)
		_ = that.ws.Close()
	}()

	that.ws.SetReadLimit(maxMessageSize)
	_ = that.ws.SetReadDeadline(time.Now().Add(readTimeout))
	that.ws.SetPongHandler(func(string) error {
		return that.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := that.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("unexpected close", "error", err)
			}
			return
		}

		that.server.dispatch(context.Background(), that, data)
		_ = that.ws.SetReadDeadline(time.Now().Add(readTimeout))
	}
}
