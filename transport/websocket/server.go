package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
	"github.com/rocketscienceinc/tictactoe-board/internal/usecase"
)

const (
	writeTimeout   = 10 * time.Second
	readTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 64
	shutdownGrace  = 5 * time.Second
)

type coordinator interface {
	Submit(ctx context.Context, attempt entity.MoveAttempt) error
	SubmitReset(ctx context.Context)
	Attach(subscriber usecase.Subscriber)
	State() entity.GameState
}

type subscriberMetrics interface {
	IncSubscribers()
	DecSubscribers()
}

type handlerFunc func(ctx context.Context, conn *connection, message *Message) error

// Server accepts subscribers on /ws, routes their commands to the coordinator
// and fans broadcast events out to every open connection.
type Server struct {
	logger      *slog.Logger
	coordinator coordinator
	metrics     subscriberMetrics
	upgrader    websocket.Upgrader

	connectionsMutex sync.RWMutex
	connections      map[*connection]struct{}

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, coordinator coordinator, metrics subscriberMetrics) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: coordinator,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		connections: make(map[*connection]struct{}),
		handlers:    make(map[string]handlerFunc),
	}

	server.handlers[ActionRequestState] = server.handleRequestState
	server.handlers[ActionResetGame] = server.handleResetGame
	server.handlers[ActionMakeMove] = server.handleMakeMove

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.upgradeToWebSocket)

	return mux
}

// Start serves websocket subscribers on port until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down server", "error", err)
		}
		that.closeAll()
	}()

	log.Info("websocket server listening", "port", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Publish queues event on every open connection. A connection whose buffer is
// full is dropped; the others are unaffected.
func (that *Server) Publish(_ context.Context, event entity.Event) error {
	log := that.logger.With("method", "Publish", "action", event.Action)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	that.connectionsMutex.RLock()
	targets := make([]*connection, 0, len(that.connections))
	for conn := range that.connections {
		targets = append(targets, conn)
	}
	that.connectionsMutex.RUnlock()

	for _, conn := range targets {
		if !conn.enqueue(data) {
			log.Warn("subscriber too slow, dropping connection", "connection", conn.id)
			that.unregister(conn)
		}
	}

	log.Debug("event broadcast", "subscribers", len(targets))

	return nil
}

func (that *Server) upgradeToWebSocket(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := &connection{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		server: that,
	}

	that.register(conn)

	go conn.writePump()

	that.coordinator.Attach(conn)

	log.Info("subscriber connected", "connection", conn.id)

	go conn.readPump()
}

func (that *Server) register(conn *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.connections[conn] = struct{}{}
	that.metrics.IncSubscribers()
}

// unregister is safe to call more than once per connection.
func (that *Server) unregister(conn *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if _, ok := that.connections[conn]; !ok {
		return
	}

	delete(that.connections, conn)
	close(conn.send)
	that.metrics.DecSubscribers()

	that.logger.Info("subscriber disconnected", "connection", conn.id)
}

func (that *Server) closeAll() {
	that.connectionsMutex.RLock()
	targets := make([]*connection, 0, len(that.connections))
	for conn := range that.connections {
		targets = append(targets, conn)
	}
	that.connectionsMutex.RUnlock()

	for _, conn := range targets {
		that.unregister(conn)
	}
}

func (that *Server) dispatch(ctx context.Context, conn *connection, data []byte) {
	log := that.logger.With("method", "dispatch", "connection", conn.id)

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Warn("failed to unmarshal message", "error", err)
		that.sendError(ctx, conn, "malformed message")
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action", "action", message.Action)
		that.sendError(ctx, conn, fmt.Sprintf("unknown action %q", message.Action))
		return
	}

	if err := handler(ctx, conn, &message); err != nil {
		log.Error("failed to handle message", "action", message.Action, "error", err)
	}
}

func (that *Server) sendError(ctx context.Context, conn *connection, text string) {
	event := entity.Event{Action: entity.EventError, Payload: entity.ErrorNotice{Error: text}}
	if err := conn.Send(ctx, event); err != nil {
		that.logger.Warn("failed to send error", "connection", conn.id, "error", err)
	}
}
