package redis_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
	"github.com/rocketscienceinc/tictactoe-board/transport/redis"
)

// silentServer accepts connections and never answers, like a hung Redis.
func silentServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		_ = listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})

	return listener.Addr().String()
}

func TestPublisher_Timeout(t *testing.T) {
	t.Run("Hung server fails the publish within the timeout", func(t *testing.T) {
		// Given: a client pointed at a server that never replies
		client := goredis.NewClient(&goredis.Options{Addr: silentServer(t)})
		t.Cleanup(func() { _ = client.Close() })
		publisher := redis.New(client, "events", "state", 50*time.Millisecond)

		// When: an event is published
		started := time.Now()
		err := publisher.Publish(context.Background(), entity.Event{Action: entity.EventGameReset, Payload: entity.GameState{}})

		// Then: it fails fast instead of hanging on the network
		require.Error(t, err)
		assert.Less(t, time.Since(started), time.Second)
	})
}
