// Package suite runs integration tests for the board's redis mirror against
// a disposable redis container.
package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	containerTTL = 120
	startupLimit = 120 * time.Second
	redisPort    = "6379/tcp"
)

// Option tweaks the container the suite starts.
type Option func(*options)

type options struct {
	repository string
	tag        string
}

// WithImage overrides the redis image, e.g. to pin a version a board ships with.
func WithImage(repository, tag string) Option {
	return func(o *options) {
		o.repository = repository
		o.tag = tag
	}
}

// Suite is a redis client bound to one test. Keys and channels made with
// Key are scoped to the test name.
type Suite struct {
	*testing.T
	Ctx     context.Context
	Logger  *slog.Logger
	Storage *redis.Client
}

// New starts a redis container, waits for it to answer PING and flushes it.
// Everything is torn down with the test. Skipped under -short.
func New(t *testing.T, opts ...Option) (context.Context, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("redis mirror tests need docker")
	}

	cfg := options{repository: "redis", tag: "alpine"}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupLimit)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	pool, resource := startContainer(t, cfg)
	addr := resource.GetHostPort(redisPort)

	client, err := connect(ctx, pool, addr)
	if err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("redis at %s never became ready: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.Close()

		if err := pool.Purge(resource); err != nil {
			t.Errorf("could not remove redis container: %v", err)
		}
	})

	logger.Debug("redis mirror target ready", "addr", addr, "image", cfg.repository+":"+cfg.tag)

	return ctx, &Suite{
		T:       t,
		Ctx:     ctx,
		Logger:  logger,
		Storage: client,
	}
}

func startContainer(t *testing.T, cfg options) (*dockertest.Pool, *dockertest.Resource) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("docker is unavailable: %v", err)
	}
	pool.MaxWait = startupLimit

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: cfg.repository,
		Tag:        cfg.tag,
	}, func(host *docker.HostConfig) {
		host.AutoRemove = true
		host.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start %s:%s: %v", cfg.repository, cfg.tag, err)
	}

	// hard kill if the test binary dies before cleanup
	_ = resource.Expire(containerTTL)

	return pool, resource
}

func connect(ctx context.Context, pool *dockertest.Pool, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := pool.Retry(func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// Key namespaces name under the running test, so subtests never share keys.
func (that *Suite) Key(name string) string {
	return "test:" + that.Name() + ":" + name
}

// Subscribe listens on channel and returns once redis has confirmed the
// subscription, so nothing published afterwards is missed.
func (that *Suite) Subscribe(t testing.TB, channel string) <-chan *redis.Message {
	t.Helper()

	sub := that.Storage.Subscribe(that.Ctx, channel)
	t.Cleanup(func() { _ = sub.Close() })

	if _, err := sub.Receive(that.Ctx); err != nil {
		t.Fatalf("could not subscribe to %s: %v", channel, err)
	}

	return sub.Channel()
}

// NextMessage waits up to wait for a message on messages.
func NextMessage(t testing.TB, messages <-chan *redis.Message, wait time.Duration) *redis.Message {
	t.Helper()

	select {
	case msg := <-messages:
		return msg
	case <-time.After(wait):
		t.Fatalf("no message within %s", wait)
		return nil
	}
}
