package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults fill an empty file", func(t *testing.T) {
		// Given: a config file with only the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: it is loaded
		config, err := Load(path)

		// Then: the board defaults apply
		require.NoError(t, err)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, "9090", config.HTTPPort)
		assert.Equal(t, "5000", config.SocketPort)
		assert.False(t, config.Redis.Enabled)
		assert.Equal(t, "localhost:6379", config.Redis.GetRedisAddr())
		assert.Equal(t, 500*time.Millisecond, config.Redis.PublishTimeout)
		assert.Len(t, config.GPIO.ButtonPins, entity.BoardSize)
		assert.Equal(t, "GPIO17", config.GPIO.ButtonPins[0])
		assert.Equal(t, map[entity.Mark]string{entity.PlayerX: "GPIO16", entity.PlayerO: "GPIO20"}, config.GPIO.IndicatorPins.Marks())
		assert.Equal(t, 10*time.Millisecond, config.GPIO.PollInterval)
		assert.Equal(t, 200*time.Millisecond, config.GPIO.Debounce)
		assert.Equal(t, 5, config.Timing.FlashCount)
		assert.Equal(t, 3*time.Second, config.Timing.ResetDelay)
	})

	t.Run("File values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
redis:
  enabled: true
  host: redis
timing:
  reset-delay: 5s
`)

		config, err := Load(path)

		require.NoError(t, err)
		assert.True(t, config.Redis.Enabled)
		assert.Equal(t, "redis:6379", config.Redis.GetRedisAddr())
		assert.Equal(t, 5*time.Second, config.Timing.ResetDelay)
	})

	t.Run("Wrong number of buttons is rejected", func(t *testing.T) {
		// Given: only three button pins
		path := writeConfig(t, `
gpio:
  button-pins: [GPIO17, GPIO27, GPIO4]
`)

		// When: it is loaded
		_, err := Load(path)

		// Then: validation fails
		require.ErrorIs(t, err, ErrButtonCount)
	})

	t.Run("MustLoad panics on a missing file", func(t *testing.T) {
		assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yml")) })
	})
}
