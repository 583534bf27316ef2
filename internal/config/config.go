package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

var (
	ErrButtonCount     = errors.New("gpio button-pins must name one pin per cell")
	ErrInvalidInterval = errors.New("durations must be positive")
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"5000"`
	Redis      Redis  `yaml:"redis"`
	GPIO       GPIO   `yaml:"gpio"`
	Timing     Timing `yaml:"timing"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Channel  string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"tictactoe:events"`
	StateKey string `yaml:"state-key" env:"REDIS_STATE_KEY" env-default:"tictactoe:state"`

	PublishTimeout time.Duration `yaml:"publish-timeout" env:"REDIS_PUBLISH_TIMEOUT" env-default:"500ms"`
}

type GPIO struct {
	Disabled      bool          `yaml:"disabled" env:"GPIO_DISABLED" env-default:"false"`
	ButtonPins    []string      `yaml:"button-pins" env:"GPIO_BUTTON_PINS" env-separator:"," env-default:"GPIO17,GPIO27,GPIO4,GPIO23,GPIO24,GPIO25,GPIO12,GPIO6,GPIO13"`
	IndicatorPins IndicatorPins `yaml:"indicator-pins"`
	PollInterval  time.Duration `yaml:"poll-interval" env:"GPIO_POLL_INTERVAL" env-default:"10ms"`
	Debounce      time.Duration `yaml:"debounce" env:"GPIO_DEBOUNCE" env-default:"200ms"`
}

type IndicatorPins struct {
	X string `yaml:"x" env:"GPIO_INDICATOR_X" env-default:"GPIO16"`
	O string `yaml:"o" env:"GPIO_INDICATOR_O" env-default:"GPIO20"`
}

type Timing struct {
	FlashDelay  time.Duration `yaml:"flash-delay" env:"FLASH_DELAY" env-default:"500ms"`
	FlashCount  int           `yaml:"flash-count" env:"FLASH_COUNT" env-default:"5"`
	FlashPeriod time.Duration `yaml:"flash-period" env:"FLASH_PERIOD" env-default:"200ms"`
	ResetDelay  time.Duration `yaml:"reset-delay" env:"RESET_DELAY" env-default:"3s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (that *Config) Validate() error {
	if len(that.GPIO.ButtonPins) != entity.BoardSize {
		return fmt.Errorf("%w: got %d, want %d", ErrButtonCount, len(that.GPIO.ButtonPins), entity.BoardSize)
	}

	if that.GPIO.PollInterval <= 0 || that.GPIO.Debounce <= 0 || that.Timing.FlashPeriod <= 0 || that.Redis.PublishTimeout <= 0 {
		return ErrInvalidInterval
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// Marks maps each mark to its indicator pin name.
func (that *IndicatorPins) Marks() map[entity.Mark]string {
	return map[entity.Mark]string{
		entity.PlayerX: that.X,
		entity.PlayerO: that.O,
	}
}
