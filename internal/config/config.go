package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	Server   ServerConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Extract  ExtractConfig
	Relay    RelayConfig
	Queue    QueueConfig
	RabbitMQ RabbitMQConfig
	Warmer   WarmerConfig
}

// Production reports whether diagnostic detail must be suppressed in error
// responses.
func (c Config) Production() bool {
	return c.Env == "production"
}

type ServerConfig struct {
	Port              int           `envconfig:"API_PORT" default:"8080"`
	ReadHeaderTimeout time.Duration `envconfig:"API_READ_HEADER_TIMEOUT" default:"10s"`
	ShutdownTimeout   time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type CacheConfig struct {
	// Backend selects "memory" (default) or "redis".
	Backend string `envconfig:"CACHE_BACKEND" default:"memory"`

	// StreamTTL bounds how long a resolved media URL is reused. Upstream
	// URLs are themselves time-limited, so this must stay well under their
	// expiry window.
	StreamTTL time.Duration `envconfig:"CACHE_STREAM_TTL" default:"3h"`

	// InfoTTL bounds metadata reuse; metadata changes far less often.
	InfoTTL time.Duration `envconfig:"CACHE_INFO_TTL" default:"12h"`

	// MaxEntries bounds each memory cache; identifiers are client-controlled
	// so the caches must not grow without limit.
	MaxEntries int `envconfig:"CACHE_MAX_ENTRIES" default:"1024"`

	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"10m"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type ExtractConfig struct {
	Path          string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	StreamTimeout time.Duration `envconfig:"YTDLP_STREAM_TIMEOUT" default:"10s"`
	InfoTimeout   time.Duration `envconfig:"YTDLP_INFO_TIMEOUT" default:"45s"`
	SearchTimeout time.Duration `envconfig:"YTDLP_SEARCH_TIMEOUT" default:"20s"`
}

type RelayConfig struct {
	HeaderTimeout time.Duration `envconfig:"RELAY_HEADER_TIMEOUT" default:"15s"`
}

type QueueConfig struct {
	// Enabled routes HEAD-triggered warms through RabbitMQ to a warmer
	// process. Requires the redis cache backend so processes share state.
	Enabled bool `envconfig:"QUEUE_ENABLED" default:"false"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"audiorelay"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"audiorelay"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type WarmerConfig struct {
	MaxRetries      int           `envconfig:"WARMER_MAX_RETRIES" default:"2"`
	ShutdownTimeout time.Duration `envconfig:"WARMER_SHUTDOWN_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
