// config.go — environment-variable configuration, loaded once at startup.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
	_ "github.com/joho/godotenv/autoload"
)

// Config holds every tunable named in the external interfaces section:
// host/port for the HTTP transports, stream/cache caps, and log level.
type Config struct {
	Host                 string `env:"HOST" envDefault:"0.0.0.0"`
	Port                 int    `env:"PORT" envDefault:"8080"`
	MaxConcurrentStreams int    `env:"MAX_CONCURRENT_STREAMS" envDefault:"25"`
	DefaultStreamFPS     int    `env:"DEFAULT_STREAM_FPS" envDefault:"10"`
	DefaultStreamQuality int    `env:"DEFAULT_STREAM_QUALITY" envDefault:"80"`
	MaxFrameSize         int    `env:"MAX_FRAME_SIZE" envDefault:"10485760"`
	CacheCapacity        int    `env:"CACHE_CAPACITY" envDefault:"120"`
	KeepAliveTimeout     int    `env:"KEEP_ALIVE_TIMEOUT" envDefault:"30"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	EnableSSE            bool   `env:"ENABLE_SSE" envDefault:"true"`
	EnableWS             bool   `env:"ENABLE_WS" envDefault:"true"`
}

// Load parses environment variables (after autoloading a local .env file,
// if present) into a Config, applying envDefault tags for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
