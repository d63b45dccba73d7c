package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	// Server
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// LogFile enables a rotating file sink alongside stdout when set.
	LogFile string `env:"LOG_FILE"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	// Realtime broker
	HistorySize       int           `env:"HISTORY_SIZE" envDefault:"50"`
	SendBuffer        int           `env:"SEND_BUFFER" envDefault:"64"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`

	// Rate limiting
	RateCleanupInterval time.Duration `env:"RATE_CLEANUP_INTERVAL" envDefault:"5m"`
	// Per-IP token bucket guarding stream/ws connection attempts.
	ConnectRatePerSecond int `env:"CONNECT_RATE_PER_SECOND" envDefault:"5"`
	ConnectBurst         int `env:"CONNECT_BURST" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
