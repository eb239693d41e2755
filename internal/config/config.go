// Package config loads runtime settings from the environment, optionally
// seeded from .env.local or .env files.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"3000"`
	GinMode        string   `env:"GIN_MODE" envDefault:"release"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	UploadDir      string   `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadSize  int64    `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	MaxDiceCount int `env:"MAX_DICE_COUNT" envDefault:"100"`
	MaxDiceSides int `env:"MAX_DICE_SIDES" envDefault:"1000"`
	MaxDiceMod   int `env:"MAX_DICE_MODIFIER" envDefault:"1000"`

	AuditStream       string `env:"AUDIT_STREAM" envDefault:"tabletop:audit"`
	AuditStreamMaxLen int64  `env:"AUDIT_STREAM_MAXLEN" envDefault:"100000"`
	AuditBuffer       int    `env:"AUDIT_BUFFER" envDefault:"256"`
}

// Load reads .env.local, then .env, then the process environment. Values
// already present in the environment win over the files.
func Load() (Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is empty")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "*")
	}
	c.AllowedOrigins = origins
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
