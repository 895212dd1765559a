// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Role       string `env:"TABLESYNC_ROLE"        envDefault:"host"`
	ListenAddr string `env:"TABLESYNC_LISTEN_ADDR" envDefault:":8080"`
	HostURL    string `env:"TABLESYNC_HOST_URL"`
	LogLevel   string `env:"LOG_LEVEL"             envDefault:"info"`

	ScryfallBaseURL    string        `env:"SCRYFALL_BASE_URL"    envDefault:"https://api.scryfall.com"`
	CatalogFetchDelay  time.Duration `env:"CATALOG_FETCH_DELAY"  envDefault:"100ms"`
	CatalogHTTPTimeout time.Duration `env:"CATALOG_HTTP_TIMEOUT" envDefault:"10s"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisDB            int           `env:"REDIS_DB"             envDefault:"0"`
	CachePrefix        string        `env:"CATALOG_CACHE_PREFIX" envDefault:"tablesync:card:"`
	DatabaseURL        string        `env:"DATABASE_URL"`

	CardIdentity     string        `env:"CARD_IDENTITY"      envDefault:"name"`
	StartingLife     int           `env:"STARTING_LIFE"      envDefault:"40"`
	SessionQueueSize int           `env:"SESSION_QUEUE_SIZE" envDefault:"256"`
	PeerSendBuffer   int           `env:"PEER_SEND_BUFFER"   envDefault:"256"`
	PeerWriteTimeout time.Duration `env:"PEER_WRITE_TIMEOUT" envDefault:"5s"`
}

// Parse reads the environment without validating, so callers can apply overrides first.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. It is called again after flags override fields.
func (c Config) Validate() error {
	var errs []error
	switch c.Role {
	case "host":
	case "client":
		if c.HostURL == "" {
			errs = append(errs, errors.New("TABLESYNC_HOST_URL is required for the client role"))
		}
	default:
		errs = append(errs, fmt.Errorf("TABLESYNC_ROLE must be host or client, got %q", c.Role))
	}
	if _, err := game.ParseIdentity(c.CardIdentity); err != nil {
		errs = append(errs, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.StartingLife <= 0 {
		errs = append(errs, fmt.Errorf("STARTING_LIFE must be positive, got %d", c.StartingLife))
	}
	return errors.Join(errs...)
}

// Identity returns the parsed card identity mode. Call after Validate.
func (c Config) Identity() game.Identity {
	id, _ := game.ParseIdentity(c.CardIdentity)
	return id
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
