package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process configuration read from BASKET_* environment variables.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"basket.db"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DefaultUnpurchasedListName string `env:"DEFAULT_UNPURCHASED_LIST_NAME" envDefault:"Unpurchased Items"`
	SortOrderStep              int    `env:"SORT_ORDER_STEP" envDefault:"1000"`

	HTTP HTTP `envPrefix:"HTTP_"`
}

// HTTP contains server timeouts.
type HTTP struct {
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BASKET_"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SortOrderStep <= 0 {
		return nil, fmt.Errorf("BASKET_SORT_ORDER_STEP must be positive, got %d", cfg.SortOrderStep)
	}
	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
