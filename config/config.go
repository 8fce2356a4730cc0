// Package config loads server configuration from the environment.
// All knobs are optional; the defaults run a local instance.
package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config is the full server configuration, populated from
// TREASURY_-prefixed environment variables.
type Config struct {
	Port       int    `envconfig:"PORT" default:"8080"`
	DBPath     string `envconfig:"DB_PATH" default:"treasury.db"`
	GeoBaseURL string `envconfig:"GEO_BASE_URL" default:"https://geocoding-api.open-meteo.com"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("treasury", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
