// Package config loads the backend configuration.
//
// Configuration is read in three layers, each overriding the previous one:
// built-in defaults, an optional TOML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all backend configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	CORS     CORSConfig     `toml:"cors"`
}

type ServerConfig struct {
	// Address gin listens on, e.g. ":8080".
	Address string `toml:"address"`
}

type DatabaseConfig struct {
	// Path of the SQLite database file.
	Path string `toml:"path"`
}

type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Database: DatabaseConfig{
			Path: "data/gorm.db",
		},
	}
}

// Load builds the configuration from defaults, the TOML file named by the
// CONFIG_FILE environment variable (default "config.toml", missing files are
// fine) and environment variable overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, ok := os.LookupEnv("CONFIG_FILE")
	if !ok {
		path = "config.toml"
	}

	_, err := toml.DecodeFile(path, &cfg)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	if address, ok := os.LookupEnv("LISTEN_ADDRESS"); ok {
		cfg.Server.Address = address
	}
	if dbPath, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Database.Path = dbPath
	}
	if origins, ok := os.LookupEnv("CORS_ALLOW_ORIGINS"); ok {
		cfg.CORS.AllowOrigins = strings.Fields(origins)
	}

	return cfg, nil
}
