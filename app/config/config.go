// Package config loads runtime settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreBadger   = "badger"
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Addr           string        `yaml:"addr" validate:"required"`
	Store          string        `yaml:"store" validate:"oneof=badger supabase postgres memory"`
	BadgerPath     string        `yaml:"badger_path" validate:"required_if=Store badger"`
	SupabaseURL    string        `yaml:"supabase_url" validate:"required_if=Store supabase"`
	SupabaseKey    string        `yaml:"supabase_key" validate:"required_if=Store supabase"`
	DatabaseURL    string        `yaml:"database_url" validate:"required_if=Store postgres"`
	SessionSecret  string        `yaml:"session_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	LogLevel       string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFile        string        `yaml:"log_file"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		Store:          StoreBadger,
		BadgerPath:     "data/badger",
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
	}
}

// Load builds a Config. path names an optional YAML file; a missing .env
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements of the chosen store.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(&c.Addr, "ANIMEHUB_ADDR")
	setString(&c.Store, "ANIMEHUB_STORE")
	setString(&c.BadgerPath, "ANIMEHUB_BADGER_PATH")
	setString(&c.SupabaseURL, "SUPABASE_URL")
	setString(&c.SupabaseKey, "SUPABASE_KEY")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SessionSecret, "ANIMEHUB_SESSION_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFile, "LOG_FILE")

	if v, ok := os.LookupEnv("ANIMEHUB_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ANIMEHUB_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	c.Store = strings.ToLower(c.Store)
	return nil
}
