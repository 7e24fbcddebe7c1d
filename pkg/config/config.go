// Package config loads vegaorm settings from an optional JSON file,
// VEGAORM_* environment variables and command-line overrides
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mizuchilabs/vegaorm/pkg/dialect"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
)

const envPrefix = "VEGAORM_"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig represents the connection and pooling settings
type DatabaseConfig struct {
	Dialect             string `json:"dialect"               env:"DB_DIALECT"               envDefault:"sqlite"`     // sqlite, postgres, mysql
	Host                string `json:"host"                  env:"DB_HOST"                  envDefault:"vegaorm.db"` // file path for sqlite
	Port                int    `json:"port"                  env:"DB_PORT"                  envDefault:"0"`          // 0 uses the server default
	User                string `json:"user"                  env:"DB_USER"`
	Password            string `json:"password"              env:"DB_PASSWORD"`
	Database            string `json:"database"              env:"DB_DATABASE"`
	MinConn             int    `json:"minconn"               env:"DB_MINCONN"               envDefault:"1"`
	MaxConn             int    `json:"maxconn"               env:"DB_MAXCONN"               envDefault:"1"`
	AcquireAttempts     int    `json:"acquire_attempts"      env:"DB_ACQUIRE_ATTEMPTS"      envDefault:"10"`
	AcquireDelay        string `json:"acquire_delay"         env:"DB_ACQUIRE_DELAY"         envDefault:"100ms"`
	DefaultStringLength int    `json:"default_string_length" env:"DB_DEFAULT_STRING_LENGTH" envDefault:"0"` // 0 keeps the dialect default
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LOG_LEVEL"      envDefault:"info"`  // debug, info, warn, error
	Format    string `json:"format"     env:"LOG_FORMAT"     envDefault:"text"`  // text, json
	AddSource bool   `json:"add_source" env:"LOG_ADD_SOURCE" envDefault:"false"` // add source file and line info to logs
}

// Default returns the configuration with every default applied and no
// environment lookups
func Default() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{
		Prefix:      envPrefix,
		Environment: map[string]string{},
	})
	return cfg
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides loads configuration with optional command-line flag overrides
func LoadWithOverrides(overrides map[string]any) (*Config, error) {
	cfg := &Config{}

	// Environment variables and defaults
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse environment variables")
	}

	// Config file values fill in whatever the environment left at its default
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load config file")
		}
	}

	applyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges a JSON configuration file into cfg
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(cfg, &fileConfig, Default())
	return nil
}

// applyOverrides applies command-line flag overrides. Empty strings and
// zero numbers leave the loaded value in place.
func applyOverrides(cfg *Config, overrides map[string]any) {
	setString := func(dst *string, v any) {
		if s, ok := v.(string); ok && s != "" {
			*dst = s
		}
	}
	setInt := func(dst *int, v any) {
		switch n := v.(type) {
		case int:
			if n != 0 {
				*dst = n
			}
		case int64:
			if n != 0 {
				*dst = int(n)
			}
		}
	}

	for key, value := range overrides {
		switch key {
		case "dialect":
			setString(&cfg.Database.Dialect, value)
		case "host":
			setString(&cfg.Database.Host, value)
		case "port":
			setInt(&cfg.Database.Port, value)
		case "user":
			setString(&cfg.Database.User, value)
		case "password":
			setString(&cfg.Database.Password, value)
		case "database":
			setString(&cfg.Database.Database, value)
		case "minconn":
			setInt(&cfg.Database.MinConn, value)
		case "maxconn":
			setInt(&cfg.Database.MaxConn, value)
		case "default-string-length":
			setInt(&cfg.Database.DefaultStringLength, value)
		case "log-level":
			setString(&cfg.Logging.Level, value)
		case "log-format":
			setString(&cfg.Logging.Format, value)
		}
	}
}

// mergeConfigs copies every non-zero value of source into the fields of
// target that still hold their default
func mergeConfigs(target, source, defaults *Config) {
	var mergeValues func(t, s, d reflect.Value)
	mergeValues = func(t, s, d reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i), d.Field(i))
			}
		} else if !s.IsZero() && t.Equal(d) {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem(), reflect.ValueOf(defaults).Elem())
}

// Validate checks the configuration for common errors
func (c *Config) Validate() error {
	if _, err := dialect.ByName(c.Database.Dialect); err != nil {
		return err
	}

	if strings.TrimSpace(c.Database.Host) == "" {
		return errors.New(errors.ErrTypeConfig, "database host must be set (file path for sqlite)")
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return errors.Newf(errors.ErrTypeConfig, "invalid database port: %d", c.Database.Port)
	}

	if c.Database.MaxConn <= 0 {
		return errors.Newf(errors.ErrTypeConfig, "maxconn must be positive: %d", c.Database.MaxConn)
	}
	if c.Database.MinConn < 0 || c.Database.MinConn > c.Database.MaxConn {
		return errors.Newf(errors.ErrTypeConfig,
			"minconn must be between 0 and maxconn (%d): %d", c.Database.MaxConn, c.Database.MinConn)
	}

	if c.Database.AcquireAttempts <= 0 {
		return errors.Newf(errors.ErrTypeConfig, "acquire attempts must be positive: %d", c.Database.AcquireAttempts)
	}
	if d, err := time.ParseDuration(c.Database.AcquireDelay); err != nil || d < 0 {
		return errors.Newf(errors.ErrTypeConfig, "invalid acquire delay: %s", c.Database.AcquireDelay)
	}

	if c.Database.DefaultStringLength < 0 {
		return errors.Newf(errors.ErrTypeConfig,
			"default string length must not be negative: %d", c.Database.DefaultStringLength)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return errors.Newf(errors.ErrTypeConfig,
			"invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return errors.Newf(errors.ErrTypeConfig, "invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// Delay returns the wait between two acquire attempts
func (c DatabaseConfig) Delay() time.Duration {
	d, err := time.ParseDuration(c.AcquireDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}
