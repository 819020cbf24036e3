package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/linkmap/internal/loader"
)

// LogLevelEnv overrides settings.logLevel.
const LogLevelEnv = "LINKMAP_LOG_LEVEL"

const (
	defaultStorageDir   = "data"
	defaultMaxBatchSize = 500
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Storage  StorageConfig  `yaml:"storage"`
	Inputs   []string       `yaml:"inputs"`   // CSV files or directories to scan recursively
	Columns  loader.Columns `yaml:"columns"`  // Extra header candidates, merged over the defaults
	TimeZone string         `yaml:"timezone"` // For timestamps without zone information
	Workers  int            `yaml:"workers"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	DatabaseFile  string `yaml:"databaseFile"` // Append to this database instead of creating a new one
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads the YAML configuration at path. Environment variables in the
// file are expanded before parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := Config{
		Settings: Settings{LogLevel: slog.LevelInfo.String()},
		Storage: StorageConfig{
			DataDirectory: defaultStorageDir,
			MaxBatchSize:  defaultMaxBatchSize,
		},
		Workers: 1,
	}
	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch {
	case len(c.Inputs) == 0:
		return errors.New("no inputs specified in configuration")
	case c.Storage.MaxBatchSize <= 0:
		return fmt.Errorf("invalid max batch size: %d", c.Storage.MaxBatchSize)
	case c.Workers <= 0:
		return fmt.Errorf("invalid number of workers: %d", c.Workers)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Settings.LogLevel, overridden by LogLevelEnv when set.
func (c *Config) LogLevel() (slog.Level, error) {
	value := c.Settings.LogLevel
	if env := os.Getenv(LogLevelEnv); env != "" {
		value = env
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return level, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// Location returns the configured time zone, time.UTC when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone: %w", err)
	}
	return loc, nil
}
