// Package config loads symptrack settings from a YAML file, a .env file and
// SYMPTRACK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rcliao/symptrack/internal/engine"
	"github.com/rcliao/symptrack/internal/narrative"
)

const (
	// DefaultFile is read from the working directory when no path is given.
	DefaultFile = "symptrack.yaml"

	envPrefix = "SYMPTRACK_"
)

// Config holds all configuration values.
type Config struct {
	DBPath    string           `koanf:"db_path"`
	DeviceID  string           `koanf:"device_id"`
	LogFile   string           `koanf:"log_file"`
	LogLevel  string           `koanf:"log_level"`
	Policy    engine.Policy    `koanf:"policy"`
	Narrative narrative.Config `koanf:"narrative"`
}

// Load reads path (or DefaultFile when empty), then environment variables.
// Nested keys use a double underscore: SYMPTRACK_POLICY__DAY_THRESHOLD=5.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	k := koanf.New(".")

	if path == "" {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaults := map[string]interface{}{
		"db_path":                  defaultDBPath(),
		"log_level":                "INFO",
		"policy.day_threshold":     engine.DefaultDayThreshold,
		"policy.temporal_only_gap": engine.DefaultTemporalOnlyGap,
		"policy.reopen_gap":        engine.DefaultReopenGap,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	return parseLogLevel(c.LogLevel)
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".symptrack", "symptrack.db")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
