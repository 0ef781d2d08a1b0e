// Package config loads runtime configuration. Values resolve in three
// layers: built-in defaults, then the YAML file, then environment
// variables. Credentials never appear in the file; the key registry
// reads them from the environment only.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/powerstream/commandgate/internal/notify"
)

// Config holds all configurable parameters.
type Config struct {
	Listen    string `yaml:"listen"     env:"COMMANDGATE_LISTEN"`
	DataDir   string `yaml:"data_dir"   env:"COMMANDGATE_DATA_DIR"`
	LogLevel  string `yaml:"log_level"  env:"COMMANDGATE_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"COMMANDGATE_LOG_FORMAT"` // "text" or "json"

	Webhooks []notify.WebhookConfig `yaml:"webhooks"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:    "127.0.0.1:8580",
		DataDir:   defaultDataDir(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".commandgate"
	}
	return filepath.Join(home, ".commandgate")
}

// Load reads configuration from a YAML file and overlays environment
// variables. Empty path falls back to ~/.commandgate/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(defaultDataDir(), "config.yaml")
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		// Start with defaults, YAML overwrites only specified fields.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// AuditDir is where the category-segmented audit logs live.
func (c *Config) AuditDir() string { return filepath.Join(c.DataDir, "audit") }

// QueuePath is the command queue database file.
func (c *Config) QueuePath() string { return filepath.Join(c.DataDir, "queue.db") }

// SignatureDir is where enrolled signature digests live.
func (c *Config) SignatureDir() string { return filepath.Join(c.DataDir, "signatures") }

// Logger builds the process logger from LogLevel and LogFormat.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
