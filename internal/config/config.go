// Package config loads Alfred's YAML configuration with sensible
// defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Alfred configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Agent    AgentConfig    `yaml:"agent"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Storage  StorageConfig  `yaml:"storage"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AgentConfig configures the cognitive loop.
type AgentConfig struct {
	// DefaultUser is the user identity for single-user CLI sessions.
	DefaultUser string `yaml:"default_user"`

	// SuggestionLimit caps suggestions surfaced per request.
	SuggestionLimit int `yaml:"suggestion_limit"`

	// TaskTimeout bounds one full loop iteration.
	TaskTimeout string `yaml:"task_timeout"`
}

// RecoveryConfig configures retries and circuit breakers around
// capability calls.
type RecoveryConfig struct {
	MaxAttempts      int    `yaml:"max_attempts"`
	BaseDelay        string `yaml:"base_delay"`
	BreakerThreshold int    `yaml:"breaker_threshold"`
	BreakerCooldown  string `yaml:"breaker_cooldown"`
}

// StorageConfig configures profile persistence.
type StorageConfig struct {
	// DatabasePath is the sqlite file profiles snapshot into. Empty
	// disables persistence.
	DatabasePath string `yaml:"database_path"`
}

// ToolsConfig configures the built-in capabilities.
type ToolsConfig struct {
	// WorkDir confines file operations.
	WorkDir string `yaml:"work_dir"`

	// Interpreter runs code-execution scripts.
	Interpreter string `yaml:"interpreter"`

	// ExecTimeout bounds one script run.
	ExecTimeout string `yaml:"exec_timeout"`

	// SearchEnabled toggles the web search capability.
	SearchEnabled bool `yaml:"search_enabled"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty logs to stderr
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Name:    "alfred",
		Version: "1.0.0",

		Agent: AgentConfig{
			DefaultUser:     "default",
			SuggestionLimit: 3,
			TaskTimeout:     "120s",
		},

		Recovery: RecoveryConfig{
			MaxAttempts:      3,
			BaseDelay:        "1s",
			BreakerThreshold: 5,
			BreakerCooldown:  "60s",
		},

		Storage: StorageConfig{
			DatabasePath: "data/alfred.db",
		},

		Tools: ToolsConfig{
			WorkDir:       "data/files",
			Interpreter:   "python3",
			ExecTimeout:   "30s",
			SearchEnabled: true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file, starting from defaults. A
// missing file is not an error; defaults plus environment overrides
// apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating the parent
// directory as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies ALFRED_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ALFRED_USER"); v != "" {
		c.Agent.DefaultUser = v
	}
	if v := os.Getenv("ALFRED_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("ALFRED_WORK_DIR"); v != "" {
		c.Tools.WorkDir = v
	}
	if v := os.Getenv("ALFRED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ALFRED_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ALFRED_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Recovery.BreakerThreshold = n
		}
	}
	if v := os.Getenv("ALFRED_SEARCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Tools.SearchEnabled = b
		}
	}
}

// Duration parses s, falling back to def when empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
