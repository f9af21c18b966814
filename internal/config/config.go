package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/undocore/internal/logging"
)

// Default values.
const (
	DefaultMaxDepth        = 1000
	DefaultBulkThreshold   = 50
	DefaultLogLevel        = "info"
	DefaultScriptTimeoutMS = 2000
	DefaultCallStackSize   = 256
)

// Config holds every undocore setting.
type Config struct {
	History HistoryConfig `toml:"history" yaml:"history"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts"`
}

// HistoryConfig configures the undo engine.
type HistoryConfig struct {
	// MaxDepth bounds each undo and redo stack.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
	// BulkThreshold is the action count above which replay batches
	// change notifications.
	BulkThreshold int `toml:"bulk_threshold" yaml:"bulk_threshold"`
	// AutoConfirm answers yes to every confirmation prompt.
	AutoConfirm bool `toml:"auto_confirm" yaml:"auto_confirm"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// ScriptsConfig configures the Lua script runtime.
type ScriptsConfig struct {
	// Dir holds *.lua scripts loaded at startup. Empty disables loading.
	Dir string `toml:"dir" yaml:"dir"`
	// TimeoutMS bounds each script call. Zero disables the bound.
	TimeoutMS int `toml:"timeout_ms" yaml:"timeout_ms"`
	// CallStackSize is the Lua call stack size.
	CallStackSize int `toml:"call_stack_size" yaml:"call_stack_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxDepth:      DefaultMaxDepth,
			BulkThreshold: DefaultBulkThreshold,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Scripts: ScriptsConfig{
			TimeoutMS:     DefaultScriptTimeoutMS,
			CallStackSize: DefaultCallStackSize,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/undocore/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "undocore", "config.toml")
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	if c.History.MaxDepth <= 0 {
		problems = append(problems, fmt.Sprintf("history.max_depth must be positive, got %d", c.History.MaxDepth))
	}
	if c.History.BulkThreshold < 0 {
		problems = append(problems, fmt.Sprintf("history.bulk_threshold must not be negative, got %d", c.History.BulkThreshold))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}
	if c.Scripts.TimeoutMS < 0 {
		problems = append(problems, fmt.Sprintf("scripts.timeout_ms must not be negative, got %d", c.Scripts.TimeoutMS))
	}
	if c.Scripts.CallStackSize < 0 {
		problems = append(problems, fmt.Sprintf("scripts.call_stack_size must not be negative, got %d", c.Scripts.CallStackSize))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ScriptTimeout returns the script timeout as a duration.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.Scripts.TimeoutMS) * time.Millisecond
}

// Logging returns the logging configuration. Call Validate first; an
// unparsable level falls back to info.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = lvl
	}
	cfg.JSON = c.Log.JSON
	return cfg
}

// TOML renders the configuration as TOML.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}
