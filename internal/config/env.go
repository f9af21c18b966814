package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "UNDOCORE_"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envBinding maps one environment variable onto a setting.
type envBinding struct {
	name  string
	apply func(cfg *Config, value string) error
}

func intSetting(field func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*field(cfg) = n
		return nil
	}
}

func boolSetting(field func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}
}

func stringSetting(field func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

var envBindings = []envBinding{
	{"MAX_DEPTH", intSetting(func(c *Config) *int { return &c.History.MaxDepth })},
	{"BULK_THRESHOLD", intSetting(func(c *Config) *int { return &c.History.BulkThreshold })},
	{"AUTO_CONFIRM", boolSetting(func(c *Config) *bool { return &c.History.AutoConfirm })},
	{"LOG_LEVEL", stringSetting(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_JSON", boolSetting(func(c *Config) *bool { return &c.Log.JSON })},
	{"SCRIPT_DIR", stringSetting(func(c *Config) *string { return &c.Scripts.Dir })},
	{"SCRIPT_TIMEOUT_MS", intSetting(func(c *Config) *int { return &c.Scripts.TimeoutMS })},
}

// EnvVars returns the names of every recognized environment variable.
func EnvVars() []string {
	names := make([]string, len(envBindings))
	for i, b := range envBindings {
		names[i] = EnvPrefix + b.name
	}
	return names
}

// ApplyEnv overrides cfg with the UNDOCORE_* variables lookup reports.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.apply(cfg, value); err != nil {
			return fmt.Errorf("%s=%q: %w", name, value, err)
		}
	}
	return nil
}
