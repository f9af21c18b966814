package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/undocore/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMaxDepth, cfg.History.MaxDepth)
	assert.Equal(t, DefaultBulkThreshold, cfg.History.BulkThreshold)
	assert.Equal(t, 2*time.Second, cfg.ScriptTimeout())
	assert.Equal(t, logging.LevelInfo, cfg.Logging().Level)
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.True(t, strings.HasSuffix(path, filepath.Join("undocore", "config.toml")), path)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[history]
max_depth = 10
auto_confirm = true

[log]
level = "debug"
json = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.History.MaxDepth)
	assert.Equal(t, DefaultBulkThreshold, cfg.History.BulkThreshold, "unset keys keep defaults")
	assert.True(t, cfg.History.AutoConfirm)
	assert.Equal(t, logging.LevelDebug, cfg.Logging().Level)
	assert.True(t, cfg.Logging().JSON)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
history:
  bulk_threshold: 5
scripts:
  dir: /tmp/scripts
  timeout_ms: 250
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.History.BulkThreshold)
	assert.Equal(t, "/tmp/scripts", cfg.Scripts.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.ScriptTimeout())
}

func TestLoadEmptyYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "toml syntax",
			file:    "bad.toml",
			content: "[history\nmax_depth = 1\n",
			check: func(t *testing.T, err error) {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Positive(t, perr.Line)
				assert.Contains(t, perr.Error(), "bad.toml")
			},
		},
		{
			name:    "toml unknown key",
			file:    "unknown.toml",
			content: "[history]\nmax_dept = 1\n",
			check: func(t *testing.T, err error) {
				var perr *ParseError
				assert.ErrorAs(t, err, &perr)
			},
		},
		{
			name:    "yaml unknown key",
			file:    "unknown.yaml",
			content: "history:\n  depth: 3\n",
			check: func(t *testing.T, err error) {
				var perr *ParseError
				assert.ErrorAs(t, err, &perr)
			},
		},
		{
			name:    "unsupported extension",
			file:    "config.ini",
			content: "max_depth=1",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
			},
		},
		{
			name:    "invalid values",
			file:    "invalid.toml",
			content: "[history]\nmax_depth = 0\nbulk_threshold = -1\n[log]\nlevel = \"loud\"\n",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrValidationFailed)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Len(t, verr.Problems, 3)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, tt.file, tt.content))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"UNDOCORE_MAX_DEPTH":      "7",
		"UNDOCORE_AUTO_CONFIRM":   "true",
		"UNDOCORE_LOG_LEVEL":      "warn",
		"UNDOCORE_LOG_JSON":       "1",
		"UNDOCORE_SCRIPT_DIR":     "scripts",
		"UNDOCORE_UNRELATED_KNOB": "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, lookup))
	assert.Equal(t, 7, cfg.History.MaxDepth)
	assert.True(t, cfg.History.AutoConfirm)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "scripts", cfg.Scripts.Dir)
	assert.Equal(t, DefaultBulkThreshold, cfg.History.BulkThreshold)

	env["UNDOCORE_BULK_THRESHOLD"] = "many"
	err := ApplyEnv(Default(), lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNDOCORE_BULK_THRESHOLD")

	assert.Contains(t, EnvVars(), "UNDOCORE_MAX_DEPTH")
}

func TestLoadAppliesEnvOverFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[history]\nmax_depth = 10\n")
	t.Setenv("UNDOCORE_MAX_DEPTH", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.History.MaxDepth)
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.History.AutoConfirm = true
	cfg.Scripts.Dir = "lua"

	data, err := cfg.TOML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_depth")

	got := Default()
	require.NoError(t, Decode("x.toml", data, got))
	assert.Equal(t, cfg, got)
}

func TestWatcherReloads(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := writeFile(t, dir, "config.toml", "[history]\nmax_depth = 10\n")

	changes := make(chan *Config, 4)
	failures := make(chan error, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c },
		WithDebounce(20*time.Millisecond),
		WithErrorHandler(func(err error) { failures <- err }),
	)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, path, w.Path())

	writeFile(t, dir, "config.toml", "[history]\nmax_depth = 20\n")
	select {
	case c := <-changes:
		assert.Equal(t, 20, c.History.MaxDepth)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	writeFile(t, dir, "config.toml", "[history]\nmax_depth = 0\n")
	select {
	case err := <-failures:
		assert.True(t, errors.Is(err, ErrValidationFailed), "%v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no error for invalid config")
	}

	writeFile(t, dir, "other.toml", "ignored")
	select {
	case c := <-changes:
		t.Fatalf("unexpected reload: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
