package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown %d", 42)
	assert.Contains(t, buf.String(), "shown 42")
}

func TestLoggerFieldsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, JSON: true, Output: &buf}).
		WithComponent("history").
		WithField("doc", 3)

	l.Debug("pushed %q", "Type")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, `pushed "Type"`, rec["msg"])
	assert.Equal(t, "history", rec["component"])
	assert.Equal(t, float64(3), rec["doc"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Level: LevelInfo, JSON: true, Output: &buf})
	_ = parent.WithField("child", true)

	parent.Info("parent")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	_, ok := rec["child"]
	assert.False(t, ok)
}

func TestNop(t *testing.T) {
	l := Nop().WithComponent("x")
	assert.False(t, l.Enabled(LevelError))
	l.Error("nothing happens")
}
