package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level Level, jsonOut bool) (*DefaultLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: level, JSONOutput: jsonOut, Output: &buf})
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, &buf
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{"no args", nil, "built"},
		{"pairs", []interface{}{"nodes", 4, "passes", 2}, "built nodes=4 passes=2"},
		{"odd lead", []interface{}{"extra", "nodes", 4}, "built extra nodes=4"},
		{"non-string key", []interface{}{1, 2}, "built"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMessage("built", tt.args...))
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newTestLogger(WarnLevel, false)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", "file", "a.c")
	l.Error("failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[2026-01-02 03:04:05] WARN: shown file=a.c\n")
	assert.Contains(t, out, "ERROR: failed")

	buf.Reset()
	l.SetLevel(DebugLevel)
	l.Debug("now shown")
	assert.Contains(t, buf.String(), "DEBUG: now shown")
}

func TestLogger_JSON(t *testing.T) {
	l, buf := newTestLogger(DebugLevel, true)
	l.Info("skipped dfg edges", "count", 3, "err", errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "skipped dfg edges", entry["message"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, "boom", entry["err"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": DebugLevel, "INFO": InfoLevel, "": InfoLevel, "warning": WarnLevel, "Error": ErrorLevel} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("nothing")
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestProgressSpinner(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressSpinner(&buf, "building")
	p.Start()
	p.Message("building 1/2")
	time.Sleep(200 * time.Millisecond)
	p.Stop()

	assert.True(t, strings.HasSuffix(buf.String(), "\r\033[K"))
}
