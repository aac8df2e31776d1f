package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	assert.Equal(t, defaultLogger, FromContext(nil)) //nolint:staticcheck // nil guard
	assert.Equal(t, defaultLogger, FromContext(context.Background()))

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithContext(context.Background(), custom)
	assert.Equal(t, custom, FromContext(ctx))
}

func TestWithSessionID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithSessionID(ctx, "01J0SESSION")

	FromContext(ctx).InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "01J0SESSION", entry["session_id"])
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("sync run complete", slog.Int("added", 2))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sync run complete", entry["msg"])
	assert.Equal(t, float64(2), entry["added"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "debug", Format: "text"}, &buf)

	logger.Debug("debug message")
	assert.Contains(t, buf.String(), "debug message")
}

func TestNewWithWriter_PrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "info", Format: "pretty"}, &buf)

	logger.Info("pretty message")
	assert.Contains(t, buf.String(), "pretty message")
}

func TestNewWithWriter_Redacts(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	logger.Info("request", slog.String("authorization", "Bearer abc.def"), slog.String("token", "s3cret"))
	assert.NotContains(t, buf.String(), "abc.def")
	assert.NotContains(t, buf.String(), "s3cret")
}

func TestNewWithWriter_PrettyRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "info", Format: "pretty"}, &buf)

	logger.With(slog.String("api_key", "k3y")).Info("request",
		slog.String("token", "s3cret"),
		slog.Group("auth", slog.String("password", "hunter2")),
	)
	logger.WithGroup("remote").Info("push", slog.String("authorization", "Bearer abc.def"))

	out := buf.String()
	assert.Contains(t, out, "request")
	assert.Contains(t, out, "push")
	for _, secret := range []string{"k3y", "s3cret", "hunter2", "abc.def"} {
		assert.NotContains(t, out, secret)
	}
}

func TestNewWithWriter_WithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "quotebook.log")

	var buf bytes.Buffer
	logger := NewWithWriter(&Config{
		Level:  "info",
		Format: "pretty",
		File: FileConfig{
			Enabled:    true,
			Path:       logFile,
			MaxSizeMB:  1,
			MaxBackups: 1,
			MaxAgeDays: 1,
		},
	}, &buf)

	logger.Info("to both")

	assert.Contains(t, buf.String(), "to both")
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(content, &entry), "file output is JSON")
	assert.Equal(t, "to both", entry["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, slogToCharmLevel(slog.LevelDebug))
	assert.Equal(t, log.InfoLevel, slogToCharmLevel(slog.LevelInfo))
	assert.Equal(t, log.WarnLevel, slogToCharmLevel(slog.LevelWarn))
	assert.Equal(t, log.ErrorLevel, slogToCharmLevel(slog.LevelError))
	assert.Equal(t, log.ErrorLevel, slogToCharmLevel(slog.Level(12)))
}

func TestMultiHandler(t *testing.T) {
	var info, errs bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	assert.True(t, multi.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, multi.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(multi).With(slog.String("component", "sync"))
	logger.Info("only info")
	logger.Error("both")

	assert.Contains(t, info.String(), "only info")
	assert.Contains(t, info.String(), "component=sync")
	assert.NotContains(t, errs.String(), "only info")
	assert.Contains(t, errs.String(), "both")
}
