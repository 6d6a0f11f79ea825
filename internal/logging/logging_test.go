package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"err":     slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "debug, info, warning or error")
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("json")
	require.NoError(t, err)
	assert.Equal(t, ModeJSON, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCLI, mode)
	assert.Equal(t, "cli", mode.String())

	_, err = ParseMode("xml")
	assert.Error(t, err)
}

func TestCLIHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLI(&buf, slog.LevelInfo)

	logger.With("run_id", "abc").WithGroup("backend").Warn("build command failed",
		"exit_code", 2,
		"argv", "unity -quit",
		"error", errors.New("exit status 2"),
	)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "WARNING "), line)
	assert.Contains(t, line, " | build command failed")
	assert.Contains(t, line, " run_id=abc")
	assert.Contains(t, line, " backend.exit_code=2")
	assert.Contains(t, line, ` backend.argv="unity -quit"`)
	assert.Contains(t, line, ` backend.error="exit status 2"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestCLIHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(slog.LevelWarn)

	logger := NewCLI(&buf, &level)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "shown")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(&buf, nil).Info("build succeeded", "status", "build-succeeded")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "build succeeded", record["msg"])
	assert.Equal(t, "build-succeeded", record["status"])
}

func TestEnsure(t *testing.T) {
	assert.Same(t, slog.Default(), Ensure(nil))

	logger := Discard()
	assert.Same(t, logger, Ensure(logger))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
