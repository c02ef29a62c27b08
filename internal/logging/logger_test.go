package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: level, Format: "json", Output: &buf})
	return &buf
}

func TestInit_JSONOutput(t *testing.T) {
	buf := captureLogs(t, "info")

	Info().Str("port", "5000").Msg("Server running")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Server running", entry["message"])
	assert.Equal(t, "5000", entry["port"])
	assert.Contains(t, entry, "time")
}

func TestInit_LevelFilters(t *testing.T) {
	buf := captureLogs(t, "warn")

	Info().Msg("dropped")
	Debug().Msg("dropped too")
	assert.Empty(t, buf.String())

	Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestCtx_AddsRequestID(t *testing.T) {
	buf := captureLogs(t, "debug")

	ctx := ContextWithRequestID(context.Background(), "req-42")
	Ctx(ctx).Info().Msg("handled")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
}

func TestCtx_WithoutRequestID(t *testing.T) {
	buf := captureLogs(t, "debug")

	Ctx(context.Background()).Info().Msg("plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestWithComponent(t *testing.T) {
	buf := captureLogs(t, "info")

	l := WithComponent("mongodb")
	l.Info().Msg("connected")
	assert.Contains(t, buf.String(), `"component":"mongodb"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, parseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
