package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo("engine", &buf)

	log.Info().Msg("cycle started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "cycle started", entry["message"])
	assert.Contains(t, entry, "ts")
}

func TestWithComponent_OverridesLabel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo("engine", &buf).WithComponent("queue")

	log.Info().Msg("enqueued")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "queue", entry["component"])
}

func TestFromContext_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo("engine", &buf)

	ctx := log.WithContext(context.Background())
	FromContext(ctx).Info().Msg("from ctx")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
}

func TestNop_DiscardsOutput(t *testing.T) {
	log := Nop()
	log.Error().Msg("must not panic")
}
