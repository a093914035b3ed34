package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureTagsService(t *testing.T) {
	var buf bytes.Buffer
	l := Configure(&buf, "coupon-qc", "debug")
	l.Info().Str("batch", "42").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "coupon-qc", entry["service"])
	assert.Equal(t, "42", entry["batch"])
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	var global, scoped bytes.Buffer
	Configure(&global, "coupon-qc", "not-a-level")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Ctx(context.Background()).Info().Msg("global")
	assert.Contains(t, global.String(), "global")

	ctx := With(context.Background(), zerolog.New(&scoped).With().Str("request_id", "r-1").Logger())
	Ctx(ctx).Info().Msg("scoped")
	assert.Contains(t, scoped.String(), `"request_id":"r-1"`)
	assert.NotContains(t, global.String(), "scoped")
}
