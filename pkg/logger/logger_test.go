package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("readrate", "info", &buf)

	l.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "readrate", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("readrate", "warn", &buf)

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationIDFromContext(ctx))

	ctx = WithCorrelationID(ctx, "corr-1")
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
}

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-9")
	assert.Equal(t, "user-9", UserIDFromContext(ctx))
}

func TestFromContext_Fallback(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestWithContext_EnrichesFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("readrate", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-2")
	ctx = WithUserID(ctx, "user-3")

	WithContext(ctx, base).Info("event")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-2", entry["correlation_id"])
	assert.Equal(t, "user-3", entry["user_id"])
}
