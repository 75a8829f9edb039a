package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	log := NewWithLogrus(base, "flowauth")
	ctx := WithCorrelationID(context.Background(), "cid-1")

	t.Run("adds service and correlation id", func(t *testing.T) {
		hook.Reset()
		log.Info(ctx, "hello", map[string]interface{}{"k": "v"})

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.InfoLevel, entry.Level)
		assert.Equal(t, "hello", entry.Message)
		assert.Equal(t, "flowauth", entry.Data["service"])
		assert.Equal(t, "cid-1", entry.Data["correlation_id"])
		assert.Equal(t, "v", entry.Data["k"])
	})

	t.Run("records error text", func(t *testing.T) {
		hook.Reset()
		log.Error(context.Background(), "failed", errors.New("boom"), nil)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "boom", entry.Data[logrus.ErrorKey])
		assert.NotContains(t, entry.Data, "correlation_id")
	})

	t.Run("with fields does not leak into parent", func(t *testing.T) {
		hook.Reset()
		child := log.WithFields(map[string]interface{}{"component": "blacklist"})
		child.Debug(ctx, "child", nil)
		log.Debug(ctx, "parent", nil)

		require.Len(t, hook.Entries, 2)
		assert.Equal(t, "blacklist", hook.Entries[0].Data["component"])
		assert.NotContains(t, hook.Entries[1].Data, "component")
	})
}

func TestLogHelpers(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := NewWithLogrus(base, "")
	ctx := context.Background()

	LogAuthEvent(ctx, log, "login", "alice", "10.0.0.1", false, nil)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Auth event failed: login", entry.Message)
	assert.Equal(t, "alice", entry.Data["username"])

	LogSecurityEvent(ctx, log, "rate_limit_exceeded", SeverityHigh, map[string]interface{}{"subject": "user:alice"})
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "security", entry.Data["event_type"])

	LogPerformance(ctx, log, "blacklist_sweep", 1500*time.Millisecond, nil)
	entry = hook.LastEntry()
	assert.Equal(t, int64(1500), entry.Data["duration_ms"])
}

func TestNewStructuredLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "debug", Format: "json", ServiceName: "flowauth", Output: &buf})

	log.Warn(WithCorrelationID(context.Background(), "abc"), "careful", nil)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "careful", decoded["msg"])
	assert.Equal(t, "warning", decoded["level"])
	assert.Equal(t, "abc", decoded["correlation_id"])
}

func TestNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopLogger().Error(context.Background(), "ignored", errors.New("x"), nil)
	})
}
