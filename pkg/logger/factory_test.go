package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/billing/pkg/logger"
)

type ctxKey string

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with static attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("service", "billing")),
		)
		log.Info("hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "hello", rec["msg"])
		assert.Equal(t, "billing", rec["service"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("context value extraction", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		key := ctxKey("request_id")
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithContextValue("request_id", key),
		)

		ctx := context.WithValue(context.Background(), key, "req-123")
		log.InfoContext(ctx, "with request")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "req-123", rec["request_id"])
	})

	t.Run("environment defaults", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithEnvironment("development", "billing"),
		)
		log.Debug("visible in dev")

		out := buf.String()
		assert.Contains(t, out, "visible in dev")
		assert.Contains(t, out, "env=development")
	})
}
