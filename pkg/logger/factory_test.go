package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/docket/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with service attribute", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New("docketd", logger.WithOutput(&buf))
		log.Info("started", slog.String("component", "reaper"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "docketd", record["service"])
		assert.Equal(t, "reaper", record["component"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New("docketd", logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))
		log.Info("started")

		assert.True(t, strings.Contains(buf.String(), "msg=started"))
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New("docketd", logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")
		assert.Empty(t, buf.Bytes())

		log.Warn("kept")
		assert.NotEmpty(t, buf.Bytes())
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			logger.New("docketd", logger.WithFormat(logger.Format("xml")))
		})
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "message_id", logger.MessageID("abc").Key)
	assert.Equal(t, "batch_id", logger.BatchID("abc").Key)
	assert.Equal(t, "worker_id", logger.WorkerID("abc").Key)
	assert.Equal(t, "kind", logger.Kind("score").Key)
}
