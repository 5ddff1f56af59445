package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/authkit/pkg/logger"
)

func TestSessionID_Truncation(t *testing.T) {
	t.Parallel()

	attr := logger.SessionID("abcdefghijklmnopqrstuvwxyz")
	assert.Equal(t, "abcdefgh...", attr.Value.String())

	attr = logger.SessionID("short")
	assert.Equal(t, "short", attr.Value.String())

	attr = logger.SessionID("")
	assert.True(t, attr.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAttr(slog.String("service", "authkit")),
	)

	log.Info("session created",
		logger.Event("session_created"),
		logger.SessionID("0123456789abcdef"),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "session created", record["msg"])
	assert.Equal(t, "authkit", record["service"])
	assert.Equal(t, "session_created", record["event"])
	assert.Equal(t, "01234567...", record["session_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithLevel(slog.LevelWarn),
	)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.NotZero(t, buf.Len())
}
