package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "room_id", "sakura")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"room_id":"sakura"`)

	buf.Reset()
	New(&buf, FormatText, slog.LevelInfo).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestContextLogger(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := ContextWithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
}
