package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGelfLevelMapping(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want int32
	}{
		{slog.LevelDebug, gelfLevelDebug},
		{slog.LevelInfo, gelfLevelInfo},
		{slog.LevelWarn, gelfLevelWarning},
		{slog.LevelError, gelfLevelError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gelfLevel(tt.in))
	}
}

func TestGelfHandler_Enabled(t *testing.T) {
	h := &GelfHandler{level: slog.LevelInfo}
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestGelfHandler_ExtraKeys(t *testing.T) {
	h := &GelfHandler{}
	assert.Equal(t, "_craft", h.extraKey("craft"))

	grouped := h.WithGroup("flight").(*GelfHandler)
	assert.Equal(t, "_flight.craft", grouped.extraKey("craft"))

	nested := grouped.WithGroup("telemetry").(*GelfHandler)
	assert.Equal(t, "_flight.telemetry.alt", nested.extraKey("alt"))
}

func TestGelfHandler_WithAttrsDoesNotShare(t *testing.T) {
	h := &GelfHandler{}
	a := h.WithAttrs([]slog.Attr{slog.String("a", "1")}).(*GelfHandler)
	b := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*GelfHandler)

	assert.Len(t, a.attrs, 1)
	assert.Len(t, b.attrs, 1)
	assert.Equal(t, "a", a.attrs[0].Key)
	assert.Equal(t, "b", b.attrs[0].Key)
}

func TestGelfHandler_WithGroupEmpty(t *testing.T) {
	h := &GelfHandler{}
	assert.Equal(t, slog.Handler(h), h.WithGroup(""))
}
