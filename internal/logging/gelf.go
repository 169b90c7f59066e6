package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// syslog severities used in the GELF level field.
const (
	gelfLevelError   = int32(3)
	gelfLevelWarning = int32(4)
	gelfLevelInfo    = int32(6)
	gelfLevelDebug   = int32(7)
)

// GelfHandler is a slog.Handler that ships records to a Graylog server over
// UDP. Records are sent fire-and-forget: a lost datagram never blocks or
// fails the logging call site.
type GelfHandler struct {
	writer *gelf.Writer
	host   string
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewGelfHandler connects a GELF writer to the given address
// (host:port, UDP).
func NewGelfHandler(address string, level slog.Level) (*GelfHandler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "launchsim"
	}
	return &GelfHandler{
		writer: w,
		host:   host,
		level:  level,
	}, nil
}

// Enabled reports whether records at the given level are shipped.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record to a GELF message and sends it.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		extra[h.extraKey(a.Key)] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra[h.extraKey(a.Key)] = a.Value.String()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Extra:    extra,
	})
}

// WithAttrs returns a handler that includes attrs on every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// extraKey builds a GELF additional-field key: underscore-prefixed, group
// qualified.
func (h *GelfHandler) extraKey(key string) string {
	if h.group != "" {
		return "_" + h.group + "." + key
	}
	return "_" + key
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfLevelError
	case l >= slog.LevelWarn:
		return gelfLevelWarning
	case l >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
