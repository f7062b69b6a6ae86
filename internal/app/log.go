package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LogFileName is the log file created under the configured log dir.
const LogFileName = "fdp.log"

// sink is one destination of fdpHandler with its own minimum level.
type sink struct {
	w   io.Writer
	min slog.Level
}

// fdpHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
type fdpHandler struct {
	sinks []sink
	opID  string
	group string
	attrs []slog.Attr
}

func (h *fdpHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if level >= s.min {
			return true
		}
	}
	return false
}

func (h *fdpHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *fdpHandler) format(r slog.Record) string {
	line := fmt.Sprintf("%s\t%s\t%s\t%s",
		r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level.String(), h.opID, r.Message)

	for _, a := range h.attrs {
		line += fmt.Sprintf("\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf("\t%s=%v", h.key(a.Key), a.Value)
		return true
	})
	return line + "\n"
}

func (h *fdpHandler) Handle(_ context.Context, r slog.Record) error {
	line := h.format(r)
	for _, s := range h.sinks {
		if r.Level < s.min {
			continue
		}
		if _, err := io.WriteString(s.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (h *fdpHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefixed := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	prefixed = append(prefixed, h.attrs...)
	for _, a := range attrs {
		prefixed = append(prefixed, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &fdpHandler{sinks: h.sinks, opID: h.opID, group: h.group, attrs: prefixed}
}

func (h *fdpHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &fdpHandler{sinks: h.sinks, opID: h.opID, group: h.key(name), attrs: h.attrs}
}

// NewLogger creates a structured logger writing records at or above level
// to logDir/fdp.log, and warnings and errors to stderr.
// The returned file must be closed by the caller.
func NewLogger(logDir string, opID string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	h := &fdpHandler{
		sinks: []sink{{w: f, min: level}, {w: os.Stderr, min: slog.LevelWarn}},
		opID:  opID,
	}
	return slog.New(h), f, nil
}
