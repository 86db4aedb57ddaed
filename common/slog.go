package common

import (
	"io"
	"log/slog"
)

// SlogResetLevel sets the default slog level and returns a function that
// restores the previous level. It pairs well with defer:
//
//	func TestSomething(t *testing.T) {
//		defer common.SlogResetLevel(slog.LevelWarn + 1)()
func SlogResetLevel(level slog.Level) (reset func()) {
	oldLevel := slog.SetLogLoggerLevel(level)
	return func() {
		slog.SetLogLoggerLevel(oldLevel)
	}
}

// NewSlogHandler returns a text or JSON handler writing to w at level.
func NewSlogHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
