package clog

import (
	"io"
	"log/slog"
)

// ParseLevel parses "debug", "info", "warn" or "error". Unknown values fall
// back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New returns a logger writing colored text to w with context attributes.
func New(w io.Writer, level slog.Level, colored bool) *slog.Logger {
	return slog.New(NewAttributesHandler(NewTextHandler(w, WithLevel(level), WithColor(colored))))
}
