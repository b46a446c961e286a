// Package logging holds the log/slog helpers shared by the bakery commands.
package logging

import (
	"log/slog"
	"strings"
)

// ParseLevel maps a config or flag value to a slog level. Unknown values,
// including the empty string, select info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
