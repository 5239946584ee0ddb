// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
)

// New returns a structured logger that renders through pterm.
// level is one of trace, debug, info, warn, error or off; unknown values mean info.
func New(w io.Writer, level string) *slog.Logger {
	lvl := parseLevel(level)
	if lvl == pterm.LogLevelDisabled {
		return Discard()
	}
	pl := pterm.DefaultLogger.WithWriter(w).WithLevel(lvl)
	return slog.New(pterm.NewSlogHandler(pl))
}

// Discard returns a logger that drops everything. Useful as a default in constructors.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func parseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "none", "disabled":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}
