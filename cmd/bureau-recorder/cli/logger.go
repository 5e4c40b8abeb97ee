// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the process logger on stderr. Format "auto"
// picks slog.TextHandler when stderr is a terminal and
// slog.JSONHandler when it is piped or redirected; "text" and "json"
// force one handler.
//
// Callers scope the logger with command context:
//
//	logger := logger.With("command", "record", "directory", directory)
func NewCommandLogger(format string, level slog.Level) (*slog.Logger, error) {
	if format == "auto" || format == "" {
		format = "json"
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "text"
		}
	}
	return NewLogger(os.Stderr, format, level)
}

// NewLogger creates a logger writing format ("text" or "json") to w.
func NewLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	options := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want auto, text, or json)", format)
	}
}
