// Package photlog provides the structured logger used by the
// cmd/photoeval driver. The evaluation core
// (photkernel, photpatch) never logs: it stays a pure function of its
// inputs, so it is usable identically from a CLI, a benchmark, or a
// future server wrapper.
package photlog

import (
	"io"
	"log/slog"
)

// New returns a text-handler logger writing to w at the given minimum
// level. This is the default used by cmd/photoeval for interactive runs.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON returns a JSON-handler logger writing to w at the given
// minimum level, for batch or pipelined invocations where logs feed a
// downstream aggregator rather than a terminal.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
