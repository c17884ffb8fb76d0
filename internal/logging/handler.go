// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package logging configures structured logging for wildmere binaries.
// Records carry the service identity and, when an OpenTelemetry span is
// active, the trace and span ids so an interaction pass can be correlated
// between the log store and the trace store.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// Config selects the output shape of a logger.
type Config struct {
	Service string
	Version string
	Format  string // "json" or "text"; json when empty
	Debug   bool   // lowers the level from info to debug
}

// spanHandler decorates records with the ambient span identity. Static
// attributes live on the wrapped handler; only the per-record trace fields
// are added here.
type spanHandler struct {
	next slog.Handler
}

func (h spanHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.next.Handle(ctx, r)
}

func (h spanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanHandler{next: h.next.WithAttrs(attrs)}
}

func (h spanHandler) WithGroup(name string) slog.Handler {
	return spanHandler{next: h.next.WithGroup(name)}
}

// New creates a configured slog.Logger. If w is nil, writes to os.Stderr.
func New(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if cfg.Format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}
	base = base.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
	})

	return slog.New(spanHandler{next: base})
}

// SetDefault installs a configured logger as the process default.
func SetDefault(cfg Config) {
	slog.SetDefault(New(cfg, nil))
}
