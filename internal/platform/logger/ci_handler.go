package logger

import (
	"context"
	"io"
	"log/slog"
	"runtime"
)

// CIHandler wraps a JSON handler and stamps every record with the CI run
// metadata, so log lines from parallel CI jobs can be told apart.
type CIHandler struct {
	handler   slog.Handler
	metadata  []slog.Attr
	addSource bool
}

// NewCIHandler creates a CIHandler writing JSON to out.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	handlerOpts := slog.HandlerOptions{}
	if opts != nil {
		handlerOpts = *opts
	}

	meta := getCIMetadata()
	attrs := make([]slog.Attr, 0, len(meta))
	for k, v := range meta {
		attrs = append(attrs, slog.String(k, v))
	}

	return &CIHandler{
		// Source is rendered as flat attributes by Handle
		handler:   slog.NewJSONHandler(out, &slog.HandlerOptions{Level: handlerOpts.Level}),
		metadata:  attrs,
		addSource: handlerOpts.AddSource,
	}
}

// Enabled implements the slog.Handler interface.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{
		handler:   h.handler.WithAttrs(attrs),
		metadata:  h.metadata,
		addSource: h.addSource,
	}
}

// WithGroup implements the slog.Handler interface.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{
		handler:   h.handler.WithGroup(name),
		metadata:  h.metadata,
		addSource: h.addSource,
	}
}

// Handle implements the slog.Handler interface.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()

	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		enhanced.AddAttrs(
			slog.String("source_file", frame.File),
			slog.Int("source_line", frame.Line),
			slog.String("source_func", frame.Function),
		)
	}

	enhanced.AddAttrs(h.metadata...)

	return h.handler.Handle(ctx, enhanced)
}
