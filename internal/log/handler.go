package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/anonbox/internal/reqctx"
)

// Attribute keys whose values never reach the log output.
var redactedKeys = map[string]bool{
	"password":        true,
	"credential_hash": true,
	"token":           true,
}

const redacted = "[REDACTED]"

// ContextHandler decorates records with request_id and account_id from the
// context and masks secret-bearing attributes.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})

	if id := reqctx.RequestID(ctx); id != "" {
		out.AddAttrs(slog.String("request_id", id))
	}
	if id := reqctx.AccountID(ctx); id != "" {
		out.AddAttrs(slog.String("account_id", id))
	}
	return h.inner.Handle(ctx, out)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redact(a)
	}
	return &ContextHandler{inner: h.inner.WithAttrs(masked)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if redactedKeys[a.Key] {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, g := range group {
			masked[i] = redact(g)
		}
		return slog.Group(a.Key, masked...)
	}
	return a
}
