package logging

import (
	"context"
	"log/slog"
	"regexp"
	"slices"

	"github.com/m-mizutani/masq"
)

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)

// DefaultRedactOptions returns the masq options applied to every logger.
// Remote endpoints may carry credentials in headers or query strings.
func DefaultRedactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("password"),
		masq.WithFieldName("token"),
		masq.WithFieldName("api_key"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("cookie"),
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(bearerPattern),
	}
}

// NewReplaceAttr returns a slog ReplaceAttr func that redacts sensitive values.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

// redactHandler applies replace to every attribute before it reaches next.
// charmbracelet/log has no ReplaceAttr hook of its own.
type redactHandler struct {
	next    slog.Handler
	replace func(groups []string, a slog.Attr) slog.Attr
	groups  []string
}

func newRedactHandler(next slog.Handler, replace func(groups []string, a slog.Attr) slog.Attr) *redactHandler {
	return &redactHandler{next: next, replace: replace}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(h.groups, a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(h.groups, a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted), replace: h.replace, groups: h.groups}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &redactHandler{
		next:    h.next.WithGroup(name),
		replace: h.replace,
		groups:  append(slices.Clip(h.groups), name),
	}
}

func (h *redactHandler) redact(groups []string, a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		return h.replace(groups, a)
	}
	if a.Key != "" {
		groups = append(slices.Clip(groups), a.Key)
	}
	inner := a.Value.Group()
	out := make([]slog.Attr, len(inner))
	for i, ga := range inner {
		out[i] = h.redact(groups, ga)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
}
