// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package logging

import (
	"context"
	"log/slog"
)

// redactedValue replaces the value of any sensitive attribute.
const redactedValue = "***"

// sensitiveKeys are attribute names whose values never reach the log
// sink. Matching is exact on the attribute key, case-sensitive, since
// all call sites in this codebase use these canonical names.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"session_token": {},
	"reset_token":   {},
	"authorization": {},
	"secret":        {},
}

// redactHandler wraps a slog.Handler and masks sensitive attribute
// values, including inside groups.
type redactHandler struct {
	handler slog.Handler
}

func newRedactHandler(next slog.Handler) *redactHandler {
	return &redactHandler{handler: next}
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, clean)
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleaned[i] = redactAttr(a)
	}
	return &redactHandler{handler: h.handler.WithAttrs(cleaned)}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks a sensitive attribute, recursing into groups.
func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		cleaned := make([]any, len(members))
		for i, member := range members {
			cleaned[i] = redactAttr(member)
		}
		return slog.Group(a.Key, cleaned...)
	}
	if _, sensitive := sensitiveKeys[a.Key]; sensitive {
		return slog.String(a.Key, redactedValue)
	}
	return a
}
