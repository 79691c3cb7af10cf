// SPDX-License-Identifier: MIT

// Package trace generates and propagates the short correlation id that is
// threaded through pipeline logs and outgoing IPC messages (spec §4.14).
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// New generates a fresh 8-character hex trace id.
func New() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable on this platform;
		// fall back to a fixed-but-valid id rather than propagating an error
		// into every caller of New.
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

// Truncate normalizes an arbitrary input into the canonical 8-character form.
func Truncate(id string) string {
	if id == "" {
		return New()
	}
	if len(id) >= 8 {
		return id[:8]
	}
	out := make([]byte, 8)
	copy(out, id)
	for i := len(id); i < 8; i++ {
		out[i] = '0'
	}
	return string(out)
}

// WithTraceID stores the trace id in ctx, generating one if id is empty.
func WithTraceID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceIDKey, Truncate(id))
}

// FromContext returns the current trace id, generating and storing a new one
// if the context does not yet carry one. Mirrors get_trace_id from spec §4.14.
func FromContext(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if v, ok := ctx.Value(traceIDKey).(string); ok && v != "" {
		return ctx, v
	}
	id := New()
	return context.WithValue(ctx, traceIDKey, id), id
}

// Get returns the trace id carried by ctx, or "" if none is set.
func Get(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithScope saves the current trace id, runs scope with a context carrying
// id, and is a no-op on return (the caller's original context is never
// mutated) — equivalent to with_trace_id(scope) in spec §4.14. On fan-out
// (e.g. the parallel postprocessor chain) each worker should call WithScope
// explicitly so snapshots don't leak between goroutines.
func WithScope(ctx context.Context, id string, scope func(context.Context)) {
	scoped := WithTraceID(ctx, id)
	scope(scoped)
}
