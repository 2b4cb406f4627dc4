package logging

import (
	"context"

	"github.com/aereal/xray-backend/xrayid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Field names used to correlate log lines with traces.
// KeyXRayTraceID uses the name the X-Ray console looks for.
const (
	KeyTraceID     = "trace_id"
	KeySpanID      = "span_id"
	KeyXRayTraceID = "xray_trace_id"
)

type loggerContextKey struct{}

// loggers keeps the logger given to NewContext apart from the one bound to a span,
// so that binding another span replaces the trace fields instead of repeating them.
type loggers struct {
	base  *zap.Logger
	bound *zap.Logger
}

var nop = zap.NewNop()

// From returns the logger in ctx. If no logger is found a no-op logger is returned.
func From(ctx context.Context) *zap.Logger {
	if ls, ok := ctx.Value(loggerContextKey{}).(loggers); ok {
		return ls.bound
	}
	return nop
}

// NewContext creates a new context that includes logger as a value.
func NewContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, loggers{base: logger, bound: logger})
}

// WithSpanContext returns a context whose logger annotates every entry with the IDs of sc.
//
// The logger is derived from the one given to NewContext; ctx itself is left untouched, so the
// annotations vanish together with the returned context. An invalid sc yields ctx as is.
func WithSpanContext(ctx context.Context, sc trace.SpanContext) context.Context {
	if !sc.IsValid() {
		return ctx
	}
	base := nop
	if ls, ok := ctx.Value(loggerContextKey{}).(loggers); ok {
		base = ls.base
	}
	return context.WithValue(ctx, loggerContextKey{}, loggers{base: base, bound: base.With(TraceFields(sc)...)})
}

// TraceFields returns the correlation fields for sc.
func TraceFields(sc trace.SpanContext) []zap.Field {
	if !sc.IsValid() {
		return nil
	}
	fields := make([]zap.Field, 0, 3)
	fields = append(fields,
		zap.String(KeyTraceID, sc.TraceID().String()),
		zap.String(KeySpanID, sc.SpanID().String()))
	if xrayID, ok := xrayid.FromTraceID(sc.TraceID()); ok {
		fields = append(fields, zap.String(KeyXRayTraceID, xrayID))
	}
	return fields
}
