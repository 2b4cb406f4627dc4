// Package spanscope ties the lifetime of a span to a lexical scope.
//
// A span started by this package is made current in the returned context, the request logger in
// that context is bound to the span's IDs, and the span is ended exactly once, however the scope
// is left.
package spanscope

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/aereal/xray-backend/logging"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scope owns a started span.
type Scope struct {
	span  trace.Span
	ended atomic.Bool
}

// Start starts a span as a child of the span context in ctx and activates it.
//
// Callers must defer [Scope.End]. The returned context carries the span and a logger annotated with its IDs;
// ctx is not modified, so whatever was current before stays current for code holding ctx.
func Start(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, *Scope) {
	return Adopt(tracer.Start(ctx, name, opts...))
}

// Adopt takes ownership of a span started elsewhere and activates it like [Start] does.
func Adopt(ctx context.Context, span trace.Span) (context.Context, *Scope) {
	ctx = trace.ContextWithSpan(ctx, span)
	return logging.WithSpanContext(ctx, span.SpanContext()), &Scope{span: span}
}

// Span returns the owned span.
func (s *Scope) Span() trace.Span {
	return s.span
}

// End ends the span. Only the first call has an effect; it reports whether this call ended the span.
func (s *Scope) End(opts ...trace.SpanEndOption) bool {
	if !s.ended.CompareAndSwap(false, true) {
		return false
	}
	s.span.End(opts...)
	return true
}

// Ended reports whether the span has been ended.
func (s *Scope) Ended() bool {
	return s.ended.Load()
}

// Run starts a span, calls fn with the span active and ends the span when fn returns or panics.
//
// An error returned by fn, or a panic raised by it, is recorded on the span and returned.
// Panics are returned as *[PanicError] rather than propagated.
func Run(ctx context.Context, tracer trace.Tracer, name string, fn func(ctx context.Context, span trace.Span) error, opts ...trace.SpanStartOption) (err error) {
	ctx, scope := Start(ctx, tracer, name, opts...)
	defer scope.End()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		if err != nil {
			Fail(scope.span, err)
		}
	}()
	return fn(ctx, scope.span)
}

// Fail records err as an exception on span and marks the span as failed with the error's message.
// For a *[PanicError] the message is the raised value itself.
func Fail(span trace.Span, err error) {
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, statusMessage(err))
}

func statusMessage(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return fmt.Sprint(pe.Value)
	}
	return err.Error()
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
