// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for CloudWatch Logs
//   - Development: Colored console output for human readability
//
// Loggers travel in a context.Context. A request handler derives a logger carrying the
// trace_id, span_id and xray_trace_id of the active span with WithSpanContext and hands the
// resulting context down; the fields disappear when the context goes out of scope, so a
// warm Lambda instance never logs one invocation's IDs on behalf of the next.
//
//	ctx = logging.WithSpanContext(ctx, span.SpanContext())
//	logging.From(ctx).Info("Processing hello request")
package logging
