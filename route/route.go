// Package route dispatches ALB requests to handlers by exact path.
package route

import (
	"context"

	"github.com/aereal/xray-backend/albresponse"
	"github.com/aws/aws-lambda-go/events"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler handles a routed request. A returned error turns into an internal server error response.
type Handler func(ctx context.Context, req *events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error)

// Table maps exact request paths to handlers.
//
// Routes match on path only: every method on a registered path reaches its handler.
type Table struct {
	routes   map[string]Handler
	notFound Handler
}

// New returns a table with the given routes that falls back to [NotFound].
func New(routes map[string]Handler) *Table {
	t := &Table{routes: make(map[string]Handler, len(routes)), notFound: NotFound}
	for path, h := range routes {
		t.routes[path] = h
	}
	return t
}

// Lookup returns the handler for path, or the not found handler if there is none.
func (t *Table) Lookup(method, path string) Handler {
	if h, ok := t.routes[path]; ok {
		return h
	}
	return t.notFound
}

// NotFound responds with 404 and marks the span in ctx as failed.
func NotFound(ctx context.Context, _ *events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	trace.SpanFromContext(ctx).SetStatus(codes.Error, "Not Found")
	return albresponse.NotFound(), nil
}
