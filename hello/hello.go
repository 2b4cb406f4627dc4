// Package hello greets callers of /api/hello.
package hello

import (
	"context"
	"net/http"
	"time"

	"github.com/aereal/xray-backend/albresponse"
	"github.com/aereal/xray-backend/logging"
	"github.com/aereal/xray-backend/spanscope"
	"github.com/aws/aws-lambda-go/events"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	spanName = "hello-operation"
	greeting = "Hello World"
)

var (
	keyServiceOperation = attribute.Key("service.operation")
	keyCustomGreeting   = attribute.Key("custom.greeting")
)

// Response is the body returned by the hello endpoint.
type Response struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Service produces greetings.
type Service struct {
	tracer trace.Tracer
	clock  clockz.Clock
}

// New returns a Service that traces with tracer and stamps greetings with the real clock.
func New(tracer trace.Tracer) *Service {
	return &Service{tracer: tracer, clock: clockz.RealClock}
}

// WithClock returns a copy of s that reads the time from clock.
func (s *Service) WithClock(clock clockz.Clock) *Service {
	return &Service{tracer: s.tracer, clock: clock}
}

// Greet returns a greeting stamped with the current time in RFC 3339 (ISO 8601) form.
func (s *Service) Greet(ctx context.Context) (*Response, error) {
	var res *Response
	err := spanscope.Run(ctx, s.tracer, spanName, func(ctx context.Context, span trace.Span) error {
		logger := logging.From(ctx)
		logger.Info("Processing hello request")
		span.SetAttributes(keyServiceOperation.String("hello"), keyCustomGreeting.String(greeting))
		res = &Response{Message: greeting, Timestamp: s.clock.Now().UTC().Format(time.RFC3339Nano)}
		logger.Info("Returning hello response", zap.String("timestamp", res.Timestamp))
		return nil
	}, trace.WithSpanKind(trace.SpanKindInternal))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Handle is a route.Handler that responds with a greeting.
func (s *Service) Handle(ctx context.Context, _ *events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	res, err := s.Greet(ctx)
	if err != nil {
		return albresponse.InternalServerError(), err
	}
	return albresponse.JSON(http.StatusOK, res)
}
