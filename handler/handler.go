// Package handler implements the Lambda entry point for requests forwarded by an Application Load Balancer.
//
// Each invocation goes through the same steps: extract the X-Ray trace context from the request
// headers, start a server span as its child, dispatch the request, end the span, flush buffered
// spans and respond. Ending and flushing happen on every path, including failed requests.
package handler

import (
	"context"
	"net/http"

	"github.com/aereal/xray-backend/albresponse"
	"github.com/aereal/xray-backend/awslambda"
	"github.com/aereal/xray-backend/flush"
	"github.com/aereal/xray-backend/logging"
	"github.com/aereal/xray-backend/route"
	"github.com/aereal/xray-backend/spanscope"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	scope = "github.com/aereal/xray-backend/handler"
	// SpanName is the name of the server span started for each request.
	SpanName = "alb-request-handler"
)

type config struct {
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
	flusher        *flush.Coordinator
	logger         *zap.Logger
}

type Option func(*config)

// WithTracerProvider indicates the tracer provider to start spans from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithPropagator indicates the propagator that extracts trace context from request headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) { c.propagator = p }
}

// WithFlusher indicates how to flush spans before an invocation returns.
func WithFlusher(f *flush.Coordinator) Option {
	return func(c *config) { c.flusher = f }
}

// WithLogger indicates the logger every request logger derives from.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Handler handles ALB requests.
type Handler struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	routes     *route.Table
	flusher    *flush.Coordinator
	logger     *zap.Logger
}

// New returns a Handler dispatching with routes.
//
// Without options it uses the global tracer provider and propagator, does not flush and does not log.
func New(routes *route.Table, opts ...Option) *Handler {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.propagator == nil {
		cfg.propagator = otel.GetTextMapPropagator()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.flusher == nil {
		cfg.flusher = flush.New(flush.Nop, 0, cfg.logger)
	}
	return &Handler{
		tracer:     cfg.tracerProvider.Tracer(scope),
		propagator: cfg.propagator,
		routes:     routes,
		flusher:    cfg.flusher,
		logger:     cfg.logger,
	}
}

// Handle handles an invocation. The returned error is always nil: failures are reported in the response.
func (h *Handler) Handle(ctx context.Context, req events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With(zap.String("aws_request_id", lc.AwsRequestID))
	}
	ctx = logging.NewContext(ctx, logger)

	logger.Info("Received request",
		zap.String("method", req.HTTPMethod),
		zap.String("path", req.Path),
		zap.String("trace_header", (&awslambda.ALBHeadersCarrier{Request: &req}).Get(awslambda.HeaderXRayID)))

	ctx = awslambda.ExtractFromALBRequest(ctx, h.propagator, &req)
	logger.Info("Extracted context", zap.Bool("is_valid", trace.SpanContextFromContext(ctx).IsValid()))

	res := h.serve(ctx, &req)

	logger.Info("Span ended, flushing traces")
	h.flusher.Flush(ctx)
	return res, nil
}

func (h *Handler) serve(ctx context.Context, req *events.ALBTargetGroupRequest) (res events.ALBTargetGroupResponse) {
	ctx, sc := spanscope.Adopt(awslambda.StartTraceFromALBRequest(ctx, h.tracer, SpanName, req))
	defer sc.End()
	span := sc.Span()
	defer func() {
		if r := recover(); r != nil {
			res = h.fail(ctx, span, &spanscope.PanicError{Value: r})
		}
	}()

	logging.From(ctx).Info("Created span")

	res, err := h.routes.Lookup(req.HTTPMethod, req.Path)(ctx, req)
	if err != nil {
		return h.fail(ctx, span, err)
	}
	span.SetAttributes(semconv.HTTPResponseStatusCode(res.StatusCode))
	if res.StatusCode < http.StatusBadRequest {
		span.SetStatus(codes.Ok, "")
	}
	return res
}

func (h *Handler) fail(ctx context.Context, span trace.Span, err error) events.ALBTargetGroupResponse {
	logging.From(ctx).Error("Error processing request", zap.Error(err))
	spanscope.Fail(span, err)
	span.SetAttributes(semconv.HTTPResponseStatusCode(http.StatusInternalServerError))
	return albresponse.InternalServerError()
}
