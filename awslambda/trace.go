package awslambda

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	commonAttrs = []attribute.KeyValue{
		semconv.FaaSTriggerHTTP,
	}
	// KeyXRayTraceHeader holds the raw X-Amzn-Trace-Id header the request arrived with.
	KeyXRayTraceHeader = attribute.Key("xray.trace_id")
)

// HeaderXRayID is the header ALB uses to pass X-Ray trace context to its targets.
const HeaderXRayID = "X-Amzn-Trace-Id"

// ExtractFromALBRequest returns a context carrying the remote span context found in the request headers.
//
// If propagator is nil, the globally registered one is used. A missing or malformed header yields
// a context without a valid span context, so that spans started from it become root spans.
func ExtractFromALBRequest(ctx context.Context, propagator propagation.TextMapPropagator, req *events.ALBTargetGroupRequest) context.Context {
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return propagator.Extract(ctx, &ALBHeadersCarrier{Request: req})
}

// StartTraceFromALBRequest creates a new server span that handles a request forwarded by an ALB.
//
// ctx should be the one returned by [ExtractFromALBRequest]; the span becomes a child of the
// remote span context in it, or a root span if there is none.
//
// It conforms to [HTTP server convention] and records the invocation described by [lambdacontext.LambdaContext] if ctx has one.
//
// [HTTP server convention]: https://opentelemetry.io/docs/specs/semconv/http/http-spans/#http-server
func StartTraceFromALBRequest(ctx context.Context, tracer trace.Tracer, spanName string, req *events.ALBTargetGroupRequest) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(commonAttrs)+5)
	attrs = append(attrs, commonAttrs...)
	attrs = append(attrs,
		semconv.HTTPRequestMethodKey.String(req.HTTPMethod),
		semconv.URLPath(req.Path))
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		attrs = append(attrs, semconv.FaaSInvocationID(lc.AwsRequestID))
	}
	if lambdacontext.FunctionName != "" {
		attrs = append(attrs, semconv.FaaSName(lambdacontext.FunctionName))
	}
	if header := (&ALBHeadersCarrier{Request: req}).Get(HeaderXRayID); header != "" {
		attrs = append(attrs, KeyXRayTraceHeader.String(header))
	}
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	}
	return tracer.Start(ctx, spanName, opts...)
}
