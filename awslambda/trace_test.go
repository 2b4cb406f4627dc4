package awslambda_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aereal/xray-backend/awslambda"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

const validTraceHeader = "Root=1-5759e988-bd862e3fe1be46a994272793;Parent=53995c3f42cd8ad8;Sampled=1"

func TestExtractFromALBRequest(t *testing.T) {
	testCases := []struct {
		name    string
		request *events.ALBTargetGroupRequest
		want    trace.SpanContext
	}{
		{
			name: "single-value header",
			request: &events.ALBTargetGroupRequest{
				Headers: map[string]string{"x-amzn-trace-id": validTraceHeader},
			},
			want: trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    mustTraceIDFromHex("5759e988bd862e3fe1be46a994272793"),
				SpanID:     mustSpanIDFromHex("53995c3f42cd8ad8"),
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			}),
		},
		{
			name: "multi-value header",
			request: &events.ALBTargetGroupRequest{
				MultiValueHeaders: map[string][]string{"X-Amzn-Trace-Id": {validTraceHeader}},
			},
			want: trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    mustTraceIDFromHex("5759e988bd862e3fe1be46a994272793"),
				SpanID:     mustSpanIDFromHex("53995c3f42cd8ad8"),
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			}),
		},
		{
			name:    "no header",
			request: &events.ALBTargetGroupRequest{},
			want:    trace.SpanContext{},
		},
		{
			name: "malformed header",
			request: &events.ALBTargetGroupRequest{
				Headers: map[string]string{"X-Amzn-Trace-Id": "Root=garbage"},
			},
			want: trace.SpanContext{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := awslambda.ExtractFromALBRequest(context.Background(), xray.Propagator{}, tc.request)
			got := trace.SpanContextFromContext(ctx)
			if diff := cmp.Diff(tc.want, got, cmp.Transformer("trace.SpanContext", transformSpanContext)); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
		})
	}
}

func TestStartTraceFromALBRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if deadline, ok := t.Deadline(); ok {
		ctx, cancel = context.WithDeadline(ctx, deadline)
	}
	defer cancel()
	testCases := []struct {
		name        string
		request     *events.ALBTargetGroupRequest
		lc          *lambdacontext.LambdaContext
		wantTraceID string
		wantSpans   tracetest.SpanStubs
	}{
		{
			name: "root span",
			request: &events.ALBTargetGroupRequest{
				HTTPMethod: "GET",
				Path:       "/api/hello",
			},
			wantSpans: tracetest.SpanStubs{
				{
					Name:     "alb-request-handler",
					SpanKind: trace.SpanKindServer,
					Attributes: []attribute.KeyValue{
						attribute.String("faas.trigger", "http"),
						attribute.String("http.request.method", "GET"),
						attribute.String("url.path", "/api/hello"),
					},
				},
			},
		},
		{
			name: "child of X-Ray parent",
			request: &events.ALBTargetGroupRequest{
				HTTPMethod: "POST",
				Path:       "/api/hello",
				Headers:    map[string]string{"X-Amzn-Trace-Id": validTraceHeader},
			},
			lc:          &lambdacontext.LambdaContext{AwsRequestID: "test-request-id-12345"},
			wantTraceID: "5759e988bd862e3fe1be46a994272793",
			wantSpans: tracetest.SpanStubs{
				{
					Name:     "alb-request-handler",
					SpanKind: trace.SpanKindServer,
					Attributes: []attribute.KeyValue{
						attribute.String("faas.trigger", "http"),
						attribute.String("http.request.method", "POST"),
						attribute.String("url.path", "/api/hello"),
						attribute.String("faas.invocation_id", "test-request-id-12345"),
						attribute.String("xray.trace_id", validTraceHeader),
					},
				},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
			reqCtx := ctx
			if tc.lc != nil {
				reqCtx = lambdacontext.NewContext(reqCtx, tc.lc)
			}
			reqCtx = awslambda.ExtractFromALBRequest(reqCtx, xray.Propagator{}, tc.request)
			_, span := awslambda.StartTraceFromALBRequest(reqCtx, tp.Tracer("test"), "alb-request-handler", tc.request)
			span.End()
			if err := tp.ForceFlush(ctx); err != nil {
				t.Fatal(err)
			}
			gotSpans := exporter.GetSpans()
			if diff := cmpSpans(tc.wantSpans, gotSpans); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
			if tc.wantTraceID != "" {
				if got := gotSpans[0].SpanContext.TraceID().String(); got != tc.wantTraceID {
					t.Errorf("trace ID: want %s but got %s", tc.wantTraceID, got)
				}
				if got := gotSpans[0].Parent.SpanID().String(); got != "53995c3f42cd8ad8" {
					t.Errorf("parent span ID: want 53995c3f42cd8ad8 but got %s", got)
				}
			} else if gotSpans[0].Parent.IsValid() {
				t.Errorf("expected a root span but got parent %s", gotSpans[0].Parent.SpanID())
			}
		})
	}
}

func cmpSpans(want, got tracetest.SpanStubs) string {
	opts := []cmp.Option{
		cmp.Transformer("attribute.KeyValue", transformKeyValue),
		cmp.Transformer("trace.SpanContext", transformSpanContext),
		cmpopts.IgnoreFields(sdktrace.Event{}, "Time"),
		cmpopts.IgnoreFields(tracetest.SpanStub{}, "Parent", "SpanContext", "StartTime", "EndTime", "DroppedAttributes", "DroppedEvents", "DroppedLinks", "ChildSpanCount", "Resource", "InstrumentationLibrary"),
	}
	return cmp.Diff(want, got, opts...)
}

func transformKeyValue(kv attribute.KeyValue) map[attribute.Key]any {
	return map[attribute.Key]any{kv.Key: kv.Value.AsInterface()}
}

func transformSpanContext(sc trace.SpanContext) map[string]any {
	b, err := json.Marshal(sc)
	if err != nil {
		panic(err)
	}
	var scc map[string]any
	if err := json.Unmarshal(b, &scc); err != nil {
		panic(err)
	}
	return scc
}

func mustSpanIDFromHex(v string) trace.SpanID {
	id, err := trace.SpanIDFromHex(v)
	if err != nil {
		panic(err)
	}
	return id
}

func mustTraceIDFromHex(v string) trace.TraceID {
	id, err := trace.TraceIDFromHex(v)
	if err != nil {
		panic(err)
	}
	return id
}
