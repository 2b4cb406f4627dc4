// Package telemetry builds the tracer provider the function exports spans with.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aereal/xray-backend/config"
	"github.com/aereal/xray-backend/flush"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Supported values of TelemetryConfig.Exporter.
const (
	ExporterOTLP = "otlp"
	ExporterNone = "none"
)

var ErrUnknownExporter = errors.New("unknown traces exporter")

// Provider owns the SDK tracer provider and knows how to flush it.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup builds a Provider from cfg and installs it together with the X-Ray propagator as the global ones.
//
// Trace IDs come from the X-Ray ID generator, so the first 8 hex digits carry the start time in epoch seconds.
func Setup(ctx context.Context, cfg config.Config) (*Provider, error) {
	p, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(xray.Propagator{})
	return p, nil
}

// New builds a Provider from cfg without touching the global state.
func New(ctx context.Context, cfg config.Config, extra ...sdktrace.TracerProviderOption) (*Provider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(Resource(cfg.Service)),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	switch cfg.Telemetry.Exporter {
	case ExporterOTLP, "":
		exporter, err := newOTLPExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case ExporterNone:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Telemetry.Exporter)
	}
	opts = append(opts, extra...)

	return &Provider{tp: sdktrace.NewTracerProvider(opts...)}, nil
}

func newOTLPExporter(ctx context.Context, cfg config.Config) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Telemetry.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(cfg.Service.Name + "/" + cfg.Service.Version)),
	}
	if cfg.Telemetry.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlptracegrpc.New: %w", err)
	}
	return exporter, nil
}

// Resource describes the function in every exported span.
func Resource(svc config.ServiceConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(svc.Name),
		semconv.ServiceVersion(svc.Version),
		semconv.CloudProviderAWS,
		semconv.CloudPlatformAWSLambda,
	)
}

// TracerProvider returns the provider to start spans from.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Tracer is a shorthand for p.TracerProvider().Tracer(name, opts...).
func (p *Provider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return p.tp.Tracer(name, opts...)
}

// Flusher returns what the per-invocation flush should force.
// Without span processors ForceFlush returns immediately.
func (p *Provider) Flusher() flush.Flusher {
	return p.tp
}

// Shutdown flushes the remaining spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}
