package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
)

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(ctx context.Context) error

// Init installs the global tracer provider and propagator.
func Init(ctx context.Context, cfg config.TelemetryConfig, logger logrus.FieldLogger) (ShutdownFunc, error) {
	return initWithWriter(ctx, cfg, logger, os.Stdout)
}

func initWithWriter(ctx context.Context, cfg config.TelemetryConfig, logger logrus.FieldLogger, w io.Writer) (ShutdownFunc, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "storyquest"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
		attribute.String("service.component", "api"),
	))
	if err != nil {
		logger.WithError(err).Warn("otel resource init failed, continuing")
	}

	exporter, err := buildExporter(ctx, cfg, w)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.WithFields(logrus.Fields{
		"service":  serviceName,
		"exporter": exporterName(cfg.Exporter),
	}).Info("tracing initialized")
	return tp.Shutdown, nil
}

func exporterName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "none"
	}
	return name
}

func buildExporter(ctx context.Context, cfg config.TelemetryConfig, w io.Writer) (sdktrace.SpanExporter, error) {
	switch exporterName(cfg.Exporter) {
	case "none":
		return nil, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		return exp, nil
	case "otlp":
		var opts []otlptracehttp.Option
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

func sampleRatio(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
