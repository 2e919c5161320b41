// Package tracing installs the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/learnloop/internal/logger"
)

// Exporters.
const (
	ExporterNone   = ""
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config selects the span exporter.
type Config struct {
	Exporter    string
	ServiceName string
	Version     string
	// Writer receives stdout spans. Defaults to os.Stderr so spans never
	// mix with command output.
	Writer io.Writer
}

// ConfigFromEnv reads LEARNLOOP_TRACE (stdout or otlp). The OTLP exporter
// honors the standard OTEL_EXPORTER_OTLP_* variables.
func ConfigFromEnv(version string) Config {
	return Config{
		Exporter:    strings.ToLower(strings.TrimSpace(os.Getenv("LEARNLOOP_TRACE"))),
		ServiceName: "learnloop",
		Version:     version,
	}
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Init installs a global tracer provider. With no exporter it leaves the
// no-op provider in place.
func Init(ctx context.Context, cfg Config, log *logger.Logger) (Shutdown, error) {
	log = logger.OrNop(log)
	noop := func(context.Context) error { return nil }

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return noop, err
	}
	if exporter == nil {
		return noop, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = "learnloop"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("tracing initialized", "exporter", cfg.Exporter)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterNone, "off", "none":
		return nil, nil
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLP:
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
