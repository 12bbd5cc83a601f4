// Package telemetry sets up OpenTelemetry trace and log export over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/viewfsm/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const defaultTimeout = 5 * time.Second

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Enabled        bool
	Timeout        time.Duration
}

// ConfigFrom extracts the telemetry settings from the application config.
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.OTel.ServiceVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
		Timeout:        cfg.OTel.Timeout,
	}
}

// Option overrides how Initialize builds the providers.
type Option func(*options)

type options struct {
	spanExporter sdktrace.SpanExporter
	logExporter  sdklog.Exporter
	logger       *slog.Logger
}

// WithSpanExporter replaces the OTLP trace exporter.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.spanExporter = exp
	}
}

// WithLogExporter replaces the OTLP log exporter.
func WithLogExporter(exp sdklog.Exporter) Option {
	return func(o *options) {
		o.logExporter = exp
	}
}

// WithLogger sets where Initialize and Shutdown report progress.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Provider owns the trace and log providers created by Initialize. The zero
// value, and the Provider returned when telemetry is disabled, is a no-op.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
	logger         *slog.Logger
}

// Initialize installs global trace and propagation providers and builds a log
// provider for the otelslog bridge. A disabled config or one without an
// endpoint yields a no-op Provider.
func Initialize(ctx context.Context, cfg *Config, opts ...Option) (*Provider, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("OpenTelemetry is disabled")

		return &Provider{logger: o.logger}, nil
	}

	if cfg.Endpoint == "" && o.spanExporter == nil {
		o.logger.Warn("OpenTelemetry endpoint not configured, telemetry will be disabled")

		return &Provider{logger: o.logger}, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	spanExporter := o.spanExporter
	if spanExporter == nil {
		spanExporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithTimeout(timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
	}

	logExporter := o.logExporter
	if logExporter == nil {
		logExporter, err = otlploghttp.New(ctx,
			otlploghttp.WithEndpointURL(cfg.Endpoint),
			otlploghttp.WithTimeout(timeout),
		)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("failed to create OTLP log exporter: %w", err),
				spanExporter.Shutdown(ctx),
			)
		}
	}

	p := &Provider{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		),
		loggerProvider: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		),
		logger: o.logger,
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	o.logger.Info("OpenTelemetry initialized",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint,
	)

	return p, nil
}

// Enabled reports whether Initialize installed real providers.
func (p *Provider) Enabled() bool {
	return p != nil && p.tracerProvider != nil
}

// LoggerProvider returns the log provider for the otelslog bridge, or nil when
// telemetry is disabled.
func (p *Provider) LoggerProvider() otellog.LoggerProvider {
	if p == nil || p.loggerProvider == nil {
		return nil
	}

	return p.loggerProvider
}

// ForceFlush exports everything buffered so far.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	return errors.Join(p.tracerProvider.ForceFlush(ctx), p.loggerProvider.ForceFlush(ctx))
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	p.logger.Info("Shutting down OpenTelemetry providers")

	return errors.Join(p.tracerProvider.Shutdown(ctx), p.loggerProvider.Shutdown(ctx))
}
