package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/OCAP2/demo/internal/config"
)

// ErrNoExporter is returned when neither a log writer nor an OTLP
// endpoint is configured.
var ErrNoExporter = errors.New("otel: no log writer or endpoint configured")

// Config selects the log exporters. LogWriter and Endpoint are each
// optional but at least one must be set.
type Config struct {
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration

	LogWriter io.Writer
	Pretty    bool

	Endpoint string
	Insecure bool
	Headers  map[string]string
}

// FromConfig builds a Config from the loaded settings.
func FromConfig(c config.OTelConfig, version string, logWriter io.Writer) Config {
	return Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
		BatchTimeout:   c.BatchTimeout,
		LogWriter:      logWriter,
		Pretty:         c.Pretty,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Headers:        c.Headers,
	}
}

// Provider owns the log provider the otelslog bridge writes to.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	exporters   []string

	shutdown sync.Once
	err      error
}

// New creates the log provider with one batch processor per exporter.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	p := &Provider{}
	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	batch := []sdklog.BatchProcessorOption{sdklog.WithExportTimeout(cfg.BatchTimeout)}

	if cfg.LogWriter != nil {
		exp, err := fileExporter(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp, batch...)))
		p.exporters = append(p.exporters, "file")
	}
	if cfg.Endpoint != "" {
		exp, err := otlpExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp, batch...)))
		p.exporters = append(p.exporters, "otlp")
	}
	if len(p.exporters) == 0 {
		return nil, ErrNoExporter
	}

	p.logProvider = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

func fileExporter(cfg Config) (sdklog.Exporter, error) {
	opts := []stdoutlog.Option{stdoutlog.WithWriter(cfg.LogWriter)}
	if cfg.Pretty {
		opts = append(opts, stdoutlog.WithPrettyPrint())
	}
	exp, err := stdoutlog.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("otel file exporter: %w", err)
	}
	return exp, nil
}

func otlpExporter(ctx context.Context, cfg Config) (sdklog.Exporter, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
	}
	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel otlp exporter: %w", err)
	}
	return exp, nil
}

// LoggerProvider returns the provider for the otelslog bridge.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Exporters names the active exporters, "file" and/or "otlp".
func (p *Provider) Exporters() []string {
	return p.exporters
}

// Flush exports every buffered record, for example when a demo session ends.
func (p *Provider) Flush(ctx context.Context) error {
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("otel flush: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the provider. Later calls return the first result.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdown.Do(func() {
		if err := p.logProvider.Shutdown(ctx); err != nil {
			p.err = fmt.Errorf("otel shutdown: %w", err)
		}
	})
	return p.err
}
