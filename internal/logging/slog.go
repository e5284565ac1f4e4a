package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// osStdout is the console sink; tests swap it.
var osStdout io.Writer = os.Stdout

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SlogManager owns the process logger. Records fan out to a file or the
// console, and optionally to Graylog and an OTel log provider.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider

	gelf      *gelf.Writer
	gelfLevel slog.Level
	context   ContextProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case, with optional offsets
// such as "debug+2". Anything else is info.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// EnableGraylog adds a GELF sink for records at or above level.
// Call before Setup.
func (m *SlogManager) EnableGraylog(address, level string) error {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return fmt.Errorf("graylog writer %s: %w", address, err)
	}
	m.gelf, m.gelfLevel = w, parseLevel(level)
	return nil
}

// SetContextProvider adds dynamic attributes, such as the active demo, to
// every record. Call before Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.context = p
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey || len(groups) > 0 {
				return a
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.UTC().Format(timeLayout))
			}
			return a
		},
	}
}

func (m *SlogManager) sinks(file io.Writer, level slog.Level) []Sink {
	opts := handlerOptions(level)

	out := []Sink{{Name: "file", Handler: slog.NewTextHandler(file, opts)}}
	if file == nil {
		out[0] = Sink{Name: "console", Handler: slog.NewTextHandler(osStdout, opts)}
	}
	if m.gelf != nil {
		out = append(out, Sink{Name: "graylog", Handler: slog.NewJSONHandler(m.gelf, opts), Level: m.gelfLevel})
	}
	if m.provider != nil {
		out = append(out, Sink{
			Name:    "otel",
			Handler: otelslog.NewHandler("demo", otelslog.WithLoggerProvider(m.provider)),
			Level:   level,
		})
	}
	return out
}

// Setup (re)builds the logger. A nil file logs to the console and a nil
// provider skips OTel.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.provider = provider

	var h slog.Handler = NewMultiHandler(m.sinks(file, lvl)...)
	if m.context != nil {
		h = NewContextHandler(h, m.context)
	}
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}

// Flush exports buffered OTel records.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

// Close releases the Graylog connection. It is safe to call twice.
func (m *SlogManager) Close() error {
	w := m.gelf
	m.gelf = nil
	if w == nil {
		return nil
	}
	return w.Close()
}

// WriteLog logs a message on behalf of a host function.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
