package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/OCAP2/demo/internal/config"
)

func TestNewWithoutExporter(t *testing.T) {
	_, err := New(context.Background(), Config{ServiceName: "demo"})
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestFileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "demo-test",
		BatchTimeout: time.Second,
	}, "1.2.3", &buf))
	require.NoError(t, err)
	assert.Equal(t, []string{"file"}, p.Exporters())

	logger := otelslog.NewLogger("demo", otelslog.WithLoggerProvider(p.LoggerProvider()))
	logger.Info("playback finished", "file", "intro.dem")

	require.NoError(t, p.Flush(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "playback finished")
	assert.Contains(t, out, "demo-test")
	assert.Contains(t, out, "1.2.3")
	assert.NotContains(t, out, "\n  ", "compact output unless pretty is set")

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestFileAndOTLPExporters(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Config{
		ServiceName:  "demo",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
		Pretty:       true,
		Endpoint:     "127.0.0.1:4318",
		Insecure:     true,
		Headers:      map[string]string{"x-api-key": "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "otlp"}, p.Exporters())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}
