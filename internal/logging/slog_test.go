package logging

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetupSinkSelection(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		console := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("demo opened")

		assert.Contains(t, file.String(), "demo opened")
		assert.Contains(t, file.String(), "Logging initialized")
		assert.Empty(t, console())
	})
	t.Run("console", func(t *testing.T) {
		console := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("demo opened")
		assert.Contains(t, console(), "demo opened")
	})
}

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			buf.Reset()

			m.Logger().Debug("frame decoded")
			m.Logger().Info("frame shown")
			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "frame decoded"))
			assert.Equal(t, tt.wantInfo, strings.Contains(buf.String(), "frame shown"))
		})
	}
}

func TestSetupTimestampsUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)
	line := strings.SplitN(buf.String(), "\n", 2)[0]
	require.True(t, strings.HasPrefix(line, "time="), line)
	stamp := strings.Fields(line)[0][len("time="):]
	_, err := time.Parse(timeLayout, stamp)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stamp, "Z"))
}

func TestSetupTwiceSwitchesFile(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()
	m.Setup(&first, "info", nil)
	m.Setup(&second, "info", nil)
	m.Logger().Info("after switch")

	assert.NotContains(t, first.String(), "after switch")
	assert.Contains(t, second.String(), "after switch")
}

func TestManagerBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, m.Close())
	m.WriteLog("fn", "ignored", "info")
}

func TestWriteLog(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug", nil)

	m.WriteLog("StartRecording", "recording pilot.mn3", "warn")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="recording pilot.mn3"`)
	assert.Contains(t, buf.String(), "function=StartRecording")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"debug+2": slog.LevelDebug + 2,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func textSink(name string, buf *bytes.Buffer, level slog.Level) Sink {
	return Sink{Name: name, Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	multi := NewMultiHandler(textSink("a", &buf1, slog.LevelInfo), textSink("b", &buf2, slog.LevelInfo))
	slog.New(multi).Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_SinkLevelFloor(t *testing.T) {
	var file, remote bytes.Buffer
	remoteSink := textSink("graylog", &remote, slog.LevelDebug)
	remoteSink.Level = slog.LevelWarn
	logger := slog.New(NewMultiHandler(textSink("file", &file, slog.LevelDebug), remoteSink))

	logger.Debug("frame decoded")
	logger.Warn("demo ends mid-event")

	assert.Contains(t, file.String(), "frame decoded")
	assert.Contains(t, file.String(), "demo ends mid-event")
	assert.NotContains(t, remote.String(), "frame decoded")
	assert.Contains(t, remote.String(), "demo ends mid-event")
}

func TestMultiHandler_DropsEmptySinks(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(Sink{Name: "nil"}, textSink("file", &buf, slog.LevelInfo))
	require.Len(t, multi.sinks, 1)

	slog.New(multi).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestMultiHandler_Enabled(t *testing.T) {
	info := textSink("info", &bytes.Buffer{}, slog.LevelInfo)
	debug := textSink("debug", &bytes.Buffer{}, slog.LevelDebug)

	infoOnly := NewMultiHandler(info)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewMultiHandler(info, debug)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))

	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(textSink("file", &buf, slog.LevelInfo))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "session")})).Info("with attrs")
	assert.Contains(t, buf.String(), "component=session")

	slog.New(multi.WithGroup("frame")).Info("grouped", "events", 3)
	assert.Contains(t, buf.String(), "frame.events=3")

	assert.Equal(t, multi, multi.WithGroup(""))
}

// errorHandler is a slog.Handler that always fails.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(Sink{Name: "broken", Handler: &errorHandler{}}, textSink("file", &buf, slog.LevelInfo))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "should reach file", 0)
	err := multi.Handle(context.Background(), r)

	assert.ErrorContains(t, err, "broken sink: handler error")
	assert.Contains(t, buf.String(), "should reach file")
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	mode := "playback"
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("mode", mode), slog.String("file", ""), slog.String("mission", "pilot.mn3")}
	})
	logger := slog.New(h)

	logger.Info("frame")
	assert.Contains(t, buf.String(), "mode=playback")
	assert.Contains(t, buf.String(), "mission=pilot.mn3")
	assert.NotContains(t, buf.String(), "file=")

	buf.Reset()
	logger.Info("override", "mission", "other.mn3")
	assert.Contains(t, buf.String(), "mission=other.mn3")
	assert.NotContains(t, buf.String(), "pilot.mn3")
}

func TestSetupWithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)
	m.Logger().Info("otel integrated")

	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

// captureStdout swaps the console sink for a buffer and returns a function
// that restores it and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	var buf bytes.Buffer
	orig := osStdout
	osStdout = &buf
	t.Cleanup(func() { osStdout = orig })

	return func() string {
		osStdout = orig
		return buf.String()
	}
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("demo", "intro.dem"), slog.String("mode", "playback")}
	})
	m.Setup(&buf, "info", nil)
	m.Logger().Info("frame")

	assert.Contains(t, buf.String(), "demo=intro.dem")
	assert.Contains(t, buf.String(), "mode=playback")
}

func TestEnableGraylog(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	m := NewSlogManager()
	require.NoError(t, m.EnableGraylog(conn.LocalAddr().String(), "info"))
	t.Cleanup(func() { m.Close() })

	var buf bytes.Buffer
	m.Setup(&buf, "info", nil)
	m.Logger().Info("graylog hello")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	packet := make([]byte, 8192)
	found := false
	for !found {
		n, _, err := conn.ReadFrom(packet)
		require.NoError(t, err)
		zr, err := gzip.NewReader(bytes.NewReader(packet[:n]))
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		found = strings.Contains(string(body), "graylog hello")
	}
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
