package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/internal/storage"
	"github.com/OCAP2/demo/pkg/core"
	"github.com/OCAP2/demo/pkg/streaming"
)

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Queued  = (*Backend)(nil)
)

// fakeFrontend upgrades every request and acks what it receives.
type fakeFrontend struct {
	// legacy acks by type only, like a protocol 1 server.
	legacy bool
	// dropAfter closes the first connection after this many messages
	// without acking the last one.
	dropAfter int

	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
	conns    atomic.Int32
}

func (f *fakeFrontend) handler(t *testing.T) http.Handler {
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.secret = r.URL.Query().Get("secret")
		f.mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		first := f.conns.Add(1) == 1

		received := 0
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			f.mu.Lock()
			f.messages = append(f.messages, env)
			f.mu.Unlock()

			received++
			if first && f.dropAfter > 0 && received == f.dropAfter {
				return
			}

			ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
			if !f.legacy {
				ack.Seq = env.Seq
			}
			data, _ := json.Marshal(ack)
			if err := c.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		}
	})
}

func (f *fakeFrontend) all() []streaming.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]streaming.Envelope, len(f.messages))
	copy(cp, f.messages)
	return cp
}

func (f *fakeFrontend) ofType(kind string) []streaming.Envelope {
	var out []streaming.Envelope
	for _, env := range f.all() {
		if env.Type == kind {
			out = append(out, env)
		}
	}
	return out
}

func startFrontend(t *testing.T, f *fakeFrontend) string {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newBackend(t *testing.T, url string) *Backend {
	t.Helper()
	b := New(config.WebSocketConfig{URL: url, Secret: "s3cret"}, discardLogger())
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestInitSendsHello(t *testing.T) {
	f := &fakeFrontend{}
	newBackend(t, startFrontend(t, f))

	msgs := f.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, streaming.TypeHello, msgs[0].Type)
	assert.Equal(t, uint64(1), msgs[0].Seq)

	var hello streaming.HelloPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &hello))
	assert.Equal(t, streaming.ProtocolVersion, hello.Protocol)
	assert.Equal(t, "demo", hello.Source)

	f.mu.Lock()
	assert.Equal(t, "s3cret", f.secret)
	f.mu.Unlock()
}

func TestRecordDemoWaitsForAck(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		name := "seq"
		if legacy {
			name = "legacy"
		}
		t.Run(name, func(t *testing.T) {
			f := &fakeFrontend{legacy: legacy}
			b := newBackend(t, startFrontend(t, f))

			d := &core.DemoRecord{Filename: "a.dem", Mission: core.Mission{Filename: "pilot.mn3", Level: 1}}
			require.NoError(t, b.RecordDemo(d))
			assert.Equal(t, uint(2), d.ID)

			sent := f.ofType(streaming.TypeDemoRecorded)
			require.Len(t, sent, 1)
			assert.Equal(t, uint64(2), sent[0].Seq)
			var payload streaming.DemoRecordedPayload
			require.NoError(t, json.Unmarshal(sent[0].Payload, &payload))
			assert.Equal(t, "a.dem", payload.Demo.Filename)

			demos, err := b.ListDemos()
			require.NoError(t, err)
			require.Len(t, demos, 1)
			assert.Equal(t, uint(2), demos[0].ID)
		})
	}
}

func TestRecordPlaybackIsFireAndForget(t *testing.T) {
	f := &fakeFrontend{}
	b := newBackend(t, startFrontend(t, f))

	r := &core.PlaybackReport{Filename: "a.dem", Outcome: "finished", Frames: 12}
	require.NoError(t, b.RecordPlayback(r))
	assert.Equal(t, uint(2), r.ID)

	require.Eventually(t, func() bool {
		return len(f.ofType(streaming.TypePlaybackReport)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var payload streaming.PlaybackReportPayload
	require.NoError(t, json.Unmarshal(f.ofType(streaming.TypePlaybackReport)[0].Payload, &payload))
	assert.Equal(t, uint32(12), payload.Report.Frames)

	require.Eventually(t, func() bool {
		return b.Pending() == 0
	}, 2*time.Second, 10*time.Millisecond, "report should be acked")
}

func TestReconnectReplaysUnacked(t *testing.T) {
	f := &fakeFrontend{dropAfter: 2}
	b := newBackend(t, startFrontend(t, f))

	r := &core.PlaybackReport{Filename: "lost.dem", Outcome: "aborted"}
	require.NoError(t, b.RecordPlayback(r))

	require.Eventually(t, func() bool {
		return f.conns.Load() == 2 && len(f.ofType(streaming.TypePlaybackReport)) == 2 && len(b.conn.pending()) == 0
	}, 5*time.Second, 20*time.Millisecond)

	hellos := f.ofType(streaming.TypeHello)
	require.Len(t, hellos, 2, "hello opens the new connection")
	reports := f.ofType(streaming.TypePlaybackReport)
	assert.Equal(t, reports[0].Seq, reports[1].Seq)
}

func TestAckResolution(t *testing.T) {
	c := newConnection(discardLogger())
	a, err := c.newMessage(streaming.TypePlaybackReport, nil)
	require.NoError(t, err)
	b, err := c.newMessage(streaming.TypePlaybackReport, nil)
	require.NoError(t, err)
	d, err := c.newMessage(streaming.TypeDemoRecorded, nil)
	require.NoError(t, err)
	for _, m := range []*message{a, b, d} {
		c.send(m)
	}

	c.ack(streaming.AckMessage{Type: streaming.TypeAck, For: streaming.TypeDemoRecorded, Seq: d.seq})
	c.ack(streaming.AckMessage{Type: streaming.TypeAck, For: streaming.TypePlaybackReport})
	c.ack(streaming.AckMessage{Type: streaming.TypeAck, Seq: 99})

	assert.True(t, isClosed(a.acked), "legacy ack resolves the oldest of its type")
	assert.False(t, isClosed(b.acked))
	assert.True(t, isClosed(d.acked))
	pending := c.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, b.seq, pending[0].seq)
}

func TestInitFailsWithoutServer(t *testing.T) {
	b := New(config.WebSocketConfig{URL: "ws://127.0.0.1:1"}, discardLogger())
	assert.Error(t, b.Init())
}

func TestInitInvalidURL(t *testing.T) {
	b := New(config.WebSocketConfig{URL: "://bad"}, discardLogger())
	assert.Error(t, b.Init())
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New(config.WebSocketConfig{URL: startFrontend(t, &fakeFrontend{})}, discardLogger())
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestSendAndWaitTimesOut(t *testing.T) {
	c := newConnection(discardLogger())
	m, err := c.newMessage("nothing", nil)
	require.NoError(t, err)
	assert.ErrorContains(t, c.sendAndWait(m, 20*time.Millisecond), "timeout")
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
