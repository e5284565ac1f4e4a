package websocket

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/pkg/core"
	"github.com/OCAP2/demo/pkg/streaming"
)

// Backend streams catalog entries to the web frontend. Recordings wait for
// the server's ack; playback reports are delivered at least once without
// blocking the caller. It implements storage.Backend.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig

	mu    sync.Mutex
	demos []core.DemoRecord
}

func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
	}
}

// Init connects and waits for the server to ack the hello.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}
	hello, err := b.conn.newMessage(streaming.TypeHello, streaming.HelloPayload{
		Protocol: streaming.ProtocolVersion,
		Source:   "demo",
	})
	if err != nil {
		return err
	}
	b.conn.setHello(hello)
	return b.conn.sendAndWait(hello, ackTimeout)
}

func (b *Backend) Close() error {
	return b.conn.close()
}

// RecordDemo sends the recording and waits for the ack. The sequence
// number doubles as the catalog ID.
func (b *Backend) RecordDemo(d *core.DemoRecord) error {
	seq := b.conn.nextSeq()
	d.ID = uint(seq)
	m, err := encode(seq, streaming.TypeDemoRecorded, streaming.DemoRecordedPayload{Demo: d})
	if err != nil {
		return err
	}
	if err := b.conn.sendAndWait(m, ackTimeout); err != nil {
		return err
	}
	b.mu.Lock()
	b.demos = append(b.demos, *d)
	b.mu.Unlock()
	return nil
}

// RecordPlayback queues the report and returns immediately.
func (b *Backend) RecordPlayback(r *core.PlaybackReport) error {
	seq := b.conn.nextSeq()
	r.ID = uint(seq)
	m, err := encode(seq, streaming.TypePlaybackReport, streaming.PlaybackReportPayload{Report: r})
	if err != nil {
		return err
	}
	b.conn.send(m)
	return nil
}

// ListDemos returns the recordings acknowledged during this run.
func (b *Backend) ListDemos() ([]core.DemoRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.DemoRecord, len(b.demos))
	copy(out, b.demos)
	return out, nil
}

// Pending is the number of messages the server has not acked yet.
func (b *Backend) Pending() int {
	return len(b.conn.pending())
}
