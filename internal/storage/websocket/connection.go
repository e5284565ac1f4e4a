package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/demo/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	queueSize    = 256
	maxInflight  = 1024
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	dialTimeout  = 5 * time.Second
)

// message is one envelope waiting for its ack.
type message struct {
	seq   uint64
	kind  string
	data  []byte
	acked chan struct{}
}

// connection owns the socket. Every message stays in the inflight set
// until the server acks it and is written again after a reconnect.
type connection struct {
	logger *slog.Logger
	dialer *ws.Dialer

	seq   atomic.Uint64
	queue chan *message
	done  chan struct{}

	mu           sync.Mutex
	conn         *ws.Conn
	inflight     map[uint64]*message
	hello        []byte
	reconnecting bool
	closed       bool

	wsURL  string
	secret string
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		logger:   logger,
		dialer:   &ws.Dialer{HandshakeTimeout: dialTimeout, Proxy: ws.DefaultDialer.Proxy},
		queue:    make(chan *message, queueSize),
		done:     make(chan struct{}),
		inflight: make(map[uint64]*message),
	}
}

// nextSeq reserves the next sequence number.
func (c *connection) nextSeq() uint64 {
	return c.seq.Add(1)
}

// newMessage encodes payload under the next sequence number.
func (c *connection) newMessage(kind string, payload any) (*message, error) {
	return encode(c.nextSeq(), kind, payload)
}

func encode(seq uint64, kind string, payload any) (*message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: kind, Seq: seq, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", kind, err)
	}
	return &message{seq: seq, kind: kind, data: data, acked: make(chan struct{})}, nil
}

// dial connects and starts the read and write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) current(conn *ws.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop serves one socket. It exits when the socket is replaced or a
// write fails; an unsent message goes back on the queue.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case m := <-c.queue:
			if !c.current(conn) {
				c.requeue(m)
				return
			}
			if err := write(conn, m.data); err != nil {
				c.logger.Warn("WebSocket write error", "seq", m.seq, "error", err)
				c.requeue(m)
				go c.reconnect(conn)
				return
			}
		}
	}
}

func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if c.current(conn) {
				c.logger.Warn("WebSocket read error", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(raw, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring server message", "raw", string(raw))
			continue
		}
		c.ack(ack)
	}
}

// ack resolves the message named by a. Acks without a sequence number
// resolve the oldest inflight message of the named type.
func (c *connection) ack(a streaming.AckMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.inflight[a.Seq]
	if !ok && a.Seq == 0 {
		for _, cand := range c.inflight {
			if cand.kind == a.For && (m == nil || cand.seq < m.seq) {
				m = cand
			}
		}
		ok = m != nil
	}
	if !ok {
		return
	}
	delete(c.inflight, m.seq)
	close(m.acked)
}

func (c *connection) requeue(m *message) {
	c.mu.Lock()
	_, waiting := c.inflight[m.seq]
	c.mu.Unlock()
	if !waiting {
		return
	}
	select {
	case c.queue <- m:
	default:
	}
}

// send tracks m and hands it to the writer. When the queue is full the
// message stays tracked and goes out with the next reconnect replay.
func (c *connection) send(m *message) {
	c.mu.Lock()
	if len(c.inflight) >= maxInflight {
		oldest := ^uint64(0)
		for seq := range c.inflight {
			if seq < oldest {
				oldest = seq
			}
		}
		delete(c.inflight, oldest)
		c.logger.Warn("WebSocket inflight limit reached, dropping oldest message", "seq", oldest)
	}
	c.inflight[m.seq] = m
	c.mu.Unlock()

	select {
	case c.queue <- m:
	default:
		c.logger.Warn("WebSocket queue full, message deferred", "seq", m.seq, "type", m.kind)
	}
}

// sendAndWait sends m and blocks until the server acks it.
func (c *connection) sendAndWait(m *message, timeout time.Duration) error {
	c.send(m)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.acked:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %s #%d", m.kind, m.seq)
	case <-c.done:
		return fmt.Errorf("connection closed while waiting for ack of %s #%d", m.kind, m.seq)
	}
}

// setHello remembers the hello so it opens every reconnected socket.
func (c *connection) setHello(m *message) {
	c.mu.Lock()
	c.hello = m.data
	c.mu.Unlock()
}

// pending returns the unacked messages in send order.
func (c *connection) pending() []*message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*message, 0, len(c.inflight))
	for _, m := range c.inflight {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// reconnect replaces a broken socket with exponential backoff, then
// writes the hello and every unacked message before resuming.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.reconnecting || c.conn != broken {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.conn = nil
	c.mu.Unlock()
	_ = broken.Close()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		if err := c.replay(conn); err != nil {
			c.logger.Warn("Replay after reconnect failed", "attempt", attempt, "error", err)
			_ = conn.Close()
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}
	c.logger.Error("WebSocket reconnect failed", "attempts", maxReconnect, "unacked", len(c.pending()))
}

func (c *connection) replay(conn *ws.Conn) error {
	c.mu.Lock()
	hello := c.hello
	c.mu.Unlock()
	if hello != nil {
		if err := write(conn, hello); err != nil {
			return fmt.Errorf("hello: %w", err)
		}
	}
	for _, m := range c.pending() {
		if m.kind == streaming.TypeHello {
			continue
		}
		if err := write(conn, m.data); err != nil {
			return fmt.Errorf("message #%d: %w", m.seq, err)
		}
	}
	return nil
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	unacked := len(c.inflight)
	c.mu.Unlock()

	if unacked > 0 {
		c.logger.Warn("Closing WebSocket with unacknowledged catalog messages", "count", unacked)
	}
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return conn.Close()
}
