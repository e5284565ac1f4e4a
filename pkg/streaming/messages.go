// Package streaming defines the messages the websocket catalog backend
// exchanges with the web frontend.
package streaming

import (
	"encoding/json"

	"github.com/OCAP2/demo/pkg/core"
)

const (
	TypeHello          = "hello"
	TypeDemoRecorded   = "demo_recorded"
	TypePlaybackReport = "playback_report"
	TypeAck            = "ack"
)

// ProtocolVersion is sent in the hello message. Version 2 added sequence
// numbers to envelopes and acks.
const ProtocolVersion = 2

// Envelope wraps every message sent to the server. Seq is unique per
// connection source and increases with each message.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage acknowledges one envelope. Servers speaking protocol 1 leave
// Seq empty and only name the acknowledged type.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
	Seq  uint64 `json:"seq,omitempty"`
}

// HelloPayload opens a session with the server.
type HelloPayload struct {
	Protocol int    `json:"protocol"`
	Source   string `json:"source"`
}

// DemoRecordedPayload announces a finished recording.
type DemoRecordedPayload struct {
	Demo *core.DemoRecord `json:"demo"`
}

// PlaybackReportPayload carries the statistics of one playback run.
type PlaybackReportPayload struct {
	Report *core.PlaybackReport `json:"report"`
}
