package event

import "github.com/OCAP2/demo/internal/stream"

// Blob is an opaque length-prefixed payload owned by another subsystem.
type Blob struct {
	Data []byte
}

func (e *Blob) Encode(w *stream.Writer) { w.Bytes(e.Data) }

func (e *Blob) Decode(r *stream.Reader) error {
	e.Data = r.Bytes(stream.MaxBlob)
	return nil
}

// Cinematics is in-game cinematic state.
type Cinematics struct{ Blob }

func (*Cinematics) Opcode() Opcode { return OpCinematics }

// MultiSafe is a scripting multisafe packet.
type MultiSafe struct{ Blob }

func (*MultiSafe) Opcode() Opcode { return OpMultiSafe }

// Powerup is a powerup synchronisation packet.
type Powerup struct{ Blob }

func (*Powerup) Opcode() Opcode { return OpPowerup }
