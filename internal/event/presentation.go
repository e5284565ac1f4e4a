package event

import (
	"bytes"

	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/pkg/core"
)

// MaxHUDMessage bounds a decoded HUD message.
const MaxHUDMessage = 200

// MaxPersistentMessage bounds a decoded persistent HUD message, terminator included.
const MaxPersistentMessage = 512

// HUDMessage posts a transient HUD line.
type HUDMessage struct {
	Color int32
	Blink bool
	Text  string
}

func (*HUDMessage) Opcode() Opcode { return OpHUDMessage }

func (e *HUDMessage) Encode(w *stream.Writer) {
	w.Int32(e.Color)
	w.Bool(e.Blink)
	w.String(e.Text)
}

func (e *HUDMessage) Decode(r *stream.Reader) error {
	e.Color = r.Int32()
	e.Blink = r.Bool()
	e.Text = r.String(MaxHUDMessage)
	return nil
}

// PersistentHUD posts a HUD message that stays up for Time seconds.
// The text travels with a u16 length that counts its NUL terminator.
type PersistentHUD struct {
	core.PersistentMessage
}

func (*PersistentHUD) Opcode() Opcode { return OpPersistentHUD }

func (e *PersistentHUD) Encode(w *stream.Writer) {
	w.Int32(e.Color)
	w.Int32(e.X)
	w.Int32(e.Y)
	w.Float32(e.Time)
	w.Int32(e.Flags)
	w.Int32(e.Sound)
	text := make([]byte, 0, len(e.Text)+1)
	text = append(text, e.Text...)
	w.Bytes(append(text, 0))
}

func (e *PersistentHUD) Decode(r *stream.Reader) error {
	e.Color = r.Int32()
	e.X = r.Int32()
	e.Y = r.Int32()
	e.Time = r.Float32()
	e.Flags = r.Int32()
	e.Sound = r.Int32()
	text := r.Bytes(MaxPersistentMessage)
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	e.Text = string(text)
	return nil
}

// Sound2D plays a non-positional sound.
type Sound2D struct {
	Sound  int16
	Volume float32
}

func (*Sound2D) Opcode() Opcode { return OpSound2D }

func (e *Sound2D) Encode(w *stream.Writer) {
	w.Int16(e.Sound)
	w.Float32(e.Volume)
}

func (e *Sound2D) Decode(r *stream.Reader) error {
	e.Sound = r.Int16()
	e.Volume = r.Float32()
	return nil
}

// Sound3D plays a sound attached to an object.
type Sound3D struct {
	Object core.ObjectID
	Sound  int16
	Volume float32
}

func (*Sound3D) Opcode() Opcode { return OpSound3D }

func (e *Sound3D) Encode(w *stream.Writer) {
	w.Uint16(e.Object)
	w.Int16(e.Sound)
	w.Float32(e.Volume)
}

func (e *Sound3D) Decode(r *stream.Reader) error {
	e.Object = r.Uint16()
	e.Sound = r.Int16()
	e.Volume = r.Float32()
	return nil
}
