package event

import "github.com/OCAP2/demo/internal/stream"

// NewFrame ends a burst. Gametime is the time the next frame starts and
// Frametime the duration it was recorded with.
type NewFrame struct {
	Gametime  float32
	Frametime float32
}

func (*NewFrame) Opcode() Opcode { return OpNewFrame }

func (e *NewFrame) Encode(w *stream.Writer) {
	w.Float32(e.Gametime)
	w.Float32(e.Frametime)
}

func (e *NewFrame) Decode(r *stream.Reader) error {
	e.Gametime = r.Float32()
	e.Frametime = r.Float32()
	return nil
}
