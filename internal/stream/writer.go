package stream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/OCAP2/demo/pkg/core"
)

// Writer appends primitives to an underlying stream.
// The first write error is kept and every later write becomes a no-op;
// callers check Err or the result of Flush once they are done.
type Writer struct {
	w       *bufio.Writer
	err     error
	written int64
	scratch [8]byte
}

// NewWriter wraps w in a buffered primitive writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Written returns the number of bytes accepted so far.
func (w *Writer) Written() int64 {
	return w.written
}

// Flush pushes buffered bytes to the underlying stream.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = fmt.Errorf("flush: %w", err)
	}
	return w.err
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.written += int64(n)
	if err != nil {
		w.err = fmt.Errorf("write: %w", err)
	}
}

// Uint8 writes a single byte.
func (w *Writer) Uint8(v uint8) {
	w.scratch[0] = v
	w.write(w.scratch[:1])
}

// Bool writes a byte that is 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
		return
	}
	w.Uint8(0)
}

// Uint16 writes an unsigned short.
func (w *Writer) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	w.write(w.scratch[:2])
}

// Int16 writes a signed short.
func (w *Writer) Int16(v int16) {
	w.Uint16(uint16(v))
}

// Uint32 writes an unsigned int.
func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.write(w.scratch[:4])
}

// Int32 writes a signed int.
func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

// Float32 writes an IEEE-754 single.
func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

// String writes s followed by a NUL terminator. Anything from an embedded
// NUL on is dropped, as a reader would stop there.
func (w *Writer) String(s string) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	w.write([]byte(s))
	w.Uint8(0)
}

// Bytes writes a u16 length prefix followed by p.
func (w *Writer) Bytes(p []byte) {
	if len(p) > MaxBlob {
		if w.err == nil {
			w.err = fmt.Errorf("%w: %d", ErrBlobTooLarge, len(p))
		}
		return
	}
	w.Uint16(uint16(len(p)))
	w.write(p)
}

// Raw writes p with no framing.
func (w *Writer) Raw(p []byte) {
	w.write(p)
}

// Vector writes x, y, z.
func (w *Writer) Vector(v core.Vector) {
	w.Float32(v.X)
	w.Float32(v.Y)
	w.Float32(v.Z)
}

// Matrix writes the right, up and forward vectors in that order.
func (w *Writer) Matrix(m core.Matrix) {
	w.Vector(m.Right)
	w.Vector(m.Up)
	w.Vector(m.Forward)
}
