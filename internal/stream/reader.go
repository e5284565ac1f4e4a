package stream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/OCAP2/demo/pkg/core"
)

// Reader consumes primitives from an underlying stream.
//
// Payload reads share a sticky error: once a read fails every later read
// returns the zero value and Err reports the first failure. Running out of
// bytes inside a payload is always ErrTruncated. Opcode is the only read
// that can report a clean ErrEndOfStream.
type Reader struct {
	r       *bufio.Reader
	err     error
	read    int64
	size    int64
	scratch [8]byte
}

// NewReader wraps r. size is the total stream length or -1 when unknown.
func NewReader(r io.Reader, size int64) *Reader {
	return &Reader{r: bufio.NewReader(r), size: size}
}

// Err returns the first payload error.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 {
	return r.read
}

// Remaining returns the number of unread bytes, or -1 when the size is unknown.
func (r *Reader) Remaining() int64 {
	if r.size < 0 {
		return -1
	}
	return r.size - r.read
}

// Opcode reads the next opcode byte. A stream that ends exactly here
// yields ErrEndOfStream.
func (r *Reader) Opcode() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, ErrEndOfStream
		}
		r.err = fmt.Errorf("read opcode: %w", err)
		return 0, r.err
	}
	r.read++
	return b, nil
}

func (r *Reader) fill(p []byte) bool {
	if r.err != nil {
		clear(p)
		return false
	}
	n, err := io.ReadFull(r.r, p)
	r.read += int64(n)
	if err != nil {
		clear(p)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.err = fmt.Errorf("%w at offset %d", ErrTruncated, r.read)
		} else {
			r.err = fmt.Errorf("read: %w", err)
		}
		return false
	}
	return true
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	r.fill(r.scratch[:1])
	return r.scratch[0]
}

// Bool reads a byte and reports whether it is non-zero.
func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Uint16 reads an unsigned short.
func (r *Reader) Uint16() uint16 {
	r.fill(r.scratch[:2])
	return binary.LittleEndian.Uint16(r.scratch[:2])
}

// Int16 reads a signed short.
func (r *Reader) Int16() int16 {
	return int16(r.Uint16())
}

// Uint32 reads an unsigned int.
func (r *Reader) Uint32() uint32 {
	r.fill(r.scratch[:4])
	return binary.LittleEndian.Uint32(r.scratch[:4])
}

// Int32 reads a signed int.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Float32 reads an IEEE-754 single.
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// String reads a NUL-terminated string. At most max bytes are kept; the
// rest of an over-long string is consumed up to its terminator and dropped.
func (r *Reader) String(max int) string {
	buf := make([]byte, 0, min(max, 64))
	for r.err == nil {
		b, err := r.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.err = fmt.Errorf("%w at offset %d: unterminated string", ErrTruncated, r.read)
			} else {
				r.err = fmt.Errorf("read string: %w", err)
			}
			return ""
		}
		r.read++
		if b == 0 {
			return string(buf)
		}
		if len(buf) < max {
			buf = append(buf, b)
		}
	}
	return ""
}

// Bytes reads a u16 length prefix and that many bytes. When the declared
// length exceeds max, max bytes are kept and the remainder is skipped.
func (r *Reader) Bytes(max int) []byte {
	n := int(r.Uint16())
	if r.err != nil {
		return nil
	}
	if rem := r.Remaining(); rem >= 0 && int64(n) > rem {
		r.err = fmt.Errorf("%w at offset %d: blob of %d bytes, %d remain", ErrTruncated, r.read, n, rem)
		return nil
	}
	keep := min(n, max)
	buf := make([]byte, keep)
	if !r.fill(buf) {
		return nil
	}
	r.Skip(n - keep)
	return buf
}

// Raw reads exactly len(p) bytes into p.
func (r *Reader) Raw(p []byte) {
	r.fill(p)
}

// Skip discards n payload bytes.
func (r *Reader) Skip(n int) {
	if n <= 0 || r.err != nil {
		return
	}
	d, err := r.r.Discard(n)
	r.read += int64(d)
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.err = fmt.Errorf("%w at offset %d", ErrTruncated, r.read)
		} else {
			r.err = fmt.Errorf("skip: %w", err)
		}
	}
}

// Vector reads x, y, z.
func (r *Reader) Vector() core.Vector {
	return core.Vector{X: r.Float32(), Y: r.Float32(), Z: r.Float32()}
}

// Matrix reads the right, up and forward vectors.
func (r *Reader) Matrix() core.Matrix {
	return core.Matrix{Right: r.Vector(), Up: r.Vector(), Forward: r.Vector()}
}
