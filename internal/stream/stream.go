// Package stream provides the fixed-width little-endian primitives demo files are made of.
package stream

import (
	"errors"
	"math"
)

var (
	// ErrEndOfStream is returned when the stream ends cleanly at an opcode boundary.
	ErrEndOfStream = errors.New("end of stream")
	// ErrTruncated is returned when the stream ends inside a payload.
	ErrTruncated = errors.New("stream truncated")
	// ErrBlobTooLarge is returned when a buffer does not fit its u16 length prefix.
	ErrBlobTooLarge = errors.New("blob exceeds 65535 bytes")
)

// MaxBlob is the largest length-prefixed buffer the format can carry.
const MaxBlob = math.MaxUint16
