// Package event defines every record that can appear in a demo stream
// after the header, and the closed dispatch that decodes them.
package event

import (
	"errors"
	"fmt"

	"github.com/OCAP2/demo/internal/stream"
)

var (
	// ErrUnknownOpcode is matched by UnknownOpcodeError.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrMalformed is returned when a payload decodes but its contents are invalid.
	ErrMalformed = errors.New("malformed event")
)

// UnknownOpcodeError reports a byte that is not in the catalogue.
type UnknownOpcodeError struct {
	Opcode byte
	Offset int64
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %d at offset %d", e.Opcode, e.Offset)
}

func (e *UnknownOpcodeError) Is(target error) bool {
	return target == ErrUnknownOpcode
}

// Event is one record of the stream. Encode and Decode must stay in
// lock-step: Decode consumes exactly the bytes Encode produced.
type Event interface {
	Opcode() Opcode
	Encode(w *stream.Writer)
	Decode(r *stream.Reader) error
}

var catalogue = map[Opcode]func() Event{
	OpObjectChanged:    func() Event { return &ObjectChanged{} },
	OpNewFrame:         func() Event { return &NewFrame{} },
	OpWeaponFire:       func() Event { return &WeaponFire{} },
	OpHUDMessage:       func() Event { return &HUDMessage{} },
	OpSound3D:          func() Event { return &Sound3D{} },
	OpObjectCreated:    func() Event { return &ObjectCreated{} },
	OpAnimUpdate:       func() Event { return &AnimUpdate{} },
	OpTurretUpdate:     func() Event { return &TurretUpdate{} },
	OpKillObject:       func() Event { return &KillObject{} },
	OpPlayerDeath:      func() Event { return &PlayerDeath{} },
	OpCollidePlayer:    func() Event { return &CollidePlayer{} },
	OpCollideGeneric:   func() Event { return &CollideGeneric{} },
	OpAttach:           func() Event { return &Attach{} },
	OpAttachRadius:     func() Event { return &AttachRadius{} },
	OpUnattach:         func() Event { return &Unattach{} },
	OpWeaponFireFlag:   func() Event { return &WeaponFireFlag{} },
	OpPlayerInfo:       func() Event { return &PlayerInfo{} },
	OpMultiSafe:        func() Event { return &MultiSafe{} },
	OpPowerup:          func() Event { return &Powerup{} },
	OpCinematics:       func() Event { return &Cinematics{} },
	OpPersistentHUD:    func() Event { return &PersistentHUD{} },
	OpSetObjectDead:    func() Event { return &SetObjectDead{} },
	OpPlayerBalls:      func() Event { return &PlayerBalls{} },
	OpPlayerTypeChange: func() Event { return &PlayerTypeChange{} },
	OpObjectLifeLeft:   func() Event { return &ObjectLifeLeft{} },
	OpSound2D:          func() Event { return &Sound2D{} },
}

// New returns an empty event for op.
func New(op Opcode) (Event, bool) {
	newEvent, ok := catalogue[op]
	if !ok {
		return nil, false
	}
	return newEvent(), true
}

// Write appends ev's opcode and payload.
func Write(w *stream.Writer, ev Event) {
	w.Uint8(uint8(ev.Opcode()))
	ev.Encode(w)
}

// Read decodes the next event.
//
// It returns stream.ErrEndOfStream when the stream ends at an opcode
// boundary, an error matching stream.ErrTruncated when it ends inside a
// payload, and an *UnknownOpcodeError for a byte outside the catalogue.
func Read(r *stream.Reader) (Event, error) {
	b, err := r.Opcode()
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	ev, ok := New(op)
	if !ok {
		return nil, &UnknownOpcodeError{Opcode: b, Offset: r.Offset() - 1}
	}
	if err := ev.Decode(r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", op, err)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", op, err)
	}
	return ev, nil
}
