package event

import (
	"fmt"
	"math"

	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/pkg/core"
)

// PlayerInfo is the recording player's telemetry.
type PlayerInfo struct {
	core.PlayerInfo
}

func (*PlayerInfo) Opcode() Opcode { return OpPlayerInfo }

func (e *PlayerInfo) Encode(w *stream.Writer) {
	w.Int16(e.Energy)
	w.Int16(e.Shields)
	for _, a := range e.Ammo {
		w.Int16(a)
	}
	w.Int32(e.Primary)
	w.Int32(e.Secondary)
	w.Int32(e.WeaponFlags)
	w.Float32(e.AfterburnLeft)
	w.Float32(e.FOV)
}

func (e *PlayerInfo) Decode(r *stream.Reader) error {
	e.Energy = r.Int16()
	e.Shields = r.Int16()
	for i := range e.Ammo {
		e.Ammo[i] = r.Int16()
	}
	e.Primary = r.Int32()
	e.Secondary = r.Int32()
	e.WeaponFlags = r.Int32()
	e.AfterburnLeft = r.Float32()
	e.FOV = r.Float32()
	return nil
}

// PlayerBalls sets a player's rotating-ball cosmetics. At most
// core.MaxPlayerBalls colours are kept on decode.
type PlayerBalls struct {
	Slot int16
	core.BallState
}

func (*PlayerBalls) Opcode() Opcode { return OpPlayerBalls }

func (e *PlayerBalls) Encode(w *stream.Writer) {
	colors := e.Colors[:min(len(e.Colors), math.MaxUint8)]
	w.Int16(e.Slot)
	w.Uint8(uint8(len(colors)))
	if len(colors) == 0 {
		return
	}
	w.Float32(e.Speed)
	for _, c := range colors {
		w.Float32(c[0])
		w.Float32(c[1])
		w.Float32(c[2])
	}
}

func (e *PlayerBalls) Decode(r *stream.Reader) error {
	e.Slot = r.Int16()
	count := int(r.Uint8())
	e.Speed = 0
	e.Colors = nil
	if count == 0 {
		return nil
	}
	e.Speed = r.Float32()
	for i := 0; i < count; i++ {
		c := [3]float32{r.Float32(), r.Float32(), r.Float32()}
		if i < core.MaxPlayerBalls {
			e.Colors = append(e.Colors, c)
		}
	}
	return nil
}

// PlayerTypeChange switches a player between ship, ghost and observer.
type PlayerTypeChange struct {
	core.PlayerTypeChange
}

func (*PlayerTypeChange) Opcode() Opcode { return OpPlayerTypeChange }

func (e *PlayerTypeChange) Encode(w *stream.Writer) {
	w.Uint8(e.Slot)
	w.Uint8(uint8(e.Type))
	switch e.Type {
	case core.ObjPlayer:
		w.Bool(e.StopObserving)
	case core.ObjObserver:
		w.Int32(int32(e.Mode))
		if e.Mode == core.ObserverPiggyback {
			w.Int32(e.Piggyback)
		}
	}
}

func (e *PlayerTypeChange) Decode(r *stream.Reader) error {
	e.Slot = r.Uint8()
	e.Type = core.ObjectType(r.Uint8())
	switch e.Type {
	case core.ObjPlayer:
		e.StopObserving = r.Bool()
	case core.ObjGhost:
	case core.ObjObserver:
		e.Mode = core.ObserverMode(r.Int32())
		if e.Mode == core.ObserverPiggyback {
			e.Piggyback = r.Int32()
		}
	default:
		if r.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: player type %s", ErrMalformed, e.Type)
	}
	return nil
}
