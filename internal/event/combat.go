package event

import (
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/pkg/core"
)

// WeaponFire recreates a projectile. Checksum identifies the weapon
// independently of either session's weapon table order.
type WeaponFire struct {
	Gametime   float32
	Source     core.ObjectID
	Checksum   uint32
	Pos        core.Vector
	Dir        core.Vector
	Projectile core.ObjectID
	Gun        int16
}

func (*WeaponFire) Opcode() Opcode { return OpWeaponFire }

func (e *WeaponFire) Encode(w *stream.Writer) {
	w.Float32(e.Gametime)
	w.Uint16(e.Source)
	w.Uint32(e.Checksum)
	w.Vector(e.Pos)
	w.Vector(e.Dir)
	w.Uint16(e.Projectile)
	w.Int16(e.Gun)
}

func (e *WeaponFire) Decode(r *stream.Reader) error {
	e.Gametime = r.Float32()
	e.Source = r.Uint16()
	e.Checksum = r.Uint32()
	e.Pos = r.Vector()
	e.Dir = r.Vector()
	e.Projectile = r.Uint16()
	e.Gun = r.Int16()
	return nil
}

// Collision is a weapon hitting Target.
type Collision struct {
	Target  core.ObjectID
	Weapon  core.ObjectID
	Point   core.Vector
	Normal  core.Vector
	Reverse bool
}

func (e *Collision) Encode(w *stream.Writer) {
	w.Uint16(e.Target)
	w.Uint16(e.Weapon)
	w.Vector(e.Point)
	w.Vector(e.Normal)
	w.Bool(e.Reverse)
}

func (e *Collision) Decode(r *stream.Reader) error {
	e.Target = r.Uint16()
	e.Weapon = r.Uint16()
	e.Point = r.Vector()
	e.Normal = r.Vector()
	e.Reverse = r.Bool()
	return nil
}

// CollidePlayer is a weapon hitting a player.
type CollidePlayer struct{ Collision }

func (*CollidePlayer) Opcode() Opcode { return OpCollidePlayer }

// CollideGeneric is a weapon hitting a robot, building or other generic object.
type CollideGeneric struct{ Collision }

func (*CollideGeneric) Opcode() Opcode { return OpCollideGeneric }

// PlayerDeath replays a player dying.
type PlayerDeath struct {
	Object core.ObjectID
	Melee  bool
	Fate   int32
}

func (*PlayerDeath) Opcode() Opcode { return OpPlayerDeath }

func (e *PlayerDeath) Encode(w *stream.Writer) {
	w.Uint16(e.Object)
	w.Bool(e.Melee)
	w.Int32(e.Fate)
}

func (e *PlayerDeath) Decode(r *stream.Reader) error {
	e.Object = r.Uint16()
	e.Melee = r.Bool()
	e.Fate = r.Int32()
	return nil
}
