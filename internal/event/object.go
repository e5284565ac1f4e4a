package event

import (
	"math"

	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/pkg/core"
)

// ObjectChanged carries the transform of an object that moved this frame.
// Flags is only present for players and observers.
type ObjectChanged struct {
	Object   core.ObjectID
	Room     int32
	Pos      core.Vector
	Orient   core.Matrix
	HasFlags bool
	Flags    int32
}

func (*ObjectChanged) Opcode() Opcode { return OpObjectChanged }

func (e *ObjectChanged) Encode(w *stream.Writer) {
	w.Uint16(e.Object)
	w.Int32(e.Room)
	w.Vector(e.Pos)
	w.Matrix(e.Orient)
	w.Bool(e.HasFlags)
	if e.HasFlags {
		w.Int32(e.Flags)
	}
}

func (e *ObjectChanged) Decode(r *stream.Reader) error {
	e.Object = r.Uint16()
	e.Room = r.Int32()
	e.Pos = r.Vector()
	e.Orient = r.Matrix()
	e.HasFlags = r.Bool()
	if e.HasFlags {
		e.Flags = r.Int32()
	}
	return nil
}

// ObjectCreated recreates an object. InfoID is the type-specific info
// index as recorded; Object is the id the recorder assigned it.
type ObjectCreated struct {
	Type   core.ObjectType
	InfoID uint16
	Room   int32
	Pos    core.Vector
	Parent int32
	Orient *core.Matrix
	Object core.ObjectID
}

func (*ObjectCreated) Opcode() Opcode { return OpObjectCreated }

func (e *ObjectCreated) Encode(w *stream.Writer) {
	w.Uint8(uint8(e.Type))
	w.Bool(e.Orient != nil)
	w.Uint16(e.InfoID)
	w.Int32(e.Room)
	w.Vector(e.Pos)
	w.Int32(e.Parent)
	if e.Orient != nil {
		w.Matrix(*e.Orient)
	}
	w.Uint16(e.Object)
}

func (e *ObjectCreated) Decode(r *stream.Reader) error {
	e.Type = core.ObjectType(r.Uint8())
	hasOrient := r.Bool()
	e.InfoID = r.Uint16()
	e.Room = r.Int32()
	e.Pos = r.Vector()
	e.Parent = r.Int32()
	e.Orient = nil
	if hasOrient {
		m := r.Matrix()
		e.Orient = &m
	}
	e.Object = r.Uint16()
	return nil
}

// SetObjectDead marks an object for deletion and releases its id.
type SetObjectDead struct {
	Object core.ObjectID
}

func (*SetObjectDead) Opcode() Opcode { return OpSetObjectDead }

func (e *SetObjectDead) Encode(w *stream.Writer) { w.Uint16(e.Object) }

func (e *SetObjectDead) Decode(r *stream.Reader) error {
	e.Object = r.Uint16()
	return nil
}

// ObjectLifeLeft sets or clears an object's remaining lifetime.
type ObjectLifeLeft struct {
	Object   core.ObjectID
	Uses     bool
	LifeLeft float32
}

func (*ObjectLifeLeft) Opcode() Opcode { return OpObjectLifeLeft }

func (e *ObjectLifeLeft) Encode(w *stream.Writer) {
	w.Uint16(e.Object)
	w.Bool(e.Uses)
	if e.Uses {
		w.Float32(e.LifeLeft)
	}
}

func (e *ObjectLifeLeft) Decode(r *stream.Reader) error {
	e.Object = r.Uint16()
	e.Uses = r.Bool()
	e.LifeLeft = 0
	if e.Uses {
		e.LifeLeft = r.Float32()
	}
	return nil
}

// Attach links child to an attach point on parent.
type Attach struct {
	Parent      core.ObjectID
	ParentPoint uint8
	Child       core.ObjectID
	ChildPoint  uint8
	Aligned     bool
}

func (*Attach) Opcode() Opcode { return OpAttach }

func (e *Attach) Encode(w *stream.Writer) {
	w.Uint16(e.Parent)
	w.Uint8(e.ParentPoint)
	w.Uint16(e.Child)
	w.Uint8(e.ChildPoint)
	w.Bool(e.Aligned)
}

func (e *Attach) Decode(r *stream.Reader) error {
	e.Parent = r.Uint16()
	e.ParentPoint = r.Uint8()
	e.Child = r.Uint16()
	e.ChildPoint = r.Uint8()
	e.Aligned = r.Bool()
	return nil
}

// AttachRadius links child to parent at a fixed radius.
type AttachRadius struct {
	Parent      core.ObjectID
	ParentPoint uint8
	Child       core.ObjectID
	Radius      float32
}

func (*AttachRadius) Opcode() Opcode { return OpAttachRadius }

func (e *AttachRadius) Encode(w *stream.Writer) {
	w.Uint16(e.Parent)
	w.Uint8(e.ParentPoint)
	w.Uint16(e.Child)
	w.Float32(e.Radius)
}

func (e *AttachRadius) Decode(r *stream.Reader) error {
	e.Parent = r.Uint16()
	e.ParentPoint = r.Uint8()
	e.Child = r.Uint16()
	e.Radius = r.Float32()
	return nil
}

// Unattach detaches child from whatever it is attached to.
type Unattach struct {
	Child core.ObjectID
}

func (*Unattach) Opcode() Opcode { return OpUnattach }

func (e *Unattach) Encode(w *stream.Writer) { w.Uint16(e.Child) }

func (e *Unattach) Decode(r *stream.Reader) error {
	e.Child = r.Uint16()
	return nil
}

// KillObject replays an object death. Seed reseeds the effects generator
// so the explosion matches the recording.
type KillObject struct {
	Victim core.ObjectID
	core.KillInfo
}

func (*KillObject) Opcode() Opcode { return OpKillObject }

func (e *KillObject) Encode(w *stream.Writer) {
	w.Uint16(e.Victim)
	w.Uint16(e.Killer)
	w.Float32(e.Damage)
	w.Int32(e.DeathFlags)
	w.Float32(e.Delay)
	w.Int16(e.Seed)
}

func (e *KillObject) Decode(r *stream.Reader) error {
	e.Victim = r.Uint16()
	e.Killer = r.Uint16()
	e.Damage = r.Float32()
	e.DeathFlags = r.Int32()
	e.Delay = r.Float32()
	e.Seed = r.Int16()
	return nil
}

// AnimUpdate carries an object's animation state.
type AnimUpdate struct {
	Gametime float32
	Object   core.ObjectID
	core.AnimState
}

func (*AnimUpdate) Opcode() Opcode { return OpAnimUpdate }

func (e *AnimUpdate) Encode(w *stream.Writer) {
	w.Float32(e.Gametime)
	w.Uint16(e.Object)
	w.Float32(e.ServerTime)
	w.Uint16(e.Frame)
	w.Uint8(e.Start)
	w.Uint8(e.End)
	w.Float32(e.AnimTime)
	w.Float32(e.MaxSpeed)
	w.Uint8(e.Flags)
	w.Int16(e.Sound)
}

func (e *AnimUpdate) Decode(r *stream.Reader) error {
	e.Gametime = r.Float32()
	e.Object = r.Uint16()
	e.ServerTime = r.Float32()
	e.Frame = r.Uint16()
	e.Start = r.Uint8()
	e.End = r.Uint8()
	e.AnimTime = r.Float32()
	e.MaxSpeed = r.Float32()
	e.Flags = r.Uint8()
	e.Sound = r.Int16()
	return nil
}

// TurretUpdate carries turret keyframes. Keyframes beyond
// core.MaxTurretKeyframes are consumed and dropped on decode.
type TurretUpdate struct {
	Gametime float32
	Object   core.ObjectID
	core.TurretState
}

func (*TurretUpdate) Opcode() Opcode { return OpTurretUpdate }

func (e *TurretUpdate) Encode(w *stream.Writer) {
	w.Float32(e.Gametime)
	w.Uint16(e.Object)
	w.Float32(e.Time)
	keys := e.Keyframes[:min(len(e.Keyframes), math.MaxUint16)]
	w.Uint16(uint16(len(keys)))
	for _, k := range keys {
		w.Float32(k)
	}
}

func (e *TurretUpdate) Decode(r *stream.Reader) error {
	e.Gametime = r.Float32()
	e.Object = r.Uint16()
	e.Time = r.Float32()
	count := int(r.Uint16())
	if r.Err() != nil {
		return nil
	}
	keep := min(count, core.MaxTurretKeyframes)
	e.Keyframes = make([]float32, keep)
	for i := range e.Keyframes {
		e.Keyframes[i] = r.Float32()
	}
	r.Skip(4 * (count - keep))
	return nil
}

// WeaponFireFlag sets an object's weapon fire flags.
type WeaponFireFlag struct {
	Object core.ObjectID
	Flags  uint8
}

func (*WeaponFireFlag) Opcode() Opcode { return OpWeaponFireFlag }

func (e *WeaponFireFlag) Encode(w *stream.Writer) {
	w.Uint16(e.Object)
	w.Uint8(e.Flags)
}

func (e *WeaponFireFlag) Decode(r *stream.Reader) error {
	e.Object = r.Uint16()
	e.Flags = r.Uint8()
	return nil
}
