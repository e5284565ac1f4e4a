package memworld

import (
	"fmt"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

const maxInfoName = 64

// WriteSection implements world.Snapshotter.
func (w *World) WriteSection(out *stream.Writer, s world.Section) error {
	switch s {
	case world.SectionXlate:
		out.Uint16(uint16(len(w.infos)))
		for _, name := range w.infos {
			out.String(name)
		}
	case world.SectionRooms:
		out.Int32(int32(len(w.Rooms)))
		for _, r := range w.Rooms {
			out.Int32(r.Flags)
		}
	case world.SectionTriggers:
		out.Int32(int32(len(w.Triggers)))
		for _, t := range w.Triggers {
			out.Int32(t)
		}
	case world.SectionObjects:
		w.writeObjects(out)
	case world.SectionPlayers:
		out.Int32(int32(len(w.players)))
		for _, p := range w.players {
			out.Uint16(p.Object)
			out.Int32(p.Flags)
			(&event.PlayerInfo{PlayerInfo: p.Info}).Encode(out)
			for _, v := range [...]float32{p.Scalars.WeaponSpeed, p.Scalars.Movement, p.Scalars.Damage, p.Scalars.Armor, p.Scalars.Turn, p.Scalars.WeaponRecharge} {
				out.Float32(v)
			}
		}
	case world.SectionVisEffects:
		out.Int32(int32(len(w.VisEffects)))
		for _, v := range w.VisEffects {
			out.Uint8(v.Kind)
			out.Vector(v.Pos)
			out.Float32(v.LifeLeft)
		}
	case world.SectionSpew:
		out.Int32(int32(len(w.Spew)))
		for _, sp := range w.Spew {
			out.Vector(sp.Pos)
			out.Float32(sp.Interval)
		}
	case world.SectionSystemState:
		out.Bytes(w.SystemState)
	default:
		return fmt.Errorf("write section %d: unknown section", s)
	}
	return out.Err()
}

func (w *World) writeObjects(out *stream.Writer) {
	highest := w.HighestIndex()
	out.Int32(int32(highest))
	for i := 0; i <= highest; i++ {
		o := w.objects[i]
		if o == nil {
			out.Uint8(uint8(core.ObjNone))
			continue
		}
		out.Uint8(uint8(o.Type))
		out.Uint16(o.InfoID)
		out.Int32(o.Room)
		out.Vector(o.Pos)
		out.Matrix(o.Orient)
		out.Int32(o.Parent)
		out.Uint32(o.Flags)
		out.Float32(o.LifeLeft)
		out.Int32(o.ModelHandle)
		out.Uint8(o.WeaponFireFlags)
	}
}

// ReadSection implements world.Snapshotter. memworld has a single layout,
// so every version reads the same way.
func (w *World) ReadSection(in *stream.Reader, s world.Section, version int16, x *world.Xlate) error {
	switch s {
	case world.SectionXlate:
		n := int(in.Uint16())
		x.ObjectInfo = make([]uint16, n)
		for i := 0; i < n; i++ {
			x.ObjectInfo[i] = w.infoIndex(in.String(maxInfoName), uint16(i))
		}
	case world.SectionRooms:
		n := int(in.Int32())
		for i := 0; i < n && in.Err() == nil; i++ {
			flags := in.Int32()
			if i < len(w.Rooms) {
				w.Rooms[i].Flags = flags
			}
		}
	case world.SectionTriggers:
		n := int(in.Int32())
		for i := 0; i < n && in.Err() == nil; i++ {
			flags := in.Int32()
			if i < len(w.Triggers) {
				w.Triggers[i] = flags
			}
		}
	case world.SectionObjects:
		if err := w.readObjects(in, x); err != nil {
			return err
		}
	case world.SectionPlayers:
		n := int(in.Int32())
		if n > len(w.players) {
			return fmt.Errorf("read players: %d slots, world has %d", n, len(w.players))
		}
		for i := 0; i < n; i++ {
			p := &w.players[i]
			p.Object = in.Uint16()
			p.Flags = in.Int32()
			var info event.PlayerInfo
			_ = info.Decode(in)
			p.Info = info.PlayerInfo
			p.Scalars = Scalars{in.Float32(), in.Float32(), in.Float32(), in.Float32(), in.Float32(), in.Float32()}
		}
	case world.SectionVisEffects:
		n := int(in.Int32())
		w.VisEffects = w.VisEffects[:0]
		for i := 0; i < n && in.Err() == nil; i++ {
			w.VisEffects = append(w.VisEffects, VisEffect{Kind: in.Uint8(), Pos: in.Vector(), LifeLeft: in.Float32()})
		}
	case world.SectionSpew:
		n := int(in.Int32())
		w.Spew = w.Spew[:0]
		for i := 0; i < n && in.Err() == nil; i++ {
			w.Spew = append(w.Spew, Spewer{Pos: in.Vector(), Interval: in.Float32()})
		}
	case world.SectionSystemState:
		w.SystemState = in.Bytes(stream.MaxBlob)
	default:
		return fmt.Errorf("read section %d: unknown section", s)
	}
	return in.Err()
}

func (w *World) readObjects(in *stream.Reader, x *world.Xlate) error {
	highest := int(in.Int32())
	if highest >= len(w.objects) {
		return fmt.Errorf("read objects: highest index %d exceeds table of %d", highest, len(w.objects))
	}
	clear(w.objects)
	w.Attachments = map[core.ObjectID]Attachment{}
	for i := 0; i <= highest && in.Err() == nil; i++ {
		t := core.ObjectType(in.Uint8())
		if t == core.ObjNone {
			continue
		}
		o := &world.Object{ID: core.ObjectID(i), Type: t, Simulated: true}
		o.InfoID = x.Translate(t, in.Uint16())
		o.Room = in.Int32()
		o.Pos = in.Vector()
		o.Orient = in.Matrix()
		o.Parent = in.Int32()
		o.Flags = in.Uint32()
		o.LifeLeft = in.Float32()
		o.ModelHandle = in.Int32()
		o.WeaponFireFlags = in.Uint8()
		w.objects[i] = o
	}
	return nil
}

func (w *World) infoIndex(name string, fallback uint16) uint16 {
	for i, n := range w.infos {
		if n == name {
			return uint16(i)
		}
	}
	return fallback
}
