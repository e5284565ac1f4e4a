// Package memworld is an in-memory world used by the demotool CLI and by tests.
package memworld

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

var (
	ErrNoObject       = errors.New("no such object")
	ErrTableFull      = errors.New("object table full")
	ErrUnknownMission = errors.New("unknown mission")
	ErrUnknownLevel   = errors.New("unknown level")
	ErrUnknownWeapon  = errors.New("unknown weapon")
)

// Scalars are per-player gameplay multipliers.
type Scalars struct {
	WeaponSpeed    float32
	Movement       float32
	Damage         float32
	Armor          float32
	Turn           float32
	WeaponRecharge float32
}

// Neutral is the scalar set every multiplier of which is 1.
var Neutral = Scalars{1, 1, 1, 1, 1, 1}

// Player is one player slot.
type Player struct {
	Object    core.ObjectID
	Flags     int32
	Info      core.PlayerInfo
	Balls     core.BallState
	Ship      int
	Scalars   Scalars
	Observer  core.ObserverMode
	Piggyback core.ObjectID
}

// Weapon is an entry of the weapon table.
type Weapon struct {
	Name     string
	Checksum uint32
}

// Explosion is a kill applied to the world.
type Explosion struct {
	Victim core.ObjectID
	Info   core.KillInfo
	// Debris is drawn from the effects generator and depends only on the seed.
	Debris int
}

// Hit is a weapon collision applied to the world.
type Hit struct {
	Target, Weapon core.ObjectID
	Point, Normal  core.Vector
	Reverse        bool
	Player         bool
}

// Attachment links a child object to its parent.
type Attachment struct {
	Parent      core.ObjectID
	ParentPoint uint8
	ChildPoint  uint8
	Aligned     bool
	Radius      float32
}

// Room is level geometry state carried by the snapshot.
type Room struct {
	Flags int32
}

// VisEffect is a transient visual effect.
type VisEffect struct {
	Kind     uint8
	Pos      core.Vector
	LifeLeft float32
}

// Spewer is a particle emitter.
type Spewer struct {
	Pos      core.Vector
	Interval float32
}

// World implements world.World in memory.
type World struct {
	objects []*world.Object
	players []Player
	local   int
	viewer  core.ObjectID

	infos     []string
	weapons   []Weapon
	ships     []world.Ship
	missions  map[string]int32
	mission   core.Mission
	loaded    string
	gametime  float32
	frametime float32
	frames    int32

	Rooms       []Room
	Triggers    []int32
	VisEffects  []VisEffect
	Spew        []Spewer
	SystemState []byte

	Attachments map[core.ObjectID]Attachment
	Explosions  []Explosion
	Hits        []Hit
	Deaths      []core.ObjectID

	rng *rand.Rand
}

var _ world.World = (*World)(nil)

// New returns an empty world with room for maxObjects objects and maxPlayers players.
func New(maxObjects, maxPlayers int) *World {
	w := &World{
		objects:     make([]*world.Object, maxObjects),
		players:     make([]Player, maxPlayers),
		viewer:      core.NoObject,
		missions:    map[string]int32{},
		Attachments: map[core.ObjectID]Attachment{},
		rng:         rand.New(rand.NewSource(1)),
	}
	for i := range w.players {
		w.players[i] = Player{Object: core.NoObject, Scalars: Neutral, Piggyback: core.NoObject}
	}
	return w
}

// RegisterMission makes filename loadable with the given number of levels.
func (w *World) RegisterMission(filename string, levels int32) {
	w.missions[strings.ToLower(filename)] = levels
}

// AddObjectInfo appends a generic object info and returns its index.
func (w *World) AddObjectInfo(name string) uint16 {
	w.infos = append(w.infos, name)
	return uint16(len(w.infos) - 1)
}

// AddWeapon appends a weapon and returns its index.
func (w *World) AddWeapon(name string, checksum uint32) int {
	w.weapons = append(w.weapons, Weapon{Name: name, Checksum: checksum})
	return len(w.weapons) - 1
}

// AddShip appends a ship to the roster.
func (w *World) AddShip(name string, model int32) int {
	w.ships = append(w.ships, world.Ship{Name: name, ModelHandle: model})
	return len(w.ships) - 1
}

// Place puts obj into the first free slot and returns its id.
func (w *World) Place(obj world.Object) (core.ObjectID, error) {
	for i, o := range w.objects {
		if o == nil {
			obj.ID = core.ObjectID(i)
			w.objects[i] = &obj
			return obj.ID, nil
		}
	}
	return core.NoObject, ErrTableFull
}

// PlaceAt puts obj at a fixed id, replacing whatever was there.
func (w *World) PlaceAt(id core.ObjectID, obj world.Object) error {
	if int(id) >= len(w.objects) {
		return fmt.Errorf("place %d: %w", id, ErrTableFull)
	}
	obj.ID = id
	w.objects[id] = &obj
	return nil
}

// AddPlayer places a player object and binds it to slot.
func (w *World) AddPlayer(slot int, model int32, pos core.Vector) (core.ObjectID, error) {
	id, err := w.Place(world.Object{
		Type:        core.ObjPlayer,
		InfoID:      uint16(slot),
		Pos:         pos,
		Orient:      core.IdentityMatrix,
		ModelHandle: model,
		Simulated:   true,
	})
	if err != nil {
		return id, err
	}
	w.players[slot].Object = id
	return id, nil
}

// Player returns a copy of slot's state.
func (w *World) Player(slot int) Player {
	return w.players[slot]
}

// Viewer returns the viewer object id.
func (w *World) Viewer() core.ObjectID {
	return w.viewer
}

// Tick advances the clock by dt seconds and clears per-frame object flags.
func (w *World) Tick(dt float32) {
	for _, o := range w.objects {
		if o != nil {
			o.Flags &^= core.ObjFlagMovedThisFrame
		}
	}
	w.gametime += dt
	w.frametime = dt
	w.frames++
}

// Object implements world.Objects.
func (w *World) Object(id core.ObjectID) (*world.Object, bool) {
	if int(id) >= len(w.objects) || w.objects[id] == nil {
		return nil, false
	}
	return w.objects[id], true
}

func (w *World) HighestIndex() int {
	for i := len(w.objects) - 1; i >= 0; i-- {
		if w.objects[i] != nil {
			return i
		}
	}
	return -1
}

func (w *World) Each(fn func(*world.Object)) {
	for _, o := range w.objects {
		if o != nil {
			fn(o)
		}
	}
}

func (w *World) Create(s world.Spawn) (core.ObjectID, error) {
	orient := core.IdentityMatrix
	if s.Orient != nil {
		orient = *s.Orient
	}
	return w.Place(world.Object{
		Type:      s.Type,
		InfoID:    s.InfoID,
		Room:      s.Room,
		Pos:       s.Pos,
		Orient:    orient,
		Parent:    s.Parent,
		Flags:     core.ObjFlagServerObject,
		Simulated: true,
	})
}

func (w *World) SetDead(id core.ObjectID) {
	if int(id) < len(w.objects) && w.objects[id] != nil {
		w.objects[id] = nil
		delete(w.Attachments, id)
	}
}

func (w *World) Move(id core.ObjectID, room int32, pos core.Vector, orient core.Matrix) {
	o, ok := w.Object(id)
	if !ok {
		return
	}
	o.Room = room
	o.Pos = pos
	o.Orient = orient
	o.Flags |= core.ObjFlagMovedThisFrame
}

func (w *World) pair(parent, child core.ObjectID) (*world.Object, error) {
	if _, ok := w.Object(parent); !ok {
		return nil, fmt.Errorf("parent %d: %w", parent, ErrNoObject)
	}
	c, ok := w.Object(child)
	if !ok {
		return nil, fmt.Errorf("child %d: %w", child, ErrNoObject)
	}
	return c, nil
}

func (w *World) Attach(parent core.ObjectID, parentPoint uint8, child core.ObjectID, childPoint uint8, aligned bool) error {
	c, err := w.pair(parent, child)
	if err != nil {
		return err
	}
	c.Flags |= core.ObjFlagAttached
	w.Attachments[child] = Attachment{Parent: parent, ParentPoint: parentPoint, ChildPoint: childPoint, Aligned: aligned}
	return nil
}

func (w *World) AttachRadius(parent core.ObjectID, parentPoint uint8, child core.ObjectID, radius float32) error {
	c, err := w.pair(parent, child)
	if err != nil {
		return err
	}
	c.Flags |= core.ObjFlagAttached
	w.Attachments[child] = Attachment{Parent: parent, ParentPoint: parentPoint, Radius: radius}
	return nil
}

func (w *World) Unattach(child core.ObjectID) error {
	c, ok := w.Object(child)
	if !ok {
		return fmt.Errorf("child %d: %w", child, ErrNoObject)
	}
	c.Flags &^= core.ObjFlagAttached
	delete(w.Attachments, child)
	return nil
}

// Combat

func (w *World) MatchWeapon(checksum uint32) (int, bool) {
	for i, wp := range w.weapons {
		if wp.Checksum == checksum {
			return i, true
		}
	}
	return -1, false
}

func (w *World) Fire(source core.ObjectID, weapon int, pos, dir core.Vector, gun int16) (core.ObjectID, error) {
	src, ok := w.Object(source)
	if !ok {
		return core.NoObject, fmt.Errorf("fire from %d: %w", source, ErrNoObject)
	}
	if weapon < 0 || weapon >= len(w.weapons) {
		return core.NoObject, fmt.Errorf("fire %d: %w", weapon, ErrUnknownWeapon)
	}
	return w.Place(world.Object{
		Type:      core.ObjWeapon,
		InfoID:    uint16(weapon),
		Room:      src.Room,
		Pos:       pos,
		Orient:    core.Matrix{Right: core.Vector{X: 1}, Up: core.Vector{Y: 1}, Forward: dir},
		Parent:    int32(source),
		Anim:      core.AnimState{Frame: uint16(gun)},
		Simulated: true,
	})
}

func (w *World) Collide(target, weapon core.ObjectID, point, normal core.Vector, reverse, player bool) {
	w.Hits = append(w.Hits, Hit{Target: target, Weapon: weapon, Point: point, Normal: normal, Reverse: reverse, Player: player})
}

func (w *World) SeedRandom(seed int16) {
	w.rng = rand.New(rand.NewSource(int64(seed)))
}

func (w *World) Kill(victim core.ObjectID, info core.KillInfo) {
	w.Explosions = append(w.Explosions, Explosion{Victim: victim, Info: info, Debris: w.rng.Intn(1 << 16)})
	if o, ok := w.Object(victim); ok {
		o.Flags |= core.ObjFlagDead
	}
}

func (w *World) KillPlayer(obj core.ObjectID, melee bool, fate int32) {
	w.Deaths = append(w.Deaths, obj)
	for i := range w.players {
		if w.players[i].Object == obj {
			w.players[i].Flags |= core.PlayerFlagDying
		}
	}
}

// Players

func (w *World) MaxPlayers() int { return len(w.players) }

func (w *World) LocalSlot() int { return w.local }

func (w *World) SetLocalSlot(slot int) { w.local = slot }

func (w *World) PlayerObject(slot int) (core.ObjectID, bool) {
	if slot < 0 || slot >= len(w.players) || w.players[slot].Object == core.NoObject {
		return core.NoObject, false
	}
	return w.players[slot].Object, true
}

// player returns the slot, or nil when it is out of range.
func (w *World) player(slot int) *Player {
	if slot < 0 || slot >= len(w.players) {
		return nil
	}
	return &w.players[slot]
}

func (w *World) Info(slot int) core.PlayerInfo {
	if p := w.player(slot); p != nil {
		return p.Info
	}
	return core.PlayerInfo{}
}

func (w *World) SetInfo(slot int, info core.PlayerInfo) {
	if p := w.player(slot); p != nil {
		p.Info = info
	}
}

func (w *World) Flags(slot int) int32 {
	if p := w.player(slot); p != nil {
		return p.Flags
	}
	return 0
}

func (w *World) SetFlags(slot int, flags int32) {
	if p := w.player(slot); p != nil {
		p.Flags = flags
	}
}

func (w *World) SetBalls(slot int, balls core.BallState) {
	if p := w.player(slot); p != nil {
		p.Balls = balls
	}
}

func (w *World) ChangeType(change core.PlayerTypeChange, piggyback core.ObjectID) {
	slot := int(change.Slot)
	if slot >= len(w.players) {
		return
	}
	p := &w.players[slot]
	o, ok := w.Object(p.Object)
	if !ok {
		return
	}
	o.Type = change.Type
	o.Simulated = change.Type != core.ObjGhost
	p.Observer = change.Mode
	p.Piggyback = core.NoObject
	if change.Type == core.ObjObserver && change.Mode == core.ObserverPiggyback {
		p.Piggyback = piggyback
	}
}

func (w *World) MakeGhost(id core.ObjectID) {
	if o, ok := w.Object(id); ok {
		o.Type = core.ObjGhost
		o.Simulated = false
	}
}

func (w *World) SetViewer(id core.ObjectID) { w.viewer = id }

func (w *World) ResetScalars(slot int) {
	if p := w.player(slot); p != nil {
		p.Scalars = Neutral
	}
}

func (w *World) Ships() []world.Ship { return w.ships }

func (w *World) Ship(slot int) int {
	if p := w.player(slot); p != nil {
		return p.Ship
	}
	return 0
}

func (w *World) SetShip(slot, ship int) {
	if p := w.player(slot); p != nil {
		p.Ship = ship
	}
}

// Timeline

func (w *World) Gametime() float32 { return w.gametime }

func (w *World) SetGametime(t float32) { w.gametime = t }

func (w *World) Frametime() float32 { return w.frametime }

func (w *World) SetFrametime(dt float32) { w.frametime = dt }

func (w *World) FrameCount() int32 { return w.frames }

func (w *World) SetFrameCount(n int32) { w.frames = n }

// Missions

func (w *World) Mission() core.Mission { return w.mission }

// SetMission sets the current mission without loading it.
func (w *World) SetMission(m core.Mission) { w.mission = m }

func (w *World) LoadMission(filename string) error {
	if _, ok := w.missions[strings.ToLower(filename)]; !ok {
		return fmt.Errorf("load %q: %w", filename, ErrUnknownMission)
	}
	w.loaded = filename
	w.mission = core.Mission{Filename: filename}
	return nil
}

func (w *World) StartLevel(level int32) error {
	levels, ok := w.missions[strings.ToLower(w.loaded)]
	if !ok {
		return fmt.Errorf("start level %d: %w", level, ErrUnknownMission)
	}
	if level < 1 || level > levels {
		return fmt.Errorf("start level %d of %q: %w", level, w.loaded, ErrUnknownLevel)
	}
	w.mission.Level = level
	return nil
}
