// Package world declares the simulation, presentation and snapshot
// collaborators the demo subsystem drives. Implementations live with the
// game; memworld provides an in-memory one.
package world

import (
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/pkg/core"
)

// Object is a live simulation object.
type Object struct {
	ID              core.ObjectID
	Type            core.ObjectType
	InfoID          uint16
	Room            int32
	Pos             core.Vector
	Orient          core.Matrix
	Parent          int32
	Flags           uint32
	LifeLeft        float32
	WeaponFireFlags uint8
	ModelHandle     int32
	Anim            core.AnimState
	Turret          core.TurretState
	// Simulated is false for objects that must not think, move or render
	// as if locally controlled.
	Simulated bool
}

// Moved reports whether the object moved this frame.
func (o *Object) Moved() bool { return o.Flags&core.ObjFlagMovedThisFrame != 0 }

// Spawn describes an object to create.
type Spawn struct {
	Type   core.ObjectType
	InfoID uint16
	Room   int32
	Pos    core.Vector
	Orient *core.Matrix
	Parent int32
}

// Objects is the simulation's object table.
type Objects interface {
	Object(id core.ObjectID) (*Object, bool)
	// HighestIndex is the largest id in use, or -1 when the table is empty.
	HighestIndex() int
	Each(fn func(*Object))
	Create(s Spawn) (core.ObjectID, error)
	SetDead(id core.ObjectID)
	Move(id core.ObjectID, room int32, pos core.Vector, orient core.Matrix)
	Attach(parent core.ObjectID, parentPoint uint8, child core.ObjectID, childPoint uint8, aligned bool) error
	AttachRadius(parent core.ObjectID, parentPoint uint8, child core.ObjectID, radius float32) error
	Unattach(child core.ObjectID) error
}

// Combat covers weapons, damage and death.
type Combat interface {
	// MatchWeapon maps a weapon checksum to the local weapon index.
	MatchWeapon(checksum uint32) (int, bool)
	Fire(source core.ObjectID, weapon int, pos, dir core.Vector, gun int16) (core.ObjectID, error)
	Collide(target, weapon core.ObjectID, point, normal core.Vector, reverse, player bool)
	// SeedRandom reseeds the effects generator used by Kill.
	SeedRandom(seed int16)
	Kill(victim core.ObjectID, info core.KillInfo)
	KillPlayer(obj core.ObjectID, melee bool, fate int32)
}

// Ship is an entry of the ship roster.
type Ship struct {
	Name        string
	ModelHandle int32
}

// Players is the per-slot player state.
type Players interface {
	MaxPlayers() int
	LocalSlot() int
	SetLocalSlot(slot int)
	PlayerObject(slot int) (core.ObjectID, bool)
	Info(slot int) core.PlayerInfo
	SetInfo(slot int, info core.PlayerInfo)
	Flags(slot int) int32
	SetFlags(slot int, flags int32)
	SetBalls(slot int, balls core.BallState)
	ChangeType(change core.PlayerTypeChange, piggyback core.ObjectID)
	// MakeGhost turns an object into a non-simulated spectator.
	MakeGhost(id core.ObjectID)
	SetViewer(id core.ObjectID)
	ResetScalars(slot int)
	Ships() []Ship
	Ship(slot int) int
	SetShip(slot, ship int)
}

// Timeline is the simulation clock.
type Timeline interface {
	Gametime() float32
	SetGametime(t float32)
	Frametime() float32
	SetFrametime(dt float32)
	FrameCount() int32
	SetFrameCount(n int32)
}

// Missions loads content.
type Missions interface {
	Mission() core.Mission
	LoadMission(filename string) error
	StartLevel(level int32) error
}

// Section is one part of the world snapshot, in header order.
type Section int

const (
	SectionXlate Section = iota
	SectionRooms
	SectionTriggers
	SectionObjects
	SectionPlayers
	SectionVisEffects
	SectionSpew
	SectionSystemState
)

// Sections lists the snapshot sections in the order they are written.
var Sections = []Section{
	SectionXlate,
	SectionRooms,
	SectionTriggers,
	SectionObjects,
	SectionPlayers,
	SectionVisEffects,
	SectionSpew,
	SectionSystemState,
}

var sectionNames = [...]string{"xlate", "rooms", "triggers", "objects", "players", "viseffects", "spew", "systemstate"}

func (s Section) String() string {
	if s < 0 || int(s) >= len(sectionNames) {
		return "unknown"
	}
	return sectionNames[s]
}

// Snapshotter reads and writes the full world state.
type Snapshotter interface {
	WriteSection(w *stream.Writer, s Section) error
	ReadSection(r *stream.Reader, s Section, version int16, x *Xlate) error
}

// World is everything the demo subsystem needs from the simulation.
type World interface {
	Objects
	Combat
	Players
	Timeline
	Missions
	Snapshotter
}

// HUDMode is how the HUD is drawn.
type HUDMode int

const (
	HUDFullscreen HUDMode = iota
	HUDCockpit
	HUDLetterbox
)

// Presentation is the HUD, sound and dialog surface.
type Presentation interface {
	HUDMessage(color int32, blink bool, text string)
	PersistentHUDMessage(msg core.PersistentMessage)
	Sound2D(sound int16, volume float32)
	Sound3D(obj core.ObjectID, sound int16, volume float32)
	Screenshot() error
	// Notify posts a transient message.
	Notify(text string)
	// ShowError raises a modal error.
	ShowError(title, text string)
	// PromptFilename asks for a filename of at most max bytes.
	PromptFilename(title string, max int) (string, bool)
	HUDMode() HUDMode
	SetHUDMode(mode HUDMode)
	InitShipHUD(ship int)
	InitCockpit(ship int)
	ResetViews()
}

// Passthrough receives the opaque blobs other subsystems record.
type Passthrough interface {
	Cinematics(data []byte)
	MultiSafe(data []byte)
	Powerup(data []byte)
}
