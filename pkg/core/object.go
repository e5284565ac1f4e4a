// pkg/core/object.go
package core

// Vector is a position or direction in world space.
type Vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Matrix is an orientation expressed as three basis vectors.
type Matrix struct {
	Right   Vector `json:"right"`
	Up      Vector `json:"up"`
	Forward Vector `json:"forward"`
}

// IdentityMatrix is the neutral orientation.
var IdentityMatrix = Matrix{
	Right:   Vector{X: 1},
	Up:      Vector{Y: 1},
	Forward: Vector{Z: 1},
}

// ObjectID identifies an object slot in the world's object table.
type ObjectID = uint16

// NoObject marks "no object" on the wire and an unbound entry in the remap table.
const NoObject ObjectID = 0xFFFF

// ObjectType classifies a world object.
type ObjectType uint8

const (
	ObjWall      ObjectType = 0
	ObjFireball  ObjectType = 1
	ObjRobot     ObjectType = 2
	ObjShard     ObjectType = 3
	ObjPlayer    ObjectType = 4
	ObjWeapon    ObjectType = 5
	ObjViewer    ObjectType = 6
	ObjPowerup   ObjectType = 7
	ObjDebris    ObjectType = 8
	ObjCamera    ObjectType = 9
	ObjShockwave ObjectType = 10
	ObjClutter   ObjectType = 11
	ObjGhost     ObjectType = 12
	ObjLight     ObjectType = 13
	ObjCoop      ObjectType = 14
	ObjMarker    ObjectType = 15
	ObjBuilding  ObjectType = 16
	ObjDoor      ObjectType = 17
	ObjRoom      ObjectType = 18
	ObjParticle  ObjectType = 19
	ObjSplinter  ObjectType = 20
	ObjDummy     ObjectType = 21
	ObjObserver  ObjectType = 22
	ObjNone      ObjectType = 255
)

var objectTypeNames = map[ObjectType]string{
	ObjWall:      "wall",
	ObjFireball:  "fireball",
	ObjRobot:     "robot",
	ObjShard:     "shard",
	ObjPlayer:    "player",
	ObjWeapon:    "weapon",
	ObjViewer:    "viewer",
	ObjPowerup:   "powerup",
	ObjDebris:    "debris",
	ObjCamera:    "camera",
	ObjShockwave: "shockwave",
	ObjClutter:   "clutter",
	ObjGhost:     "ghost",
	ObjLight:     "light",
	ObjCoop:      "coop",
	ObjMarker:    "marker",
	ObjBuilding:  "building",
	ObjDoor:      "door",
	ObjRoom:      "room",
	ObjParticle:  "particle",
	ObjSplinter:  "splinter",
	ObjDummy:     "dummy",
	ObjObserver:  "observer",
	ObjNone:      "none",
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsGeneric reports whether objects of this type are driven by generic object info.
func (t ObjectType) IsGeneric() bool {
	switch t {
	case ObjRobot, ObjPowerup, ObjBuilding, ObjClutter:
		return true
	}
	return false
}

// Tracked reports whether the recorder emits per-frame transform updates for this type.
func (t ObjectType) Tracked() bool {
	switch t {
	case ObjPlayer, ObjObserver, ObjRobot, ObjPowerup, ObjClutter, ObjBuilding, ObjCamera:
		return true
	}
	return false
}

// Creatable reports whether object creation of this type is recorded.
func (t ObjectType) Creatable() bool {
	switch t {
	case ObjRobot, ObjPowerup, ObjClutter, ObjBuilding, ObjCamera:
		return true
	}
	return false
}

// HasPlayerFlags reports whether transform updates for this type carry player flags.
func (t ObjectType) HasPlayerFlags() bool {
	return t == ObjPlayer || t == ObjObserver
}

// Object flags.
const (
	ObjFlagMovedThisFrame uint32 = 1 << iota
	ObjFlagAttached
	ObjFlagDead
	ObjFlagUsesLifeLeft
	ObjFlagServerObject
	ObjFlagTurretChanged
)

// Player flags.
const (
	PlayerFlagDead int32 = 1 << iota
	PlayerFlagDying
)
