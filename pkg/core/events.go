// pkg/core/events.go
package core

// MaxPlayerWeapons is the number of ammo slots in player telemetry.
const MaxPlayerWeapons = 10

// MaxTurretKeyframes bounds the turret keyframes applied from one update.
const MaxTurretKeyframes = 400

// MaxPlayerBalls bounds the rotating-ball cosmetics per player.
const MaxPlayerBalls = 4

// PlayerInfo is the per-player telemetry replayed onto the viewer.
type PlayerInfo struct {
	Energy        int16
	Shields       int16
	Ammo          [MaxPlayerWeapons]int16
	Primary       int32
	Secondary     int32
	WeaponFlags   int32
	AfterburnLeft float32
	FOV           float32
}

// TurretState is a turret keyframe snapshot for one object.
type TurretState struct {
	Time      float32
	Keyframes []float32
}

// AnimState is the animation state of an object.
type AnimState struct {
	ServerTime float32
	Frame      uint16
	Start      uint8
	End        uint8
	AnimTime   float32
	MaxSpeed   float32
	Flags      uint8
	Sound      int16
}

// BallState is the rotating-ball cosmetic state of a player.
type BallState struct {
	Speed  float32
	Colors [][3]float32
}

// ObserverMode is how an observer follows the world.
type ObserverMode int32

const (
	ObserverRoam      ObserverMode = 0
	ObserverPiggyback ObserverMode = 1
)

// PlayerTypeChange describes a player switching between ship, ghost and observer.
type PlayerTypeChange struct {
	Slot          uint8
	Type          ObjectType
	StopObserving bool
	Mode          ObserverMode
	Piggyback     int32
}

// PersistentMessage is a HUD message that stays on screen for a fixed time.
type PersistentMessage struct {
	Color int32
	X, Y  int32
	Time  float32
	Flags int32
	Sound int32
	Text  string
}

// KillInfo describes an object death replayed from a demo.
type KillInfo struct {
	Killer     ObjectID
	Damage     float32
	DeathFlags int32
	Delay      float32
	Seed       int16
}
