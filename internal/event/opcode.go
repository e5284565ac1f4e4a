package event

import "fmt"

// Opcode tags each record in a demo stream.
type Opcode uint8

const (
	OpObjectChanged    Opcode = 1
	OpNewFrame         Opcode = 2
	OpWeaponFire       Opcode = 3
	OpHUDMessage       Opcode = 4
	OpSound3D          Opcode = 5
	OpObjectCreated    Opcode = 6
	OpAnimUpdate       Opcode = 7
	OpTurretUpdate     Opcode = 8
	OpKillObject       Opcode = 9
	OpPlayerDeath      Opcode = 10
	OpCollidePlayer    Opcode = 11
	OpCollideGeneric   Opcode = 12
	OpAttach           Opcode = 13
	OpAttachRadius     Opcode = 14
	OpUnattach         Opcode = 15
	OpWeaponFireFlag   Opcode = 16
	OpPlayerInfo       Opcode = 17
	OpMultiSafe        Opcode = 18
	OpPowerup          Opcode = 19
	OpCinematics       Opcode = 20
	OpPersistentHUD    Opcode = 21
	OpSetObjectDead    Opcode = 22
	OpPlayerBalls      Opcode = 23
	OpPlayerTypeChange Opcode = 24
	OpObjectLifeLeft   Opcode = 25
	OpSound2D          Opcode = 26
)

var opcodeNames = map[Opcode]string{
	OpObjectChanged:    "object_changed",
	OpNewFrame:         "new_frame",
	OpWeaponFire:       "weapon_fire",
	OpHUDMessage:       "hud_message",
	OpSound3D:          "sound_3d",
	OpObjectCreated:    "object_created",
	OpAnimUpdate:       "anim_update",
	OpTurretUpdate:     "turret_update",
	OpKillObject:       "kill_object",
	OpPlayerDeath:      "player_death",
	OpCollidePlayer:    "collide_player",
	OpCollideGeneric:   "collide_generic",
	OpAttach:           "attach",
	OpAttachRadius:     "attach_radius",
	OpUnattach:         "unattach",
	OpWeaponFireFlag:   "weapon_fire_flag",
	OpPlayerInfo:       "player_info",
	OpMultiSafe:        "multisafe",
	OpPowerup:          "powerup",
	OpCinematics:       "cinematics",
	OpPersistentHUD:    "persistent_hud",
	OpSetObjectDead:    "set_object_dead",
	OpPlayerBalls:      "player_balls",
	OpPlayerTypeChange: "player_type_change",
	OpObjectLifeLeft:   "object_life_left",
	OpSound2D:          "sound_2d",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// Known reports whether o is part of the catalogue.
func (o Opcode) Known() bool {
	_, ok := catalogue[o]
	return ok
}
