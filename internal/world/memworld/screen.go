package memworld

import (
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

// HUDLine is a HUD message shown on the Screen.
type HUDLine struct {
	Color int32
	Blink bool
	Text  string
}

// Sound is a sound played on the Screen.
type Sound struct {
	Object core.ObjectID
	Index  int16
	Volume float32
	Is3D   bool
}

// Screen implements world.Presentation and world.Passthrough by recording
// every call.
type Screen struct {
	HUD         []HUDLine
	Persistent  []core.PersistentMessage
	Sounds      []Sound
	Screenshots int
	Notices     []string
	Errors      []string

	// Answer is returned by PromptFilename; an empty Answer cancels.
	Answer  string
	Prompts int

	Mode       world.HUDMode
	ShipHUD    int
	Cockpit    int
	ViewResets int

	CinematicBlobs [][]byte
	MultiSafeBlobs [][]byte
	PowerupBlobs   [][]byte
}

var (
	_ world.Presentation = (*Screen)(nil)
	_ world.Passthrough  = (*Screen)(nil)
)

// NewScreen returns a Screen in cockpit mode.
func NewScreen() *Screen {
	return &Screen{Mode: world.HUDCockpit, ShipHUD: -1, Cockpit: -1}
}

func (s *Screen) HUDMessage(color int32, blink bool, text string) {
	s.HUD = append(s.HUD, HUDLine{Color: color, Blink: blink, Text: text})
}

func (s *Screen) PersistentHUDMessage(msg core.PersistentMessage) {
	s.Persistent = append(s.Persistent, msg)
}

func (s *Screen) Sound2D(sound int16, volume float32) {
	s.Sounds = append(s.Sounds, Sound{Object: core.NoObject, Index: sound, Volume: volume})
}

func (s *Screen) Sound3D(obj core.ObjectID, sound int16, volume float32) {
	s.Sounds = append(s.Sounds, Sound{Object: obj, Index: sound, Volume: volume, Is3D: true})
}

func (s *Screen) Screenshot() error {
	s.Screenshots++
	return nil
}

func (s *Screen) Notify(text string) { s.Notices = append(s.Notices, text) }

func (s *Screen) ShowError(title, text string) { s.Errors = append(s.Errors, title+": "+text) }

func (s *Screen) PromptFilename(title string, max int) (string, bool) {
	s.Prompts++
	if s.Answer == "" {
		return "", false
	}
	return s.Answer, true
}

func (s *Screen) HUDMode() world.HUDMode { return s.Mode }

func (s *Screen) SetHUDMode(mode world.HUDMode) { s.Mode = mode }

func (s *Screen) InitShipHUD(ship int) { s.ShipHUD = ship }

func (s *Screen) InitCockpit(ship int) { s.Cockpit = ship }

func (s *Screen) ResetViews() { s.ViewResets++ }

func (s *Screen) Cinematics(data []byte) { s.CinematicBlobs = append(s.CinematicBlobs, data) }

func (s *Screen) MultiSafe(data []byte) { s.MultiSafeBlobs = append(s.MultiSafeBlobs, data) }

func (s *Screen) Powerup(data []byte) { s.PowerupBlobs = append(s.PowerupBlobs, data) }
