package main

import (
	"fmt"
	"os"

	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/internal/world/memworld"
	"github.com/OCAP2/demo/pkg/core"
)

const (
	maxPlayers   = 4
	robotInfo    = "Tubbs"
	defaultShip  = "Pyro-GL"
	shipModel    = 100
	laserName    = "Laser"
	laserCheck   = 0xABCD
	frameSeconds = 0.05
)

// newWorld returns an empty world stocked with the content every demo of
// this tool is recorded against.
func newWorld(maxObjects int) *memworld.World {
	w := memworld.New(maxObjects, maxPlayers)
	w.AddShip(defaultShip, shipModel)
	w.AddWeapon(laserName, laserCheck)
	w.AddObjectInfo(robotInfo)
	return w
}

// newPlaybackWorld prepares a world able to load the mission of the demo at path.
func newPlaybackWorld(path string, maxObjects int) (*memworld.World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()
	h, err := hydrate.ReadPreamble(stream.NewReader(f, -1))
	if err != nil {
		return nil, err
	}
	w := newWorld(maxObjects)
	w.RegisterMission(h.Mission, max(h.Level, 1))
	return w, nil
}

// scenario is a scripted recording: one player and a robot walking a path.
type scenario struct {
	Mission string
	Level   int32
	Path    []core.Vector
	Frames  int
}

// setup loads the mission and places the player and the robot.
func (s scenario) setup(w *memworld.World) (core.ObjectID, error) {
	w.RegisterMission(s.Mission, max(s.Level, 1))
	if err := w.LoadMission(s.Mission); err != nil {
		return core.NoObject, err
	}
	if err := w.StartLevel(max(s.Level, 1)); err != nil {
		return core.NoObject, err
	}
	if _, err := w.AddPlayer(0, shipModel, core.Vector{}); err != nil {
		return core.NoObject, err
	}
	return w.Place(world.Object{
		Type:   core.ObjRobot,
		InfoID: 0,
		Room:   1,
		Pos:    s.Path[0],
		Orient: core.IdentityMatrix,
	})
}

// position returns the point reached after frame of frames along the path.
func (s scenario) position(frame int) core.Vector {
	if frame >= s.Frames || len(s.Path) == 1 {
		return s.Path[len(s.Path)-1]
	}
	t := float32(frame) / float32(s.Frames) * float32(len(s.Path)-1)
	i := int(t)
	f := t - float32(i)
	a, b := s.Path[i], s.Path[i+1]
	return core.Vector{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
		Z: a.Z + (b.Z-a.Z)*f,
	}
}
