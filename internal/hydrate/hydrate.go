// Package hydrate writes and restores the demo header: the fixed preamble,
// the world snapshot and the transient state that has to be re-derived
// around it before playback can start.
package hydrate

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OCAP2/demo/internal/remap"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

const (
	// Signature is written by this build.
	Signature = "D3DEM2"
	// LegacySignature is still accepted on playback.
	LegacySignature = "D3DEM1"
	// Version is the snapshot version written by this build.
	Version int16 = 5

	maxSignature = 9
	maxMission   = 260

	legacyMission      = "d3_2.mn3"
	legacyMissionAlias = "d3.mn3"
)

var (
	ErrBadSignature = errors.New("bad demo signature")
	ErrMissionLoad  = errors.New("mission load failed")
	ErrRestore      = errors.New("world restore failed")
)

// Header is the fixed preamble of a demo file.
type Header struct {
	Signature  string
	Version    int16
	Mission    string
	Level      int32
	Gametime   float32
	FrameCount int32
	PlayerSlot int16
}

// MissionFilename returns the filename persisted for mission. The second
// disc's mission is stored under the name of the first so that demos load
// against either install.
func MissionFilename(mission string) string {
	if strings.EqualFold(mission, legacyMission) {
		return legacyMissionAlias
	}
	return mission
}

// Capture writes the header and world snapshot for w.
func Capture(out *stream.Writer, w world.World) (Header, error) {
	m := w.Mission()
	h := Header{
		Signature:  Signature,
		Version:    Version,
		Mission:    MissionFilename(m.Filename),
		Level:      m.Level,
		Gametime:   w.Gametime(),
		FrameCount: w.FrameCount(),
		PlayerSlot: int16(w.LocalSlot()),
	}

	out.String(h.Signature)
	out.Int16(h.Version)
	out.String(h.Mission)
	out.Int32(h.Level)
	out.Float32(h.Gametime)
	out.Int32(h.FrameCount)
	for _, s := range world.Sections {
		if err := w.WriteSection(out, s); err != nil {
			return h, fmt.Errorf("write %s: %w", s, err)
		}
	}
	out.Int16(h.PlayerSlot)
	return h, out.Err()
}

// ReadPreamble reads the fields before the snapshot without touching any world.
func ReadPreamble(in *stream.Reader) (Header, error) {
	h := Header{
		Signature: in.String(maxSignature),
		Version:   in.Int16(),
	}
	if err := in.Err(); err != nil {
		return h, fmt.Errorf("read signature: %w", err)
	}
	if h.Signature != Signature && h.Signature != LegacySignature {
		return h, fmt.Errorf("%w: %q", ErrBadSignature, h.Signature)
	}
	h.Mission = in.String(maxMission)
	h.Level = in.Int32()
	h.Gametime = in.Float32()
	h.FrameCount = in.Int32()
	if err := in.Err(); err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	return h, nil
}

// Restore reads a header, loads its mission and rebuilds the world from
// the snapshot. On success the remap table is seeded with identity for
// every object in the snapshot and the returned Xlate must be kept for
// translating creation events.
func Restore(in *stream.Reader, w world.World, pres world.Presentation, table *remap.Table, logger *slog.Logger) (h Header, x *world.Xlate, err error) {
	h, err = ReadPreamble(in)
	if err != nil {
		return h, nil, err
	}
	if h.Version > Version {
		logger.Warn("Demo was recorded by a newer build", "version", h.Version, "supported", Version)
	}

	if err := w.LoadMission(h.Mission); err != nil {
		return h, nil, fmt.Errorf("%w: %q: %v", ErrMissionLoad, h.Mission, err)
	}
	if err := w.StartLevel(h.Level); err != nil {
		return h, nil, fmt.Errorf("%w: level %d: %v", ErrMissionLoad, h.Level, err)
	}
	w.SetFrameCount(h.FrameCount)
	table.Reset()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while restoring demo header", "panic", r)
			x = nil
			err = fmt.Errorf("%w: %v", ErrRestore, r)
		}
	}()

	x = &world.Xlate{}
	for _, s := range world.Sections {
		if err := w.ReadSection(in, s, h.Version, x); err != nil {
			return h, nil, fmt.Errorf("%w: %s: %w", ErrRestore, s, err)
		}
	}
	h.PlayerSlot = in.Int16()
	if err := in.Err(); err != nil {
		return h, nil, fmt.Errorf("%w: player slot: %w", ErrRestore, err)
	}
	if err := rederive(w, pres, table, int(h.PlayerSlot)); err != nil {
		return h, nil, err
	}
	return h, x, nil
}

// rederive rebuilds the state the snapshot does not carry.
func rederive(w world.World, pres world.Presentation, table *remap.Table, slot int) error {
	if slot < 0 || slot >= w.MaxPlayers() {
		return fmt.Errorf("%w: player slot %d out of range", ErrRestore, slot)
	}
	viewer, ok := w.PlayerObject(slot)
	if !ok {
		return fmt.Errorf("%w: player slot %d has no object", ErrRestore, slot)
	}

	// Only the recording player stays a ship; everyone else spectates.
	w.Each(func(o *world.Object) {
		if o.Type == core.ObjPlayer && o.ID != viewer {
			w.MakeGhost(o.ID)
		}
	})
	w.SetLocalSlot(slot)
	w.SetViewer(viewer)

	table.ResetIdentity(w.HighestIndex() + 1)

	ships := w.Ships()
	for p := 0; p < w.MaxPlayers(); p++ {
		w.ResetScalars(p)
		id, ok := w.PlayerObject(p)
		if !ok {
			continue
		}
		o, ok := w.Object(id)
		if !ok {
			continue
		}
		for i, s := range ships {
			if s.ModelHandle == o.ModelHandle {
				w.SetShip(p, i)
				break
			}
		}
	}

	ship := w.Ship(slot)
	mode := pres.HUDMode()
	pres.InitShipHUD(ship)
	pres.InitCockpit(ship)
	if mode == world.HUDCockpit || mode == world.HUDFullscreen {
		pres.SetHUDMode(mode)
	}
	pres.ResetViews()
	return nil
}
