package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/util"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

// ToggleRecording stops an active recording, or asks for a filename and
// starts one. It does nothing during playback.
func (c *Controller) ToggleRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.modeLocked() {
	case Recording:
		c.teardownLocked(OutcomeFinished, false)
		return nil
	case Playback:
		return ErrSessionActive
	}
	name, ok := c.deps.Presentation.PromptFilename("Demo filename", MaxFilename)
	if !ok || name == "" {
		return nil
	}
	return c.startRecordingLocked(name)
}

// StartRecording opens name in the demo directory and writes the header.
func (c *Controller) StartRecording(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startRecordingLocked(name)
}

func (c *Controller) startRecordingLocked(name string) error {
	if c.active != nil {
		return ErrSessionActive
	}
	if len(name) > MaxFilename {
		return fmt.Errorf("%q: %w", name, ErrFilenameTooLong)
	}
	path := util.DemoPath(c.opts.Dir, util.EnsureDemoExt(name))
	c.logger.Info("Recording demo", "file", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.deps.Presentation.Notify("Unable to create demo file")
		return fmt.Errorf("create demo dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		c.deps.Presentation.Notify("Unable to create demo file")
		return fmt.Errorf("create demo file: %w", err)
	}

	now := c.clock.Now()
	s := &session{
		mode:    Recording,
		path:    path,
		file:    f,
		w:       stream.NewWriter(f),
		started: now,
		// write player info with the very first frame
		lastInfo: now.Add(-2 * c.opts.PlayerInfoInterval),
		opcodes:  map[event.Opcode]int{},
	}
	h, err := hydrate.Capture(s.w, c.deps.World)
	if err == nil {
		err = s.w.Flush()
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		c.deps.Presentation.Notify("Unable to create demo file")
		return fmt.Errorf("write demo header: %w", err)
	}
	s.header = h
	c.active = s
	c.postDemo = false
	c.deps.Context.Set(Recording.String(), filepath.Base(path), c.deps.World.Mission())
	c.newFrameLocked(s)
	return nil
}

// StopRecording closes the active recording.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modeLocked() != Recording {
		return ErrNotRecording
	}
	c.teardownLocked(OutcomeFinished, false)
	return nil
}

func (c *Controller) finishRecording(s *session, outcome Outcome, deleted bool) {
	c.metrics.session(Recording, outcome)
	if deleted {
		c.logger.Info("Demo recording discarded", "file", s.path)
		return
	}
	c.deps.Presentation.HUDMessage(hudColor, true, "Demo saved")
	rec := core.DemoRecord{
		Filename:   filepath.Base(s.path),
		Mission:    core.Mission{Filename: s.header.Mission, Level: s.header.Level},
		Version:    s.header.Version,
		StartTime:  s.started,
		Duration:   c.clock.Now().Sub(s.started),
		Frames:     s.frames,
		Events:     s.events,
		SizeBytes:  s.w.Written(),
		PlayerSlot: int32(s.header.PlayerSlot),
		Opcodes:    opcodeHistogram(s.opcodes),
	}
	c.logger.Info("Demo recording saved", "file", s.path, "frames", rec.Frames, "events", rec.Events, "bytes", rec.SizeBytes)
	if c.deps.OnRecorded != nil {
		c.deps.OnRecorded(rec)
	}
}

const hudColor int32 = 0x00FF00

func opcodeHistogram(in map[event.Opcode]int) map[string]int {
	out := make(map[string]int, len(in))
	for op, n := range in {
		out[op.String()] = n
	}
	return out
}

// Record appends ev to the active recording. It is a no-op unless recording.
func (c *Controller) Record(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.recordingLocked(); s != nil {
		c.writeLocked(s, ev)
	}
}

func (c *Controller) recordingLocked() *session {
	if c.active == nil || c.active.mode != Recording {
		return nil
	}
	return c.active
}

func (c *Controller) writeLocked(s *session, ev event.Event) {
	event.Write(s.w, ev)
	op := ev.Opcode()
	s.events++
	s.opcodes[op]++
	c.metrics.event(c.metrics.recorded, op.String())
}

// RecordObjectCreated records the creation of obj. Only robots, powerups,
// clutter, buildings and cameras are recorded.
func (c *Controller) RecordObjectCreated(obj *world.Object) {
	if !obj.Type.Creatable() {
		return
	}
	orient := obj.Orient
	c.Record(&event.ObjectCreated{
		Type:   obj.Type,
		InfoID: obj.InfoID,
		Room:   obj.Room,
		Pos:    obj.Pos,
		Parent: obj.Parent,
		Orient: &orient,
		Object: obj.ID,
	})
}

// RecordTurretChanged marks obj's turret as changed; the keyframes are
// written with the next player info.
func (c *Controller) RecordTurretChanged(id core.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recordingLocked() == nil {
		return
	}
	if o, ok := c.deps.World.Object(id); ok {
		o.Flags |= core.ObjFlagTurretChanged
	}
}

// RecordObjectLifeLeft records obj's remaining lifetime.
func (c *Controller) RecordObjectLifeLeft(obj *world.Object) {
	uses := obj.Flags&core.ObjFlagUsesLifeLeft != 0
	ev := &event.ObjectLifeLeft{Object: obj.ID, Uses: uses}
	if uses {
		ev.LifeLeft = obj.LifeLeft
	}
	c.Record(ev)
}

// RecordChangedObjects writes a transform update for every tracked object
// that moved this frame.
func (c *Controller) RecordChangedObjects() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.recordingLocked()
	if s == nil {
		return
	}
	c.deps.World.Each(func(o *world.Object) {
		if !o.Type.Tracked() || !o.Moved() {
			return
		}
		ev := &event.ObjectChanged{Object: o.ID, Room: o.Room, Pos: o.Pos, Orient: o.Orient}
		if o.Type.HasPlayerFlags() && validSlot(c.deps.World, int(o.InfoID)) {
			ev.HasFlags = true
			ev.Flags = c.deps.World.Flags(int(o.InfoID))
		}
		c.writeLocked(s, ev)
	})
}

// RecordNewFrame ends the current frame. Player info, preceded by any
// pending turret updates, is written at most once per PlayerInfoInterval.
func (c *Controller) RecordNewFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.recordingLocked(); s != nil {
		c.newFrameLocked(s)
	}
}

func (c *Controller) newFrameLocked(s *session) {
	w := c.deps.World
	c.writeLocked(s, &event.NewFrame{Gametime: w.Gametime(), Frametime: w.Frametime()})
	s.frames++

	now := c.clock.Now()
	if now.Sub(s.lastInfo) < c.opts.PlayerInfoInterval {
		return
	}
	s.lastInfo = now
	w.Each(func(o *world.Object) {
		if o.Flags&core.ObjFlagTurretChanged == 0 {
			return
		}
		o.Flags &^= core.ObjFlagTurretChanged
		c.writeLocked(s, &event.TurretUpdate{Gametime: w.Gametime(), Object: o.ID, TurretState: o.Turret})
	})
	c.writeLocked(s, &event.PlayerInfo{PlayerInfo: w.Info(w.LocalSlot())})
}
