package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/util"
	"github.com/OCAP2/demo/pkg/core"
)

// Outcome is the result of one playback frame, or how a session ended.
type Outcome int

const (
	// OutcomeIdle means no playback is active.
	OutcomeIdle Outcome = iota
	// OutcomeFrame means a frame was played and more follow.
	OutcomeFrame
	// OutcomePaused means the playback is paused.
	OutcomePaused
	// OutcomeFinished means the demo reached its end.
	OutcomeFinished
	// OutcomeCorrupt means an undecodable event ended the demo.
	OutcomeCorrupt
	// OutcomeAborted means the session was stopped early.
	OutcomeAborted
)

var outcomeNames = [...]string{"idle", "frame", "paused", "finished", "corrupt", "aborted"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

var errAborted = errors.New("playback aborted")

// StartPlayback loads name from the demo directory and restores the world
// it was recorded in. An active recording is stopped first.
func (c *Controller) StartPlayback(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoPlay = false
	return c.startPlaybackLocked(name)
}

func (c *Controller) startPlaybackLocked(name string) error {
	switch c.modeLocked() {
	case Recording:
		c.teardownLocked(OutcomeFinished, false)
	case Playback:
		return ErrSessionActive
	}

	path := util.DemoPath(c.opts.Dir, util.EnsureDemoExt(name))
	c.logger.Info("Playing demo", "file", path)

	f, err := os.Open(path)
	if err != nil {
		c.deps.Presentation.ShowError("Error", "Unable to load demo file")
		return fmt.Errorf("open demo file: %w", err)
	}
	size := int64(-1)
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}

	s := &session{
		mode:       Playback,
		path:       path,
		file:       f,
		r:          stream.NewReader(f, size),
		started:    c.clock.Now(),
		firstFrame: true,
		opcodes:    map[event.Opcode]int{},
	}
	h, x, err := hydrate.Restore(s.r, c.deps.World, c.deps.Presentation, c.table, c.logger)
	if err != nil {
		f.Close()
		c.table.Reset()
		c.logger.Error("Failed to restore demo", "file", path, "error", err)
		c.deps.Presentation.ShowError("Error", "Bad demo file")
		return fmt.Errorf("restore %s: %w", filepath.Base(path), err)
	}
	s.header = h
	s.xlate = x
	s.nextFrame = h.Gametime

	c.active = s
	c.lastFile = name
	c.deps.Context.Set(Playback.String(), filepath.Base(path), core.Mission{Filename: h.Mission, Level: h.Level})
	c.postDemo = false
	c.paused = false
	c.step = false
	c.abort.Store(false)
	return nil
}

// Frame plays the events of one recorded frame. The host calls it once
// per game frame while a playback is active.
func (c *Controller) Frame(ctx context.Context) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil || s.mode != Playback {
		return OutcomeIdle
	}
	if c.abort.Load() {
		c.teardownLocked(OutcomeAborted, c.deleteOnAbort.Load())
		return OutcomeAborted
	}
	if c.paused {
		if !c.step {
			return OutcomePaused
		}
		c.step = false
	}

	w := c.deps.World
	now := c.clock.Now()
	if s.firstFrame {
		s.firstFrame = false
		w.SetGametime(s.nextFrame)
		w.SetFrametime(0)
	} else {
		if c.opts.MakeMovie {
			if err := c.deps.Presentation.Screenshot(); err != nil {
				c.logger.Warn("Screenshot failed", "error", err)
			}
		}
		if !c.opts.Fast {
			if err := c.paceLocked(ctx, s); err != nil {
				c.teardownLocked(OutcomeAborted, c.deleteOnAbort.Load())
				return OutcomeAborted
			}
			now = c.clock.Now()
		}
		if !s.lastFrame.IsZero() {
			s.stats.Add(now.Sub(s.lastFrame))
		}
	}
	s.lastFrame = now

	for {
		ev, err := event.Read(s.r)
		if err != nil {
			return c.endOfDemoLocked(s, err)
		}
		op := ev.Opcode()
		s.events++
		s.opcodes[op]++
		c.metrics.event(c.metrics.decoded, op.String())
		if c.deps.Observer != nil {
			c.deps.Observer(ev)
		}

		if nf, ok := ev.(*event.NewFrame); ok {
			w.SetGametime(s.nextFrame)
			w.SetFrametime(s.frameTime)
			s.nextFrame = nf.Gametime
			s.frameTime = nf.Frametime
			w.SetFrameCount(w.FrameCount() + 1)
			s.frames++
			c.metrics.frames.Add(ctx, 1)
			return OutcomeFrame
		}
		c.applyLocked(s, ev)
	}
}

// paceLocked waits until the game clock, advanced by the wall time spent
// waiting, reaches the time of the next recorded frame.
func (c *Controller) paceLocked(ctx context.Context, s *session) error {
	w := c.deps.World
	start := c.clock.Now()
	base := w.Gametime()
	for base+float32(c.clock.Now().Sub(start).Seconds()) < s.nextFrame {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.abort.Load() {
			return errAborted
		}
		runtime.Gosched()
	}
	return nil
}

func (c *Controller) endOfDemoLocked(s *session, err error) Outcome {
	outcome := OutcomeFinished
	switch {
	case errors.Is(err, stream.ErrEndOfStream):
		c.logger.Info("End of demo", "file", s.path, "frames", s.frames)
	case errors.Is(err, stream.ErrTruncated):
		c.logger.Warn("Demo ends mid-event", "file", s.path, "error", err)
	default:
		outcome = OutcomeCorrupt
		c.logger.Error("Corrupt demo", "file", s.path, "error", err)
	}
	// An abort that arrived during the last burst ends the chain too.
	if c.abort.Load() {
		c.teardownLocked(OutcomeAborted, c.deleteOnAbort.Load())
		return OutcomeAborted
	}
	c.teardownLocked(outcome, false)
	c.advanceLocked()
	return outcome
}

// advanceLocked picks what plays after a demo ends: the same file when
// looping, then the queue, then the next auto-play demo.
func (c *Controller) advanceLocked() {
	if c.looping && c.lastFile != "" {
		if err := c.startPlaybackLocked(c.lastFile); err == nil {
			return
		}
	}
	for {
		name, ok := c.queue.Pop()
		if !ok {
			break
		}
		if err := c.startPlaybackLocked(name); err == nil {
			return
		}
	}
	if c.autoPlay {
		c.autoIdx++
		if err := c.playAutoLocked(); err == nil {
			return
		}
		c.autoPlay = false
	}
	c.postDemo = true
}

func (c *Controller) finishPlayback(s *session, outcome Outcome) {
	c.metrics.session(Playback, outcome)
	rep := core.PlaybackReport{
		Filename:     filepath.Base(s.path),
		Mission:      core.Mission{Filename: s.header.Mission, Level: s.header.Level},
		StartedAt:    s.started,
		Outcome:      outcome.String(),
		Frames:       s.frames,
		Events:       s.events,
		Skipped:      s.skipped,
		MinFrameTime: s.stats.Min,
		MaxFrameTime: s.stats.Max,
		AvgFrameTime: s.stats.Avg(),
		Fast:         c.opts.Fast,
		Movie:        c.opts.MakeMovie,
	}
	slowest, fastest, mean := s.stats.FPS()
	c.logger.Info("Demo playback ended",
		"file", s.path,
		"outcome", rep.Outcome,
		"frames", rep.Frames,
		"skipped", rep.Skipped,
		"minFPS", slowest,
		"maxFPS", fastest,
		"avgFPS", mean,
	)
	if c.deps.OnPlayed != nil {
		c.deps.OnPlayed(rep)
	}
}

// TogglePause pauses or resumes the active playback.
func (c *Controller) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modeLocked() != Playback {
		return false
	}
	c.paused = !c.paused
	c.step = false
	return c.paused
}

// Step plays a single frame of a paused playback.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.step = true
	}
}

// Enqueue adds demos to play after the current one. When nothing is
// playing the first of them starts at once.
func (c *Controller) Enqueue(names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Push(names...)
	if c.modeLocked() != Idle {
		return nil
	}
	return c.playNextLocked()
}

// Queued returns the demos waiting to play.
func (c *Controller) Queued() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Items()
}

// PlayNext ends the active playback and starts the next queued demo.
func (c *Controller) PlayNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modeLocked() == Playback {
		c.teardownLocked(OutcomeAborted, false)
	}
	return c.playNextLocked()
}

func (c *Controller) playNextLocked() error {
	name, ok := c.queue.Pop()
	if !ok {
		return ErrNoDemos
	}
	return c.startPlaybackLocked(name)
}

// PlayAutoDemo starts cycling through every demo in the demo directory.
func (c *Controller) PlayAutoDemo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modeLocked() != Idle {
		return ErrSessionActive
	}
	c.autoPlay = true
	if err := c.playAutoLocked(); err != nil {
		c.autoPlay = false
		return err
	}
	return nil
}

func (c *Controller) playAutoLocked() error {
	names, err := util.ListDemos(c.opts.Dir)
	if err != nil {
		return fmt.Errorf("list demos: %w", err)
	}
	if len(names) == 0 {
		return ErrNoDemos
	}
	if c.autoIdx < 0 || c.autoIdx >= len(names) {
		c.autoIdx = 0
	}
	return c.startPlaybackLocked(names[c.autoIdx])
}

// ListDemos returns the demo files in the demo directory.
func (c *Controller) ListDemos() ([]string, error) {
	return util.ListDemos(c.opts.Dir)
}

// PostDemo reports whether a playback ended with nothing left to play.
// It is cleared by the next session.
func (c *Controller) PostDemo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postDemo
}
