// Package session owns the single demo session of the process and drives
// recording and playback through it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/internal/mission"
	"github.com/OCAP2/demo/internal/queue"
	"github.com/OCAP2/demo/internal/remap"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

// Mode is what the session is doing.
type Mode int

const (
	Idle Mode = iota
	Recording
	Playback
)

func (m Mode) String() string {
	switch m {
	case Recording:
		return "recording"
	case Playback:
		return "playback"
	default:
		return "idle"
	}
}

// MaxFilename bounds a demo filename entered by the user.
const MaxFilename = 128

var (
	ErrSessionActive   = errors.New("a demo session is already active")
	ErrNotRecording    = errors.New("not recording")
	ErrFilenameTooLong = fmt.Errorf("demo filename longer than %d bytes", MaxFilename)
	ErrNoDemos         = errors.New("no demo files available")
)

// Options are the session settings read from config.
type Options struct {
	Dir                string
	Fast               bool
	MakeMovie          bool
	Looping            bool
	MaxObjects         int
	PlayerInfoInterval time.Duration
}

// Dependencies holds the collaborators of the controller.
type Dependencies struct {
	World        world.World
	Presentation world.Presentation
	Passthrough  world.Passthrough
	Logger       *slog.Logger
	// Clock defaults to the wall clock.
	Clock Clock
	// Observer sees every event decoded during playback.
	Observer func(event.Event)
	// Context is kept in step with the open session for log enrichment.
	Context *mission.Context
	// OnRecorded is called after a recording is closed.
	OnRecorded func(core.DemoRecord)
	// OnPlayed is called after a playback session ends.
	OnPlayed func(core.PlaybackReport)
}

// session is the state of one open demo file.
type session struct {
	mode    Mode
	path    string
	file    *os.File
	w       *stream.Writer
	r       *stream.Reader
	header  hydrate.Header
	xlate   *world.Xlate
	started time.Time

	firstFrame bool
	nextFrame  float32
	frameTime  float32
	lastFrame  time.Time
	lastInfo   time.Time

	frames  uint32
	events  uint32
	skipped uint32
	opcodes map[event.Opcode]int
	stats   FrameStats

	closed bool
}

// Controller is the process-wide demo controller. All methods are safe
// for concurrent use; at most one session is open at any time.
type Controller struct {
	mu      sync.Mutex
	deps    Dependencies
	opts    Options
	clock   Clock
	logger  *slog.Logger
	table   *remap.Table
	active  *session
	queue   *queue.Queue[string]
	metrics *metrics

	looping  bool
	autoPlay bool
	autoIdx  int
	paused   bool
	step     bool
	postDemo bool
	lastFile string

	abort         atomic.Bool
	deleteOnAbort atomic.Bool
}

// New creates the controller.
func New(deps Dependencies, opts Options) (*Controller, error) {
	if deps.World == nil || deps.Presentation == nil {
		return nil, errors.New("session: world and presentation are required")
	}
	if opts.MaxObjects <= 0 {
		opts.MaxObjects = 1500
	}
	if opts.PlayerInfoInterval <= 0 {
		opts.PlayerInfoInterval = 100 * time.Millisecond
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	c := &Controller{
		deps:    deps,
		opts:    opts,
		clock:   deps.Clock,
		logger:  deps.Logger,
		table:   remap.New(opts.MaxObjects),
		queue:   queue.New[string](),
		metrics: m,
		looping: opts.Looping,
	}
	if c.clock == nil {
		c.clock = systemClock{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Status is a snapshot of the controller state.
type Status struct {
	Mode     string  `json:"mode"`
	File     string  `json:"file,omitempty"`
	Mission  string  `json:"mission,omitempty"`
	Level    int32   `json:"level,omitempty"`
	Frames   uint32  `json:"frames"`
	Events   uint32  `json:"events"`
	Skipped  uint32  `json:"skipped"`
	Gametime float32 `json:"gametime"`
	Paused   bool    `json:"paused"`
	Looping  bool    `json:"looping"`
	AutoPlay bool    `json:"autoPlay"`
	PostDemo bool    `json:"postDemo"`
	Queued   int     `json:"queued"`
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modeLocked()
}

func (c *Controller) modeLocked() Mode {
	if c.active == nil {
		return Idle
	}
	return c.active.mode
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Mode:     c.modeLocked().String(),
		Paused:   c.paused,
		Looping:  c.looping,
		AutoPlay: c.autoPlay,
		PostDemo: c.postDemo,
		Queued:   c.queue.Len(),
	}
	if s := c.active; s != nil {
		st.File = s.path
		st.Mission = s.header.Mission
		st.Level = s.header.Level
		st.Frames = s.frames
		st.Events = s.events
		st.Skipped = s.skipped
		st.Gametime = c.deps.World.Gametime()
	}
	return st
}

// SetLooping sets whether a finished demo restarts.
func (c *Controller) SetLooping(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.looping = on
}

// Abort ends the active session. A recording is closed at once; a
// playback stops at the top of its next frame. With deleteFile the demo
// file is removed.
func (c *Controller) Abort(deleteFile bool) {
	// Flags first, so a playback waiting on the frame clock sees them.
	c.deleteOnAbort.Store(deleteFile)
	c.abort.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.modeLocked() {
	case Recording:
		c.teardownLocked(OutcomeAborted, deleteFile)
	case Idle:
		c.abort.Store(false)
		c.deleteOnAbort.Store(false)
	}
}

// Close tears down any active session immediately.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.teardownLocked(OutcomeAborted, false)
	}
	c.queue.Clear()
	c.autoPlay = false
}

// teardownLocked closes the active session exactly once and reports it.
func (c *Controller) teardownLocked(outcome Outcome, deleteFile bool) {
	s := c.active
	if s == nil || s.closed {
		return
	}
	s.closed = true
	c.active = nil
	c.paused = false
	c.step = false
	c.abort.Store(false)
	c.deleteOnAbort.Store(false)

	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			c.logger.Error("Failed to flush demo file", "file", s.path, "error", err)
			c.deps.Presentation.Notify("Demo file could not be written")
		}
	}
	if err := s.file.Close(); err != nil {
		c.logger.Error("Failed to close demo file", "file", s.path, "error", err)
	}
	s.xlate = nil
	c.table.Reset()
	c.deps.Context.Clear()

	if deleteFile {
		if err := os.Remove(s.path); err != nil {
			c.logger.Warn("Failed to delete demo file", "file", s.path, "error", err)
		}
	}

	switch s.mode {
	case Recording:
		c.finishRecording(s, outcome, deleteFile)
	case Playback:
		c.finishPlayback(s, outcome)
	}
}
