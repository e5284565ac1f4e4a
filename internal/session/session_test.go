package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/hydrate"
	missionctx "github.com/OCAP2/demo/internal/mission"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/internal/world/memworld"
	"github.com/OCAP2/demo/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const missionFile = "pilot.mn3"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newRecordWorld(t *testing.T) (*memworld.World, core.ObjectID) {
	t.Helper()
	w := memworld.New(64, 4)
	w.RegisterMission(missionFile, 4)
	require.NoError(t, w.LoadMission(missionFile))
	require.NoError(t, w.StartLevel(2))
	w.AddShip("Pyro-GL", 100)
	w.AddWeapon("Laser", 0xABCD)
	info := w.AddObjectInfo("Tubbs")
	_, err := w.AddPlayer(0, 100, core.Vector{})
	require.NoError(t, err)
	robot, err := w.Place(world.Object{Type: core.ObjRobot, InfoID: info, Room: 1, Orient: core.IdentityMatrix})
	require.NoError(t, err)
	w.SetGametime(10)
	return w, robot
}

func newPlayWorld() *memworld.World {
	w := memworld.New(64, 4)
	w.RegisterMission(missionFile, 4)
	w.AddShip("Pyro-GL", 100)
	w.AddWeapon("Laser", 0xABCD)
	w.AddObjectInfo("Tubbs")
	return w
}

type harness struct {
	c      *Controller
	w      *memworld.World
	screen *memworld.Screen
	clock  *fakeClock
	seen   []event.Event
	played []core.PlaybackReport
	saved  []core.DemoRecord
}

func newHarness(t *testing.T, w *memworld.World, opts Options) *harness {
	t.Helper()
	h := &harness{w: w, screen: memworld.NewScreen(), clock: &fakeClock{now: time.Unix(1000, 0)}}
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	c, err := New(Dependencies{
		World:        w,
		Presentation: h.screen,
		Passthrough:  h.screen,
		Logger:       discard,
		Clock:        h.clock,
		Observer:     func(ev event.Event) { h.seen = append(h.seen, ev) },
		OnRecorded:   func(r core.DemoRecord) { h.saved = append(h.saved, r) },
		OnPlayed:     func(r core.PlaybackReport) { h.played = append(h.played, r) },
	}, opts)
	require.NoError(t, err)
	h.c = c
	return h
}

// recordDemo records frames frames, moving robot by one unit per frame.
func recordDemo(t *testing.T, h *harness, name string, robot core.ObjectID, frames int) {
	t.Helper()
	require.NoError(t, h.c.StartRecording(name))
	for i := 0; i < frames; i++ {
		h.w.Tick(0.05)
		o, ok := h.w.Object(robot)
		require.True(t, ok)
		pos := o.Pos
		pos.X++
		h.w.Move(robot, o.Room, pos, o.Orient)
		h.c.RecordChangedObjects()
		h.c.RecordNewFrame()
	}
	require.NoError(t, h.c.StopRecording())
}

// playAll runs frames until the playback ends and returns the final outcome.
func playAll(t *testing.T, c *Controller) Outcome {
	t.Helper()
	for i := 0; i < 1000; i++ {
		out := c.Frame(context.Background())
		if out != OutcomeFrame {
			return out
		}
	}
	t.Fatal("playback did not end")
	return OutcomeIdle
}

func TestRecordThenPlayBack(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "run", robot, 1)
	moved, _ := rw.Object(robot)
	want := *moved

	require.Len(t, rec.saved, 1)
	assert.Equal(t, "run.dem", rec.saved[0].Filename)
	assert.Equal(t, uint32(2), rec.saved[0].Frames)
	assert.Equal(t, 1, rec.saved[0].Opcodes["object_changed"])
	assert.Contains(t, rec.screen.HUD, memworld.HUDLine{Color: hudColor, Blink: true, Text: "Demo saved"})

	pw := newPlayWorld()
	play := newHarness(t, pw, Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("run"))

	st := play.c.Status()
	assert.Equal(t, "playback", st.Mode)
	assert.Equal(t, int32(2), st.Level)
	assert.Equal(t, missionFile, st.Mission)

	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.Equal(t, float32(10), pw.Gametime())

	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	var changed int
	for _, ev := range play.seen[1:] {
		if _, ok := ev.(*event.NewFrame); ok {
			break
		}
		if _, ok := ev.(*event.ObjectChanged); ok {
			changed++
		}
	}
	assert.Equal(t, 1, changed)

	got, ok := pw.Object(robot)
	require.True(t, ok)
	assert.InDelta(t, want.Pos.X, got.Pos.X, 1e-6)
	assert.Equal(t, want.Orient, got.Orient)
	assert.Equal(t, want.Room, got.Room)

	assert.Equal(t, OutcomeFinished, play.c.Frame(context.Background()))
	assert.Equal(t, Idle, play.c.Mode())
	assert.True(t, play.c.PostDemo())
	require.Len(t, play.played, 1)
	assert.Equal(t, "finished", play.played[0].Outcome)
	assert.Equal(t, uint32(2), play.played[0].Frames)
}

func TestFrameReturnsOncePerNewFrame(t *testing.T) {
	rw, _ := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	require.NoError(t, rec.c.StartRecording("burst"))
	for i := 0; i < 3; i++ {
		for j := 0; j <= i; j++ {
			rec.c.Record(&event.HUDMessage{Color: int32(i), Text: "hello"})
		}
		rw.Tick(0.05)
		rec.c.RecordNewFrame()
	}
	require.NoError(t, rec.c.StopRecording())

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("burst"))

	// the first frame only holds the marker written at start
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.Empty(t, play.screen.HUD)
	for i := 0; i < 3; i++ {
		require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
		assert.Len(t, play.screen.HUD, (i+1)*(i+2)/2)
	}
	assert.Equal(t, OutcomeFinished, play.c.Frame(context.Background()))
}

func TestTruncatedDemoFinishes(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	dir := rec.c.opts.Dir

	require.NoError(t, rec.c.StartRecording("full"))
	fi, err := os.Stat(filepath.Join(dir, "full.dem"))
	require.NoError(t, err)
	headerLen := int(fi.Size())
	for i := 0; i < 2; i++ {
		rw.Tick(0.05)
		rw.Move(robot, 1, core.Vector{Y: float32(i)}, core.IdentityMatrix)
		rec.c.Record(&event.PersistentHUD{PersistentMessage: core.PersistentMessage{Text: "objective"}})
		rec.c.RecordChangedObjects()
		rec.c.RecordNewFrame()
	}
	require.NoError(t, rec.c.StopRecording())

	full, err := os.ReadFile(filepath.Join(dir, "full.dem"))
	require.NoError(t, err)
	require.Greater(t, len(full), headerLen)

	for cut := headerLen; cut < len(full); cut++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cut.dem"), full[:cut], 0o644))
		play := newHarness(t, newPlayWorld(), Options{Dir: dir, Fast: true})
		require.NoError(t, play.c.StartPlayback("cut"), "cut at %d", cut)
		assert.Equal(t, OutcomeFinished, playAll(t, play.c), "cut at %d", cut)
		assert.Equal(t, Idle, play.c.Mode())
	}
}

func TestUnknownOpcodeIsCorrupt(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "bad", robot, 1)

	path := filepath.Join(rec.c.opts.Dir, "bad.dem")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xEE, 1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("bad"))
	assert.Equal(t, OutcomeCorrupt, playAll(t, play.c))
	require.Len(t, play.played, 1)
	assert.Equal(t, "corrupt", play.played[0].Outcome)
}

func TestStaleReferencesAreSkipped(t *testing.T) {
	rw, _ := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	require.NoError(t, rec.c.StartRecording("stale"))
	rec.c.Record(&event.CollideGeneric{Collision: event.Collision{Target: 40, Weapon: 41}})
	rec.c.Record(&event.WeaponFire{Source: 40, Checksum: 0xABCD, Projectile: 42})
	rec.c.Record(&event.KillObject{Victim: 43})
	rec.c.Record(&event.Sound2D{Sound: 7, Volume: 1})
	rec.c.RecordNewFrame()
	require.NoError(t, rec.c.StopRecording())

	pw := newPlayWorld()
	play := newHarness(t, pw, Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("stale"))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))

	assert.Empty(t, pw.Hits)
	assert.Empty(t, pw.Explosions)
	assert.Equal(t, uint32(3), play.c.Status().Skipped)
	// decoding carried on past the skipped events
	assert.Len(t, play.screen.Sounds, 1)
}

func TestOutOfRangePlayerSlotIsSkipped(t *testing.T) {
	rw, _ := newRecordWorld(t)
	ghost, err := rw.Place(world.Object{Type: core.ObjPlayer, InfoID: 9, Room: 1, Orient: core.IdentityMatrix})
	require.NoError(t, err)

	rec := newHarness(t, rw, Options{})
	require.NoError(t, rec.c.StartRecording("ghost"))
	rec.c.Record(&event.ObjectChanged{Object: ghost, Room: 1, Orient: core.IdentityMatrix, HasFlags: true, Flags: 7})
	rec.c.RecordNewFrame()
	require.NoError(t, rec.c.StopRecording())

	pw := newPlayWorld()
	play := newHarness(t, pw, Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("ghost"))
	require.NotPanics(t, func() {
		assert.Equal(t, OutcomeFinished, playAll(t, play.c))
	})
	require.Len(t, play.played, 1)
	assert.Equal(t, uint32(1), play.played[0].Skipped)
	for slot := 0; slot < pw.MaxPlayers(); slot++ {
		assert.Zero(t, pw.Flags(slot))
	}
}

func TestRecreatedObjectsAreRemapped(t *testing.T) {
	rw, _ := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	require.NoError(t, rec.c.StartRecording("spawn"))

	rec.c.RecordObjectCreated(&world.Object{ID: 30, Type: core.ObjPlayer})
	rec.c.RecordObjectCreated(&world.Object{ID: 31, Type: core.ObjRobot, Room: 4, Pos: core.Vector{Z: 9}, Orient: core.IdentityMatrix})
	rec.c.Record(&event.CollideGeneric{Collision: event.Collision{Target: 31, Weapon: 31}})
	rec.c.Record(&event.SetObjectDead{Object: 31})
	rec.c.Record(&event.Sound3D{Object: 31, Sound: 2})
	rec.c.RecordNewFrame()
	require.NoError(t, rec.c.StopRecording())
	assert.Equal(t, 1, rec.saved[0].Opcodes["object_created"])

	pw := newPlayWorld()
	play := newHarness(t, pw, Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("spawn"))
	playAll(t, play.c)

	require.Len(t, pw.Hits, 1)
	live := pw.Hits[0].Target
	assert.NotEqual(t, core.ObjectID(31), live)
	_, alive := pw.Object(live)
	assert.False(t, alive)
	assert.Empty(t, play.screen.Sounds)
	require.Len(t, play.played, 1)
	assert.Equal(t, uint32(1), play.played[0].Skipped)
}

func TestSecondSessionRejected(t *testing.T) {
	rw, robot := newRecordWorld(t)
	h := newHarness(t, rw, Options{})
	require.NoError(t, h.c.StartRecording("one"))
	assert.ErrorIs(t, h.c.StartRecording("two"), ErrSessionActive)
	require.NoError(t, h.c.StopRecording())
	assert.ErrorIs(t, h.c.StopRecording(), ErrNotRecording)

	recordDemo(t, h, "three", robot, 1)
	play := newHarness(t, newPlayWorld(), Options{Dir: h.c.opts.Dir})
	require.NoError(t, play.c.StartPlayback("three"))
	assert.ErrorIs(t, play.c.StartRecording("four"), ErrSessionActive)
	assert.ErrorIs(t, play.c.StartPlayback("three"), ErrSessionActive)
}

func TestFilenameTooLong(t *testing.T) {
	rw, _ := newRecordWorld(t)
	h := newHarness(t, rw, Options{})
	long := strings.Repeat("a", MaxFilename+1)
	assert.ErrorIs(t, h.c.StartRecording(long), ErrFilenameTooLong)
	assert.Equal(t, Idle, h.c.Mode())
}

func TestToggleRecording(t *testing.T) {
	rw, _ := newRecordWorld(t)
	h := newHarness(t, rw, Options{})

	require.NoError(t, h.c.ToggleRecording())
	assert.Equal(t, 1, h.screen.Prompts)
	assert.Equal(t, Idle, h.c.Mode())

	h.screen.Answer = "prompted"
	require.NoError(t, h.c.ToggleRecording())
	assert.Equal(t, Recording, h.c.Mode())
	require.NoError(t, h.c.ToggleRecording())
	assert.Equal(t, Idle, h.c.Mode())
	assert.FileExists(t, filepath.Join(h.c.opts.Dir, "prompted.dem"))
}

func TestAbortRecordingDeletesFile(t *testing.T) {
	rw, _ := newRecordWorld(t)
	h := newHarness(t, rw, Options{})
	require.NoError(t, h.c.StartRecording("gone"))
	h.c.Abort(true)
	assert.Equal(t, Idle, h.c.Mode())
	assert.NoFileExists(t, filepath.Join(h.c.opts.Dir, "gone.dem"))
	assert.Empty(t, h.saved)
}

func TestAbortPlayback(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "keep", robot, 3)

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("keep"))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))

	play.c.Abort(false)
	assert.Equal(t, Playback, play.c.Mode())
	assert.Equal(t, OutcomeAborted, play.c.Frame(context.Background()))
	assert.Equal(t, Idle, play.c.Mode())
	assert.FileExists(t, filepath.Join(rec.c.opts.Dir, "keep.dem"))
	assert.Equal(t, OutcomeIdle, play.c.Frame(context.Background()))

	// a stale abort must not leak into the next session
	play.c.Abort(false)
	require.NoError(t, play.c.StartPlayback("keep"))
	assert.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
}

func TestAbortDuringLastFrameIsKept(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "next", robot, 1)
	require.NoError(t, rec.c.StartRecording("tail"))
	rec.c.Record(&event.Sound2D{Sound: 1, Volume: 1})
	rec.c.RecordNewFrame()
	rec.c.Record(&event.Sound2D{Sound: 2, Volume: 1})
	require.NoError(t, rec.c.StopRecording())

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true, Looping: true})
	require.NoError(t, play.c.StartPlayback("tail"))
	play.c.queue.Push("next")

	// the abort lands while the final burst is being decoded
	aborted := make(chan struct{})
	play.c.deps.Observer = func(ev event.Event) {
		if snd, ok := ev.(*event.Sound2D); ok && snd.Sound == 2 {
			go func() {
				play.c.Abort(false)
				close(aborted)
			}()
			for !play.c.abort.Load() {
				runtime.Gosched()
			}
		}
	}

	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.Equal(t, OutcomeAborted, play.c.Frame(context.Background()))
	<-aborted

	assert.Equal(t, Idle, play.c.Mode())
	assert.Equal(t, OutcomeIdle, play.c.Frame(context.Background()))
	assert.Equal(t, []string{"next"}, play.c.Queued())
	require.Len(t, play.played, 1)
	assert.Equal(t, "aborted", play.played[0].Outcome)
	assert.False(t, play.c.abort.Load())
}

func TestBadDemoFiles(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, newPlayWorld(), Options{Dir: dir})

	assert.Error(t, h.c.StartPlayback("missing"))
	assert.Equal(t, []string{"Error: Unable to load demo file"}, h.screen.Errors)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.dem"), []byte("NOTADEMO\x00\x05\x00"), 0o644))
	err := h.c.StartPlayback("junk")
	assert.ErrorIs(t, err, hydrate.ErrBadSignature)
	assert.Equal(t, "Error: Bad demo file", h.screen.Errors[1])
	assert.Equal(t, Idle, h.c.Mode())
}

func TestLoopingRestartsDemo(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "loop", robot, 1)

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true, Looping: true})
	require.NoError(t, play.c.StartPlayback("loop"))
	assert.Equal(t, OutcomeFinished, playAll(t, play.c))
	assert.Equal(t, Playback, play.c.Mode())
	assert.False(t, play.c.PostDemo())

	play.c.SetLooping(false)
	assert.Equal(t, OutcomeFinished, playAll(t, play.c))
	assert.Equal(t, Idle, play.c.Mode())
	assert.Len(t, play.played, 2)
}

func TestQueueAndAutoPlay(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "a", robot, 1)
	recordDemo(t, rec, "b", robot, 1)
	dir := rec.c.opts.Dir

	play := newHarness(t, newPlayWorld(), Options{Dir: dir, Fast: true})
	require.NoError(t, play.c.Enqueue("b", "a"))
	assert.Equal(t, filepath.Join(dir, "b.dem"), play.c.Status().File)
	assert.Equal(t, []string{"a"}, play.c.Queued())
	playAll(t, play.c)
	assert.Equal(t, filepath.Join(dir, "a.dem"), play.c.Status().File)
	playAll(t, play.c)
	assert.True(t, play.c.PostDemo())
	assert.ErrorIs(t, play.c.PlayNext(), ErrNoDemos)

	names, err := play.c.ListDemos()
	require.NoError(t, err)
	assert.Len(t, names, 2)

	require.NoError(t, play.c.PlayAutoDemo())
	assert.Equal(t, filepath.Join(dir, "a.dem"), play.c.Status().File)
	assert.True(t, play.c.Status().AutoPlay)
	playAll(t, play.c)
	assert.Equal(t, filepath.Join(dir, "b.dem"), play.c.Status().File)
	playAll(t, play.c)
	// wraps around
	assert.Equal(t, filepath.Join(dir, "a.dem"), play.c.Status().File)
	play.c.Close()
	assert.Equal(t, Idle, play.c.Mode())

	empty := newHarness(t, newPlayWorld(), Options{})
	assert.ErrorIs(t, empty.c.PlayAutoDemo(), ErrNoDemos)
}

func TestPauseAndStep(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "pause", robot, 3)

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true})
	assert.False(t, play.c.TogglePause())
	require.NoError(t, play.c.StartPlayback("pause"))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))

	assert.True(t, play.c.TogglePause())
	assert.Equal(t, OutcomePaused, play.c.Frame(context.Background()))
	frames := play.c.Status().Frames

	play.c.Step()
	assert.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.Equal(t, frames+1, play.c.Status().Frames)
	assert.Equal(t, OutcomePaused, play.c.Frame(context.Background()))

	assert.False(t, play.c.TogglePause())
	assert.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
}

func TestMovieModeTakesScreenshots(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "movie", robot, 2)

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true, MakeMovie: true})
	require.NoError(t, play.c.StartPlayback("movie"))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.Zero(t, play.screen.Screenshots)
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.Equal(t, 2, play.screen.Screenshots)
}

func TestPlaybackWaitsForFrameTime(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "paced", robot, 2)

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir})
	play.clock.step = time.Millisecond
	require.NoError(t, play.c.StartPlayback("paced"))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))

	before := play.clock.now
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	assert.GreaterOrEqual(t, play.clock.now.Sub(before), 50*time.Millisecond)
	assert.InDelta(t, 10.05, play.w.Gametime(), 1e-4)
}

func TestPacingHonoursContext(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	recordDemo(t, rec, "slow", robot, 2)

	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir})
	require.NoError(t, play.c.StartPlayback("slow"))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))
	require.Equal(t, OutcomeFrame, play.c.Frame(context.Background()))

	// the clock never moves, so only cancellation ends the wait
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, OutcomeAborted, play.c.Frame(ctx))
	assert.Equal(t, Idle, play.c.Mode())
}

func TestRecordingWhileIdleIsNoop(t *testing.T) {
	rw, robot := newRecordWorld(t)
	h := newHarness(t, rw, Options{})
	h.c.Record(&event.Sound2D{Sound: 1})
	h.c.RecordChangedObjects()
	h.c.RecordNewFrame()
	h.c.RecordTurretChanged(robot)

	o, _ := rw.Object(robot)
	assert.Zero(t, o.Flags&core.ObjFlagTurretChanged)
	names, err := h.c.ListDemos()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPlayerInfoCarriesTurretUpdates(t *testing.T) {
	rw, robot := newRecordWorld(t)
	rec := newHarness(t, rw, Options{})
	require.NoError(t, rec.c.StartRecording("turret"))

	o, _ := rw.Object(robot)
	o.Turret = core.TurretState{Time: 3, Keyframes: []float32{0.25, 0.5}}
	rec.c.RecordTurretChanged(robot)
	rec.clock.now = rec.clock.now.Add(time.Second)
	rec.c.RecordNewFrame()
	assert.Zero(t, o.Flags&core.ObjFlagTurretChanged)
	require.NoError(t, rec.c.StopRecording())
	assert.Equal(t, 1, rec.saved[0].Opcodes["turret_update"])
	assert.Equal(t, 2, rec.saved[0].Opcodes["player_info"])

	pw := newPlayWorld()
	play := newHarness(t, pw, Options{Dir: rec.c.opts.Dir, Fast: true})
	require.NoError(t, play.c.StartPlayback("turret"))
	playAll(t, play.c)
	got, ok := pw.Object(robot)
	require.True(t, ok)
	assert.Equal(t, o.Turret, got.Turret)
}

func TestFrameStats(t *testing.T) {
	var s FrameStats
	s.Add(20 * time.Millisecond)
	s.Add(10 * time.Millisecond)
	s.Add(30 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, 20*time.Millisecond, s.Avg())
	slowest, fastest, mean := s.FPS()
	assert.InDelta(t, 33.33, slowest, 0.01)
	assert.InDelta(t, 100, fastest, 0.01)
	assert.InDelta(t, 50, mean, 0.01)
	assert.Equal(t, "aborted", OutcomeAborted.String())
}

func TestMissionContextFollowsSession(t *testing.T) {
	rw, robot := newRecordWorld(t)
	mc := missionctx.NewContext()
	rec := newHarness(t, rw, Options{})
	rec.c.deps.Context = mc

	require.NoError(t, rec.c.StartRecording("ctx"))
	assert.Equal(t, "ctx.dem", mc.File())
	assert.Equal(t, missionFile, mc.GetMission().Filename)
	require.NoError(t, rec.c.StopRecording())
	assert.Empty(t, mc.File())

	recordDemo(t, rec, "ctx", robot, 1)
	play := newHarness(t, newPlayWorld(), Options{Dir: rec.c.opts.Dir, Fast: true})
	play.c.deps.Context = mc
	require.NoError(t, play.c.StartPlayback("ctx"))
	assert.Contains(t, mc.Attrs(), slog.String("mode", "playback"))
	playAll(t, play.c)
	assert.Empty(t, mc.File())
}
