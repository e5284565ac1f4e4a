package memworld

import (
	"bytes"
	"testing"

	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(t *testing.T) *World {
	t.Helper()
	w := New(32, 4)
	w.AddObjectInfo("Tubbs")
	w.AddObjectInfo("Energy")
	w.AddShip("Pyro-GL", 100)
	w.Rooms = []Room{{Flags: 1}, {Flags: 2}}
	w.Triggers = []int32{5}
	w.VisEffects = []VisEffect{{Kind: 2, Pos: core.Vector{X: 1}, LifeLeft: 0.5}}
	w.Spew = []Spewer{{Pos: core.Vector{Y: 2}, Interval: 0.25}}
	w.SystemState = []byte("osiris")

	_, err := w.AddPlayer(0, 100, core.Vector{X: 5})
	require.NoError(t, err)
	_, err = w.Place(world.Object{Type: core.ObjRobot, InfoID: 0, Room: 1, Pos: core.Vector{Z: 3}, Orient: core.IdentityMatrix, LifeLeft: 2})
	require.NoError(t, err)
	w.SetInfo(0, core.PlayerInfo{Energy: 90, FOV: 72})
	return w
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := populated(t)

	var buf bytes.Buffer
	out := stream.NewWriter(&buf)
	for _, s := range world.Sections {
		require.NoError(t, src.WriteSection(out, s), s.String())
	}
	require.NoError(t, out.Flush())

	// destination knows the infos in a different order
	dst := New(32, 4)
	dst.AddObjectInfo("Energy")
	dst.AddObjectInfo("Tubbs")
	dst.Rooms = make([]Room, 2)
	dst.Triggers = make([]int32, 1)

	in := stream.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	x := &world.Xlate{}
	for _, s := range world.Sections {
		require.NoError(t, dst.ReadSection(in, s, 5, x), s.String())
	}
	assert.Equal(t, int64(0), in.Remaining())

	assert.Equal(t, []uint16{1, 0}, x.ObjectInfo)
	assert.Equal(t, src.Rooms, dst.Rooms)
	assert.Equal(t, src.Triggers, dst.Triggers)
	assert.Equal(t, src.VisEffects, dst.VisEffects)
	assert.Equal(t, src.Spew, dst.Spew)
	assert.Equal(t, src.SystemState, dst.SystemState)
	assert.Equal(t, src.HighestIndex(), dst.HighestIndex())

	robot, ok := dst.Object(1)
	require.True(t, ok)
	assert.Equal(t, core.ObjRobot, robot.Type)
	assert.Equal(t, uint16(1), robot.InfoID, "info ids are translated by name")
	assert.Equal(t, float32(2), robot.LifeLeft)

	assert.Equal(t, core.ObjectID(0), dst.Player(0).Object)
	assert.Equal(t, int16(90), dst.Info(0).Energy)
}

func TestCreateMoveDead(t *testing.T) {
	w := New(4, 1)
	id, err := w.Create(world.Spawn{Type: core.ObjPowerup, Room: 3})
	require.NoError(t, err)
	o, ok := w.Object(id)
	require.True(t, ok)
	assert.Equal(t, core.IdentityMatrix, o.Orient)

	w.Move(id, 4, core.Vector{X: 1}, core.IdentityMatrix)
	assert.True(t, o.Moved())
	w.Tick(0.1)
	assert.False(t, o.Moved())
	assert.Equal(t, int32(1), w.FrameCount())

	w.SetDead(id)
	_, ok = w.Object(id)
	assert.False(t, ok)
	assert.Equal(t, -1, w.HighestIndex())
}

func TestTableFull(t *testing.T) {
	w := New(1, 1)
	_, err := w.Create(world.Spawn{Type: core.ObjClutter})
	require.NoError(t, err)
	_, err = w.Create(world.Spawn{Type: core.ObjClutter})
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestBadPlayerSlot(t *testing.T) {
	w := New(1, 2)
	for _, slot := range []int{-1, 2, 9} {
		assert.NotPanics(t, func() {
			w.SetFlags(slot, 3)
			w.SetInfo(slot, core.PlayerInfo{Energy: 1})
			w.SetBalls(slot, core.BallState{})
		})
		assert.Zero(t, w.Flags(slot))
		assert.Equal(t, core.PlayerInfo{}, w.Info(slot))
	}
	w.SetFlags(1, 3)
	assert.Equal(t, int32(3), w.Flags(1))
}

func TestMissionLoading(t *testing.T) {
	w := New(1, 1)
	w.RegisterMission("d3.mn3", 15)
	assert.ErrorIs(t, w.LoadMission("nope.mn3"), ErrUnknownMission)
	require.NoError(t, w.LoadMission("D3.MN3"))
	assert.ErrorIs(t, w.StartLevel(16), ErrUnknownLevel)
	require.NoError(t, w.StartLevel(4))
	assert.Equal(t, core.Mission{Filename: "D3.MN3", Level: 4}, w.Mission())
}

func TestSeededKillIsDeterministic(t *testing.T) {
	a, b := New(2, 1), New(2, 1)
	for _, w := range []*World{a, b} {
		w.SeedRandom(77)
		w.Kill(0, core.KillInfo{Seed: 77})
	}
	assert.Equal(t, a.Explosions[0].Debris, b.Explosions[0].Debris)
}
