package inspect

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/internal/world/memworld"
	"github.com/OCAP2/demo/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDemo captures a small world and appends a scripted burst: the robot
// walks 3-4-5 twice, a clutter object is created and removed.
func writeDemo(t *testing.T) []byte {
	t.Helper()
	w := memworld.New(32, 2)
	w.RegisterMission("pilot.mn3", 3)
	require.NoError(t, w.LoadMission("pilot.mn3"))
	require.NoError(t, w.StartLevel(1))
	w.AddShip("Pyro-GL", 7)
	info := w.AddObjectInfo("Tubbs")
	_, err := w.AddPlayer(0, 7, core.Vector{})
	require.NoError(t, err)
	robot, err := w.Place(world.Object{Type: core.ObjRobot, InfoID: info, Orient: core.IdentityMatrix})
	require.NoError(t, err)
	w.SetGametime(5)

	var buf bytes.Buffer
	out := stream.NewWriter(&buf)
	_, err = hydrate.Capture(out, w)
	require.NoError(t, err)

	moves := []core.Vector{{X: 3, Z: 4}, {X: 6, Y: 9, Z: 8}}
	for i, pos := range moves {
		event.Write(out, &event.ObjectChanged{Object: robot, Pos: pos, Orient: core.IdentityMatrix})
		event.Write(out, &event.NewFrame{Gametime: 5 + float32(i+1)*0.5, Frametime: 0.5})
	}
	event.Write(out, &event.ObjectCreated{Type: core.ObjClutter, Pos: core.Vector{X: 1}, Object: 20})
	event.Write(out, &event.ObjectChanged{Object: 20, Pos: core.Vector{X: 2}, Orient: core.IdentityMatrix})
	event.Write(out, &event.SetObjectDead{Object: 20})
	event.Write(out, &event.NewFrame{Gametime: 6.5, Frametime: 0.5})
	require.NoError(t, out.Flush())
	return buf.Bytes()
}

func scratch() *memworld.World {
	w := memworld.New(32, 2)
	w.AddObjectInfo("Tubbs")
	return w
}

func TestReadSummarisesDemo(t *testing.T) {
	data := writeDemo(t)

	rep, err := Read(bytes.NewReader(data), int64(len(data)), scratch())
	require.NoError(t, err)

	assert.Equal(t, hydrate.Signature, rep.Header.Signature)
	assert.Equal(t, "pilot.mn3", rep.Header.Mission)
	assert.Equal(t, int32(1), rep.Header.Level)
	assert.Equal(t, "finished", rep.End)
	assert.Empty(t, rep.Error)
	assert.Equal(t, 3, rep.Frames)
	assert.Equal(t, 8, rep.Events)
	assert.InDelta(t, 1.5, rep.Duration, 1e-6)
	assert.Equal(t, 3, rep.Opcodes["object_changed"])
	assert.Equal(t, 1, rep.Opcodes["object_created"])

	assert.InDelta(t, 10.0, rep.Paths[1], 1e-6)
	assert.InDelta(t, 1.0, rep.Paths[20], 1e-6)
	assert.NotContains(t, rep.Paths, core.ObjectID(0))
}

func TestReadToleratesDegeneratePaths(t *testing.T) {
	data := writeDemo(t)
	var buf bytes.Buffer
	buf.Write(data)
	out := stream.NewWriter(&buf)
	// a lift moving straight up, then a position that is not finite
	event.Write(out, &event.ObjectCreated{Type: core.ObjClutter, Pos: core.Vector{X: 5, Z: 5}, Object: 21})
	event.Write(out, &event.ObjectChanged{Object: 21, Pos: core.Vector{X: 5, Y: 30, Z: 5}, Orient: core.IdentityMatrix})
	event.Write(out, &event.ObjectChanged{Object: 22, Pos: core.Vector{X: float32(math.Inf(1))}, Orient: core.IdentityMatrix})
	event.Write(out, &event.ObjectChanged{Object: 22, Pos: core.Vector{X: 1}, Orient: core.IdentityMatrix})
	event.Write(out, &event.NewFrame{Gametime: 7, Frametime: 0.5})
	require.NoError(t, out.Flush())

	var rep *Report
	var err error
	require.NotPanics(t, func() {
		rep, err = Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()), scratch())
	})
	require.NoError(t, err)
	assert.Equal(t, "finished", rep.End)
	assert.NotContains(t, rep.Paths, core.ObjectID(21))
	assert.NotContains(t, rep.Paths, core.ObjectID(22))
	assert.InDelta(t, 10.0, rep.Paths[1], 1e-6)
}

func TestReadReportsTruncation(t *testing.T) {
	data := writeDemo(t)
	cut := data[:len(data)-3]

	rep, err := Read(bytes.NewReader(cut), int64(len(cut)), scratch())
	require.NoError(t, err)
	assert.Equal(t, "truncated", rep.End)
	assert.NotEmpty(t, rep.Error)
	assert.Equal(t, 2, rep.Frames)
}

func TestReadReportsCorruption(t *testing.T) {
	data := append(writeDemo(t), 0xEE)

	rep, err := Read(bytes.NewReader(data), int64(len(data)), scratch())
	require.NoError(t, err)
	assert.Equal(t, "corrupt", rep.End)
	assert.Contains(t, rep.Error, "unknown opcode")
}

func TestReadRejectsBadSignature(t *testing.T) {
	data := []byte("NOTADEMO\x00\x05\x00")
	_, err := Read(bytes.NewReader(data), int64(len(data)), scratch())
	assert.ErrorIs(t, err, hydrate.ErrBadSignature)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.dem")
	require.NoError(t, os.WriteFile(path, writeDemo(t), 0644))

	rep, err := File(path, scratch())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Frames)

	_, err = File(filepath.Join(t.TempDir(), "missing.dem"), scratch())
	assert.Error(t, err)
}

func TestHistogramOrder(t *testing.T) {
	rep := &Report{Opcodes: map[string]int{"b": 2, "a": 2, "c": 5}}
	assert.Equal(t, []OpcodeCount{{"c", 5}, {"a", 2}, {"b", 2}}, rep.Histogram())
}
