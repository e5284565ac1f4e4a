// Package inspect reads a demo file without playing it back and
// summarises its header, opcodes and object trajectories.
package inspect

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/geo"
	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/internal/stream"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

// Report is the summary of one demo file.
type Report struct {
	Header   hydrate.Header            `json:"header"`
	Size     int64                     `json:"size"`
	Frames   int                       `json:"frames"`
	Events   int                       `json:"events"`
	Duration float32                   `json:"duration"`
	Opcodes  map[string]int            `json:"opcodes"`
	Paths    map[core.ObjectID]float64 `json:"paths"`
	// End is how the stream ended: "finished", "truncated" or "corrupt".
	End   string `json:"end"`
	Error string `json:"error,omitempty"`
}

// Walker visits the objects restored from a snapshot.
type Walker interface {
	Each(fn func(*world.Object))
}

// File opens path and inspects it. snap reads the world snapshot; it is
// scratch state and is overwritten.
func File(path string, snap world.Snapshotter) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat demo: %w", err)
	}
	return Read(f, info.Size(), snap)
}

// Read inspects a demo stream of the given size.
func Read(r io.Reader, size int64, snap world.Snapshotter) (*Report, error) {
	in := stream.NewReader(r, size)
	h, err := hydrate.ReadPreamble(in)
	if err != nil {
		return nil, err
	}
	x := &world.Xlate{}
	for _, s := range world.Sections {
		if err := snap.ReadSection(in, s, h.Version, x); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", hydrate.ErrRestore, s, err)
		}
	}
	h.PlayerSlot = in.Int16()
	if err := in.Err(); err != nil {
		return nil, fmt.Errorf("%w: player slot: %w", hydrate.ErrRestore, err)
	}

	rep := &Report{
		Header:  h,
		Size:    size,
		Opcodes: map[string]int{},
		Paths:   map[core.ObjectID]float64{},
	}
	tracks := map[core.ObjectID]*geo.Track{}
	if wk, ok := snap.(Walker); ok {
		wk.Each(func(o *world.Object) {
			tr := &geo.Track{}
			tr.Add(o.Pos)
			tracks[o.ID] = tr
		})
	}
	end := func(id core.ObjectID) {
		if tr, ok := tracks[id]; ok {
			rep.Paths[id] += tr.Length()
			delete(tracks, id)
		}
	}
	last := h.Gametime

loop:
	for {
		ev, err := event.Read(in)
		if err != nil {
			switch {
			case errors.Is(err, stream.ErrEndOfStream):
				rep.End = "finished"
			case errors.Is(err, stream.ErrTruncated):
				rep.End = "truncated"
				rep.Error = err.Error()
			default:
				rep.End = "corrupt"
				rep.Error = err.Error()
			}
			break loop
		}
		rep.Events++
		rep.Opcodes[ev.Opcode().String()]++

		switch e := ev.(type) {
		case *event.NewFrame:
			rep.Frames++
			last = e.Gametime
		case *event.ObjectCreated:
			end(e.Object)
			tr := &geo.Track{}
			tr.Add(e.Pos)
			tracks[e.Object] = tr
		case *event.ObjectChanged:
			tr, ok := tracks[e.Object]
			if !ok {
				tr = &geo.Track{}
				tracks[e.Object] = tr
			}
			tr.Add(e.Pos)
		case *event.SetObjectDead:
			end(e.Object)
		}
	}
	for id := range tracks {
		end(id)
	}
	for id, l := range rep.Paths {
		if l == 0 {
			delete(rep.Paths, id)
		}
	}
	rep.Duration = last - h.Gametime
	return rep, nil
}

// OpcodeCount is one row of an opcode histogram.
type OpcodeCount struct {
	Name  string
	Count int
}

// Histogram returns the opcode counts, most frequent first.
func (r *Report) Histogram() []OpcodeCount {
	out := make([]OpcodeCount, 0, len(r.Opcodes))
	for name, n := range r.Opcodes {
		out = append(out, OpcodeCount{name, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
