package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/demo/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePolyline parses a JSON array of coordinates into engine positions.
// Input format: "[[x1,y1,z1],[x2,y2,z2],...]"; a missing z is 0.
func ParsePolyline(input string) ([]core.Vector, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	out := make([]core.Vector, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		out[i] = core.Vector{X: float32(coord[0]), Y: float32(coord[1])}
		if len(coord) > 2 {
			out[i].Z = float32(coord[2])
		}
	}
	return out, nil
}

// LineString builds an XYZ line string from engine positions. The path
// needs two points that differ in the X/Z plane, or none at all.
func LineString(path []core.Vector) (geom.LineString, error) {
	flat := make([]float64, 0, len(path)*3)
	for _, v := range path {
		flat = append(flat, float64(v.X), float64(v.Z), float64(v.Y))
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("line string of %d points: %w", len(path), err)
	}
	return ls, nil
}

// Track collects the positions an object moved through.
type Track struct {
	points []core.Vector
}

// Add appends a position, skipping exact repeats of the last one.
func (t *Track) Add(v core.Vector) {
	if n := len(t.points); n > 0 && t.points[n-1] == v {
		return
	}
	t.points = append(t.points, v)
}

// Len returns the number of distinct positions.
func (t *Track) Len() int {
	return len(t.points)
}

// Length returns the planar length of the track. A track that never left
// its starting X/Z position has length 0.
func (t *Track) Length() float64 {
	if len(t.points) < 2 {
		return 0
	}
	ls, err := LineString(t.points)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// WKT renders the track as well-known text. Tracks with fewer than two
// points render as an empty line string.
func (t *Track) WKT() (string, error) {
	if len(t.points) < 2 {
		return geom.LineString{}.AsText(), nil
	}
	ls, err := LineString(t.points)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}
