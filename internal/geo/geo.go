// Package geo turns demo object positions into simplefeatures geometries.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/demo/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Engine coordinates are room-local world units with Y up. Geometries use
// X and Z as the planar axes and keep Y as the elevation.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromVector creates an XYZ point from an engine position. NaN or
// infinite components are rejected.
func PointFromVector(v core.Vector) (geom.Point, error) {
	p, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(v.X), Y: float64(v.Z)},
		Z:    float64(v.Y),
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("point from %v: %w", v, err)
	}
	return p, nil
}

// VectorFromPoint reverses PointFromVector. An empty point yields the zero vector.
func VectorFromPoint(p geom.Point) core.Vector {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vector{}
	}
	return core.Vector{X: float32(c.X), Y: float32(c.Z), Z: float32(c.Y)}
}

// VectorFromString parses "x,y" or "x,y,z" into an engine position.
func VectorFromString(coords string) (core.Vector, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Vector{}, ErrInvalidCoordinates
	}
	var vals [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return core.Vector{}, ErrInvalidCoordinates
		}
		vals[i] = f
	}
	return core.Vector{X: float32(vals[0]), Y: float32(vals[1]), Z: float32(vals[2])}, nil
}
