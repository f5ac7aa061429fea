// Package geomtypes holds the canonical geometry types shared across the
// translation pipeline: zones, bounding boxes and area helpers.
package geomtypes

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrNonPositiveArea wraps NewZone's error when geometry is well-formed but
// resolves to zero or negative area (a degenerate sliver, or a genuinely
// point-like feature below any areal threshold). Callers that must drop
// such rows rather than fail the whole load (GeomSource) can distinguish
// this case with errors.Is.
var ErrNonPositiveArea = errors.New("geometry has non-positive area")

// Zone is a single polygonal region in a zoning system, normalized by a
// GeomSource. Geometry is read-only after construction.
type Zone struct {
	ID       string
	Geometry orb.Geometry // orb.Polygon or orb.MultiPolygon; orb.Point/MultiPoint for auxiliary point layers
	Area     float64
}

// NewZone computes Area from Geometry using the authoritative planar area
// function and rejects areal geometry (polygon, multipolygon) that
// resolves to zero or negative area. Point and MultiPoint geometry is
// exempt from the area check: Area legitimately returns 0 for it, since
// auxiliary point layers (PointSubstitution, the point-to-point pre-match)
// carry no area by definition rather than by degeneracy.
func NewZone(id string, geom orb.Geometry) (Zone, error) {
	if geom == nil {
		return Zone{}, fmt.Errorf("zone %q: nil geometry", id)
	}
	area := Area(geom)
	if area <= 0 && isAreal(geom) {
		return Zone{}, fmt.Errorf("zone %q: %w (%.6g)", id, ErrNonPositiveArea, area)
	}
	return Zone{ID: id, Geometry: geom, Area: area}, nil
}

func isAreal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

// Area computes the area of a polygon or multipolygon, net of holes, using
// orb/planar as the single authoritative area function for the whole
// pipeline. Non-areal geometry (points, lines) returns 0.
func Area(g orb.Geometry) float64 {
	switch t := g.(type) {
	case orb.Polygon:
		return planar.Area(t)
	case orb.MultiPolygon:
		var total float64
		for _, p := range t {
			total += planar.Area(p)
		}
		return total
	default:
		return 0
	}
}

// Polygons flattens a Polygon or MultiPolygon into its constituent polygons.
// Any other geometry type yields nil.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch t := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{t}
	case orb.MultiPolygon:
		return []orb.Polygon(t)
	default:
		return nil
	}
}

// Bound returns the geometry's bounding box, used for the cheap overlap
// pre-filter ahead of exact clipping.
func Bound(g orb.Geometry) orb.Bound {
	return g.Bound()
}
