// Package pointsub implements PointSubstitution: replacing sub-threshold
// "point" zones with their enclosing lower-zone polygon, and the separate
// point-to-point pre-match that short-circuits overlay entirely for pairs
// of true points shared by both zoning layers.
package pointsub

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/zonetrans/engine/internal/geomtypes"
)

// DefaultPointToPointTolerance is the default distance cap (in CRS units)
// for the point-to-point nearest-neighbor pre-match.
const DefaultPointToPointTolerance = 1000.0

// pointBufferRadius is the infinitesimal buffer applied to true-point
// geometries so they admit an area query. Kept far below any plausible
// point_tolerance so it never itself qualifies a genuinely-areal zone as a
// point.
const pointBufferRadius = 1e-6

// Substitute replaces every zone in layer whose area is strictly below
// tolerance with the geometry of the single lower zone that contains it.
// If no zone in layer qualifies, layer is returned unchanged (by value; the
// slice is not mutated in place).
func Substitute(layer []geomtypes.Zone, lower []geomtypes.Zone, tolerance float64) ([]geomtypes.Zone, error) {
	buffered := bufferTruePoints(layer)

	var below []int
	for i, z := range buffered {
		if z.Area < tolerance {
			below = append(below, i)
		}
	}
	if len(below) == 0 {
		return layer, nil
	}

	idx := newContainmentIndex(lower)
	out := make([]geomtypes.Zone, 0, len(buffered))
	belowSet := make(map[int]bool, len(below))
	for _, i := range below {
		belowSet[i] = true
	}

	for i, z := range buffered {
		if !belowSet[i] {
			out = append(out, z)
			continue
		}
		container, err := idx.containing(z)
		if err != nil {
			return nil, fmt.Errorf("point substitution for zone %q: %w", z.ID, err)
		}
		replaced, err := geomtypes.NewZone(z.ID, container.Geometry)
		if err != nil {
			return nil, fmt.Errorf("point substitution for zone %q: %w", z.ID, err)
		}
		out = append(out, replaced)
	}
	return out, nil
}

// bufferTruePoints promotes orb.Point/orb.MultiPoint geometries to a tiny
// square polygon so they carry a positive area, leaving polygonal zones
// untouched.
func bufferTruePoints(layer []geomtypes.Zone) []geomtypes.Zone {
	out := make([]geomtypes.Zone, len(layer))
	for i, z := range layer {
		switch g := z.Geometry.(type) {
		case orb.Point:
			out[i] = mustBuffer(z.ID, g)
		case orb.MultiPoint:
			if len(g) > 0 {
				out[i] = mustBuffer(z.ID, g[0])
			} else {
				out[i] = z
			}
		default:
			out[i] = z
		}
	}
	return out
}

func mustBuffer(id string, p orb.Point) geomtypes.Zone {
	r := pointBufferRadius
	ring := orb.Ring{
		{p[0] - r, p[1] - r}, {p[0] + r, p[1] - r},
		{p[0] + r, p[1] + r}, {p[0] - r, p[1] + r},
		{p[0] - r, p[1] - r},
	}
	z, err := geomtypes.NewZone(id, orb.Polygon{ring})
	if err != nil {
		// A synthetic square of positive radius always has positive
		// area; NewZone can only fail on empty geometry.
		panic(fmt.Sprintf("pointsub: buffered point produced invalid zone: %v", err))
	}
	return z
}

// containmentIndex answers "which lower zone contains this point-like
// zone's representative point" queries by testing every lower zone in
// turn; it keeps no spatial index.
type containmentIndex struct {
	lower []geomtypes.Zone
}

func newContainmentIndex(lower []geomtypes.Zone) *containmentIndex {
	return &containmentIndex{lower: lower}
}

// containing implements the exactly-one-containing-lower-zone requirement
// of point substitution, where ambiguity (zero or multiple containers) is
// fatal.
func (idx *containmentIndex) containing(z geomtypes.Zone) (geomtypes.Zone, error) {
	centroid := representativePoint(z.Geometry)

	var matches []geomtypes.Zone
	for _, l := range idx.lower {
		for _, poly := range geomtypes.Polygons(l.Geometry) {
			if planar.PolygonContains(poly, centroid) {
				matches = append(matches, l)
				break
			}
		}
	}
	switch len(matches) {
	case 0:
		return geomtypes.Zone{}, fmt.Errorf("no containing lower zone found")
	case 1:
		return matches[0], nil
	default:
		return geomtypes.Zone{}, fmt.Errorf("ambiguous containment: %d lower zones contain this point", len(matches))
	}
}

func representativePoint(g orb.Geometry) orb.Point {
	b := g.Bound()
	return orb.Point{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2}
}

// Match is a resolved point-to-point correspondence: both sides removed
// from their layers and a direct (1, 1) factor row emitted.
type Match struct {
	AID, BID string
	Distance float64
}

// MatchPointLayers reconciles two auxiliary point layers by nearest
// neighbor under a distance cap, querying the larger layer from the
// smaller (asymmetric) using a grid-bucketed nearest-neighbor search — no
// k-d tree library is available (see DESIGN.md), so the same uniform-grid
// bucketing idea used for overlay's bound index is reused here at point
// granularity.
func MatchPointLayers(a, b []geomtypes.Zone, tolerance float64) []Match {
	if tolerance <= 0 {
		tolerance = DefaultPointToPointTolerance
	}

	small, large, swapped := a, b, false
	if len(a) > len(b) {
		small, large, swapped = b, a, true
	}

	grid := newPointGrid(large)
	usedLarge := make(map[int]bool, len(large))

	var matches []Match
	for _, s := range small {
		sp := representativePoint(s.Geometry)
		bestIdx, bestDist := grid.nearest(sp, usedLarge)
		if bestIdx < 0 || bestDist > tolerance {
			continue
		}
		usedLarge[bestIdx] = true
		l := large[bestIdx]
		if swapped {
			matches = append(matches, Match{AID: l.ID, BID: s.ID, Distance: bestDist})
		} else {
			matches = append(matches, Match{AID: s.ID, BID: l.ID, Distance: bestDist})
		}
	}
	return matches
}

// pointGrid is a uniform-grid nearest-neighbor index over a point set,
// using the same bucketing strategy as internal/overlay's boundIndex in
// place of a k-d tree (see DESIGN.md; no k-d tree implementation is
// available).
type pointGrid struct {
	zones    []geomtypes.Zone
	points   []orb.Point
	cellSize float64
	origin   orb.Point
	grid     map[[2]int][]int
}

func newPointGrid(zones []geomtypes.Zone) *pointGrid {
	g := &pointGrid{zones: zones, grid: make(map[[2]int][]int)}
	if len(zones) == 0 {
		return g
	}
	g.points = make([]orb.Point, len(zones))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, z := range zones {
		p := representativePoint(z.Geometry)
		g.points[i] = p
		minX, minY = math.Min(minX, p[0]), math.Min(minY, p[1])
		maxX, maxY = math.Max(maxX, p[0]), math.Max(maxY, p[1])
	}
	g.origin = orb.Point{minX, minY}

	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 {
		span = 1
	}
	g.cellSize = span / math.Max(1, math.Sqrt(float64(len(zones))))
	if g.cellSize <= 0 {
		g.cellSize = 1
	}

	for i, p := range g.points {
		key := g.cellOf(p)
		g.grid[key] = append(g.grid[key], i)
	}
	return g
}

func (g *pointGrid) cellOf(p orb.Point) [2]int {
	return [2]int{
		int((p[0] - g.origin[0]) / g.cellSize),
		int((p[1] - g.origin[1]) / g.cellSize),
	}
}

// nearest does an expanding-ring search over the grid, returning the index
// of the closest not-yet-used point and its distance, or (-1, 0) if the
// grid is empty.
func (g *pointGrid) nearest(p orb.Point, used map[int]bool) (int, float64) {
	if len(g.points) == 0 {
		return -1, 0
	}
	center := g.cellOf(p)
	bestIdx := -1
	bestDist := math.Inf(1)

	maxRing := int(math.Ceil(math.Max(
		math.Abs(float64(center[0]))+float64(len(g.points)),
		math.Abs(float64(center[1]))+float64(len(g.points)),
	))) + 1

	for ring := 0; ring <= maxRing; ring++ {
		found := false
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				if ring > 0 && abs(dx) != ring && abs(dy) != ring {
					continue
				}
				cell := [2]int{center[0] + dx, center[1] + dy}
				for _, i := range g.grid[cell] {
					if used[i] {
						continue
					}
					found = true
					d := planar.Distance(p, g.points[i])
					if d < bestDist {
						bestDist = d
						bestIdx = i
					}
				}
			}
		}
		// Once a candidate is found, one extra ring guarantees no closer
		// point was missed due to a corner case straddling the boundary.
		if found && bestIdx >= 0 && float64(ring)*g.cellSize > bestDist {
			break
		}
	}
	return bestIdx, bestDist
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
