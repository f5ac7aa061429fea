// Package overlay implements the planar set-intersection step of the
// translation pipeline: decomposing the inputs into disjoint tiles that
// partition the intersection of their supports, carrying provenance ids
// from every input layer.
package overlay

import (
	"context"
	"strings"

	"github.com/paulmach/orb"
	"github.com/zonetrans/engine/internal/geomtypes"
	"github.com/zonetrans/engine/internal/worker"
)

// areaEpsilon discards clip fragments too small to be anything but
// floating-point noise from shared-vertex clipping, well below any
// sliver-tolerance threshold applied later by the SliverFilter.
const areaEpsilon = 1e-12

// Tile is one cell of an overlay: a provenance id per input layer (in the
// order the layers were reduced), and its own area.
type Tile struct {
	Provenance []string
	Area       float64
	polygon    orb.MultiPolygon
}

// Layer is a named set of zones participating in an overlay.
type Layer struct {
	Zones []geomtypes.Zone
}

// partialTile tracks the in-progress polygon fragment during a multi-layer
// reduction, before it is finalized into a Tile.
type partialTile struct {
	provenance []string
	polygon    orb.Polygon
}

// Run reduces layers left to right, intersecting the running tile set with
// each successive layer's zones (A, B, and, for the weighted method, the
// lower-zoning layer, in that order). The first layer seeds the initial
// tile set with one fragment per polygon part of each zone.
//
// Work is parallelized per seed zone of the first layer using a generic
// worker pool: every tile descending from a distinct first-layer zone
// carries that zone's id in its provenance, so results from different seed
// zones can never collide and are safe to concatenate without
// synchronization. onProgress, if non-nil, is reported after each seed
// zone finishes reducing.
func Run(ctx context.Context, layers []Layer, workers int, onProgress worker.ProgressFunc) ([]Tile, error) {
	if len(layers) < 2 {
		return nil, nil
	}

	seed := layers[0]
	rest := layers[1:]

	// Build a cheap spatial index per downstream layer so each reduction
	// step only tests zones whose bound can plausibly intersect.
	indexes := make([]*boundIndex, len(rest))
	for i, l := range rest {
		indexes[i] = newBoundIndex(l.Zones)
	}

	pool := worker.New(worker.Config[geomtypes.Zone, []Tile]{
		Workers: workers,
		Fn: func(ctx context.Context, z geomtypes.Zone) ([]Tile, error) {
			return reduceFromSeed(z, rest, indexes), nil
		},
		OnProgress: onProgress,
	})

	results := pool.Run(ctx, seed.Zones)

	var out []Tile
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
		out = append(out, r.Value...)
	}
	return out, nil
}

// reduceFromSeed intersects a single seed-layer zone against every
// remaining layer in order, fanning out per polygon part at each step.
func reduceFromSeed(seed geomtypes.Zone, rest []Layer, indexes []*boundIndex) []Tile {
	partials := make([]partialTile, 0, 4)
	for _, part := range geomtypes.Polygons(seed.Geometry) {
		partials = append(partials, partialTile{provenance: []string{seed.ID}, polygon: part})
	}

	for li, layer := range rest {
		next := make([]partialTile, 0, len(partials))
		idx := indexes[li]
		for _, p := range partials {
			candidates := idx.query(p.polygon.Bound())
			for _, z := range candidates {
				for _, zpart := range geomtypes.Polygons(z.Geometry) {
					for _, clipped := range intersectPolygons(p.polygon, zpart) {
						next = append(next, partialTile{
							provenance: append(append([]string{}, p.provenance...), z.ID),
							polygon:    clipped,
						})
					}
				}
			}
		}
		partials = next
		_ = layer
	}

	// Clipping against a triangulated zone yields one fragment per triangle;
	// fragments sharing a provenance are merged so each tile carries a
	// unique provenance.
	tiles := make([]Tile, 0, len(partials))
	byProvenance := make(map[string]int, len(partials))
	for _, p := range partials {
		area := geomtypes.Area(p.polygon)
		if area <= areaEpsilon {
			continue
		}
		key := strings.Join(p.provenance, "\x1f")
		if i, ok := byProvenance[key]; ok {
			tiles[i].Area += area
			tiles[i].polygon = append(tiles[i].polygon, p.polygon)
			continue
		}
		byProvenance[key] = len(tiles)
		tiles = append(tiles, Tile{Provenance: p.provenance, Area: area, polygon: orb.MultiPolygon{p.polygon}})
	}
	return tiles
}

// intersectPolygons computes subject ∩ clip as zero or more simple
// polygons, by triangulating clip into convex pieces and running
// Sutherland-Hodgman clipping of subject against each piece in turn (see
// triangulate.go and clip.go for the rationale).
func intersectPolygons(subject, clip orb.Polygon) []orb.Polygon {
	if len(subject) == 0 || len(clip) == 0 {
		return nil
	}
	if !geomtypes.FromOrb(subject.Bound()).Intersects(geomtypes.FromOrb(clip.Bound())) {
		return nil
	}

	tris := triangulate(clip[0])
	subjectPts := openRing(subject[0])

	var out []orb.Polygon
	for _, t := range tris {
		clipped := clipConvex(subjectPts, t.ring())
		if clipped == nil {
			continue
		}
		if ringArea(clipped) <= areaEpsilon {
			continue
		}
		out = append(out, toPolygon(clipped))
	}
	return out
}
