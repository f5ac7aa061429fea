package overlay

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/zonetrans/engine/internal/geomtypes"
)

// boundIndex is a coarse grid spatial index over a layer's zones, used to
// prune the candidate set before exact clipping. No R-tree/quadtree
// dependency is wired from the pack for this: orb ships a point quadtree
// (orb/quadtree), not a polygon-bound index, so a hand-rolled uniform grid
// bucket is used instead, keeping memory proportional to the tile count
// produced rather than to the full cross-product of both layers.
type boundIndex struct {
	cellSize     float64
	grid         map[[2]int][]int
	zones        []geomtypes.Zone
	bounds       []geomtypes.WorkingBound
	bucketOrigin geomtypes.WorkingBound
}

func newBoundIndex(zones []geomtypes.Zone) *boundIndex {
	idx := &boundIndex{zones: zones}
	if len(zones) == 0 {
		return idx
	}

	bounds := make([]geomtypes.WorkingBound, len(zones))
	for i, z := range zones {
		bounds[i] = geomtypes.FromOrb(z.Geometry.Bound())
	}
	idx.bounds = bounds
	idx.bucketOrigin = geomtypes.Union(bounds)

	// Aim for roughly one zone per cell on average so the index degrades
	// gracefully from a handful of zones to thousands.
	n := float64(len(zones))
	span := idx.bucketOrigin.Width() + idx.bucketOrigin.Height()
	if span <= 0 {
		span = 1
	}
	idx.cellSize = span / (2 * math.Max(1, math.Sqrt(n)))
	if idx.cellSize <= 0 {
		idx.cellSize = 1
	}

	idx.grid = make(map[[2]int][]int)
	for i, b := range bounds {
		for cx := idx.cellX(b.MinX); cx <= idx.cellX(b.MaxX); cx++ {
			for cy := idx.cellY(b.MinY); cy <= idx.cellY(b.MaxY); cy++ {
				key := [2]int{cx, cy}
				idx.grid[key] = append(idx.grid[key], i)
			}
		}
	}
	return idx
}

func (idx *boundIndex) cellX(x float64) int {
	return int((x - idx.bucketOrigin.MinX) / idx.cellSize)
}

func (idx *boundIndex) cellY(y float64) int {
	return int((y - idx.bucketOrigin.MinY) / idx.cellSize)
}

// query returns the zones whose bound can plausibly intersect b, by
// collecting the dedup'd contents of every grid cell b touches.
func (idx *boundIndex) query(ob orb.Bound) []geomtypes.Zone {
	if idx.grid == nil {
		return nil
	}
	b := geomtypes.FromOrb(ob)
	seen := make(map[int]bool)
	var out []geomtypes.Zone
	for cx := idx.cellX(b.MinX); cx <= idx.cellX(b.MaxX); cx++ {
		for cy := idx.cellY(b.MinY); cy <= idx.cellY(b.MaxY); cy++ {
			for _, i := range idx.grid[[2]int{cx, cy}] {
				if seen[i] {
					continue
				}
				seen[i] = true
				if b.Intersects(idx.bounds[i]) {
					out = append(out, idx.zones[i])
				}
			}
		}
	}
	return out
}
