package geomtypes

import (
	"fmt"

	"github.com/paulmach/orb"
)

// WorkingBound is a planar bounding box in the run's projected CRS units,
// adapted from the tile bounding-box conventions used for map-tile
// generation: here it frames a partition of the working plane rather than a
// web-mercator tile.
type WorkingBound struct {
	MinX, MinY, MaxX, MaxY float64
}

// FromOrb converts an orb.Bound to a WorkingBound.
func FromOrb(b orb.Bound) WorkingBound {
	return WorkingBound{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// Orb converts back to an orb.Bound.
func (b WorkingBound) Orb() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// Intersects reports whether two bounds overlap, including touching edges.
func (b WorkingBound) Intersects(o WorkingBound) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Width returns the bound's extent along X.
func (b WorkingBound) Width() float64 { return b.MaxX - b.MinX }

// Height returns the bound's extent along Y.
func (b WorkingBound) Height() float64 { return b.MaxY - b.MinY }

// String renders a human-readable representation.
func (b WorkingBound) String() string {
	return fmt.Sprintf("bound(%.3f,%.3f,%.3f,%.3f)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Union returns the smallest bound containing every input bound.
func Union(bounds []WorkingBound) WorkingBound {
	if len(bounds) == 0 {
		return WorkingBound{}
	}
	u := bounds[0]
	for _, b := range bounds[1:] {
		if b.MinX < u.MinX {
			u.MinX = b.MinX
		}
		if b.MinY < u.MinY {
			u.MinY = b.MinY
		}
		if b.MaxX > u.MaxX {
			u.MaxX = b.MaxX
		}
		if b.MaxY > u.MaxY {
			u.MaxY = b.MaxY
		}
	}
	return u
}

// Partition splits the bound into cols x rows equal grid cells. The
// overlay step does not use it; overlay.Run parallelizes per seed zone.
func (b WorkingBound) Partition(cols, rows int) []WorkingBound {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	out := make([]WorkingBound, 0, cols*rows)
	dx := b.Width() / float64(cols)
	dy := b.Height() / float64(rows)
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			out = append(out, WorkingBound{
				MinX: b.MinX + float64(i)*dx,
				MinY: b.MinY + float64(j)*dy,
				MaxX: b.MinX + float64(i+1)*dx,
				MaxY: b.MinY + float64(j+1)*dy,
			})
		}
	}
	return out
}
