package overlay

import "github.com/paulmach/orb"

// clipConvex clips an arbitrary simple subject polygon against a convex clip
// polygon using Sutherland-Hodgman. The subject may be concave; only the
// clip polygon must be convex, which is guaranteed here because callers
// always pass a triangle produced by triangulate.
//
// Returns an open ring, or nil if the intersection is empty or degenerates
// to a line/point.
func clipConvex(subject []orb.Point, clip orb.Ring) []orb.Point {
	clipPts := openRing(clip)
	if signedArea(clipPts) < 0 {
		reverse(clipPts)
	}

	output := subject
	n := len(clipPts)
	for i := 0; i < n && len(output) > 0; i++ {
		a := clipPts[i]
		b := clipPts[(i+1)%n]
		output = clipEdge(output, a, b)
	}
	if len(output) < 3 {
		return nil
	}
	return output
}

// clipEdge clips a polygon against the half-plane to the left of directed
// edge a->b (the inside, consistent with a CCW clip polygon).
func clipEdge(poly []orb.Point, a, b orb.Point) []orb.Point {
	var out []orb.Point
	n := len(poly)
	for i := 0; i < n; i++ {
		cur := poly[i]
		prev := poly[(i-1+n)%n]

		curIn := cross(a, b, cur) >= 0
		prevIn := cross(a, b, prev) >= 0

		if curIn {
			if !prevIn {
				out = append(out, segmentIntersect(prev, cur, a, b))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, segmentIntersect(prev, cur, a, b))
		}
	}
	return out
}

// segmentIntersect returns the intersection point of line segment p1-p2
// with infinite line a-b. Callers only invoke this when the segment is
// known to cross the line (one endpoint inside, one outside), so the
// denominator is bounded away from zero except in degenerate collinear
// input.
func segmentIntersect(p1, p2, a, b orb.Point) orb.Point {
	x1, y1 := p1[0], p1[1]
	x2, y2 := p2[0], p2[1]
	x3, y3 := a[0], a[1]
	x4, y4 := b[0], b[1]

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if denom == 0 {
		return p1
	}
	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / denom
	return orb.Point{x1 + t*(x2-x1), y1 + t*(y2-y1)}
}

// ringArea computes the shoelace area of an arbitrary (possibly concave,
// non-self-intersecting) closed polygon built purely from clip output,
// where geomtypes.Area's orb.Polygon-based path cannot be used because the
// ring has no orb.Polygon wrapper. Used only to discard sub-epsilon slivers
// inside the overlay kernel itself, not as the authoritative tile area
// (which is wrapped into an orb.Polygon and measured by geomtypes.Area).
func ringArea(pts []orb.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	a := signedArea(pts)
	if a < 0 {
		a = -a
	}
	return a
}

func toPolygon(pts []orb.Point) orb.Polygon {
	ring := make(orb.Ring, 0, len(pts)+1)
	ring = append(ring, pts...)
	ring = append(ring, pts[0])
	return orb.Polygon{ring}
}
