package overlay

import "github.com/paulmach/orb"

// triangulate decomposes a simple polygon ring (no holes) into triangles by
// ear clipping. It is the load-bearing primitive behind Overlay: no pure-Go
// polygon boolean library without a cgo dependency is available (see
// DESIGN.md), so convex decomposition plus Sutherland-Hodgman clipping
// against each triangle stands in for a general polygon intersection
// kernel.
//
// ring may be open or closed (first point repeated); triangulate normalizes
// to an open ring internally. The input is assumed simple (non
// self-intersecting), which holds for the valid zoning polygons GeomSource
// admits.
func triangulate(ring orb.Ring) []triangle {
	pts := openRing(ring)
	if len(pts) < 3 {
		return nil
	}

	// Ear clipping requires consistent winding; flip to CCW if needed.
	if signedArea(pts) < 0 {
		reverse(pts)
	}

	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}

	var tris []triangle
	guard := 0
	maxGuard := len(pts)*len(pts) + 8
	for len(idx) > 3 {
		guard++
		if guard > maxGuard {
			// Degenerate input (self-intersecting or near-collinear chains
			// that never yield a clean ear); emit a fan triangulation from
			// the remaining vertices rather than looping forever.
			tris = append(tris, fanTriangulate(pts, idx)...)
			return tris
		}

		n := len(idx)
		earFound := false
		for i := 0; i < n; i++ {
			ip := idx[(i-1+n)%n]
			ic := idx[i]
			in := idx[(i+1)%n]

			a, b, c := pts[ip], pts[ic], pts[in]
			if !isConvex(a, b, c) {
				continue
			}

			isEar := true
			for j := 0; j < n; j++ {
				k := idx[j]
				if k == ip || k == ic || k == in {
					continue
				}
				if pointInTriangle(pts[k], a, b, c) {
					isEar = false
					break
				}
			}
			if !isEar {
				continue
			}

			tris = append(tris, triangle{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			earFound = true
			break
		}
		if !earFound {
			// Numerically ambiguous polygon; fall back to a fan to make
			// progress rather than spin.
			tris = append(tris, fanTriangulate(pts, idx)...)
			return tris
		}
	}
	if len(idx) == 3 {
		tris = append(tris, triangle{pts[idx[0]], pts[idx[1]], pts[idx[2]]})
	}
	return tris
}

// fanTriangulate triangulates the remaining polygon as a fan from its first
// vertex. Only used as a fallback for degenerate ear-clipping input.
func fanTriangulate(pts []orb.Point, idx []int) []triangle {
	if len(idx) < 3 {
		return nil
	}
	var tris []triangle
	for i := 1; i < len(idx)-1; i++ {
		tris = append(tris, triangle{pts[idx[0]], pts[idx[i]], pts[idx[i+1]]})
	}
	return tris
}

type triangle [3]orb.Point

// ring returns the triangle as a closed orb.Ring, usable as a convex clip
// polygon.
func (t triangle) ring() orb.Ring {
	return orb.Ring{t[0], t[1], t[2], t[0]}
}

func openRing(r orb.Ring) []orb.Point {
	pts := make([]orb.Point, len(r))
	copy(pts, r)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func reverse(pts []orb.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// signedArea computes the shoelace signed area of an open ring: positive
// for CCW winding, negative for CW. This is an internal orientation
// primitive only; authoritative zone/tile areas always go through
// geomtypes.Area (backed by orb/planar.Area).
func signedArea(pts []orb.Point) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return sum / 2
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// isConvex reports whether vertex b is convex in a CCW polygon a->b->c.
func isConvex(a, b, c orb.Point) bool {
	return cross(a, b, c) > 0
}

func pointInTriangle(p, a, b, c orb.Point) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
