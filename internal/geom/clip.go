package geom

import (
	"math"

	"github.com/unixpickle/model3d/model2d"
)

// ClipHalfPlane clips the polygon to the half plane of points q where
// (q - origin) . normal <= 0, in the manner of Sutherland-Hodgman.
// The result may be empty.
func ClipHalfPlane(p Polygon, origin, normal model2d.Coord) Polygon {
	if p.IsEmpty() {
		return Polygon{}
	}
	out := make([]model2d.Coord, 0, len(p.Verts)+2)
	n := len(p.Verts)
	for i := 0; i < n; i++ {
		cur := p.Verts[i]
		nxt := p.Verts[(i+1)%n]
		cd := cur.Sub(origin).Dot(normal)
		nd := nxt.Sub(origin).Dot(normal)
		curInside := cd <= 1e-9
		nxtInside := nd <= 1e-9

		if curInside {
			out = append(out, cur)
		}
		if curInside != nxtInside {
			// edge crosses the line; interpolate the crossing point
			t := cd / (cd - nd)
			out = append(out, cur.Add(nxt.Sub(cur).Scale(t)))
		}
	}
	if len(out) < 3 {
		return Polygon{}
	}
	return Polygon{Verts: dedupe(out)}
}

// SplitByLine cuts the polygon along the infinite line through origin with
// direction dir, returning the piece on the left of dir and the piece on
// the right. Either piece may be empty.
func SplitByLine(p Polygon, origin, dir model2d.Coord) (left, right Polygon) {
	normal := Rot90(dir.Normalize())
	// left: (q-origin).normal >= 0  -> clip against -normal
	left = ClipHalfPlane(p, origin, normal.Scale(-1))
	right = ClipHalfPlane(p, origin, normal)
	return left, right
}

// Inset shrinks the polygon inward by d meters. Simple rings, convex or
// concave, get the exact miter offset; rings where the miter folds over
// itself fall back to tracing the interior distance field. The result is
// empty when nothing survives the offset.
func Inset(p Polygon, d float64) Polygon {
	if p.IsEmpty() {
		return Polygon{}
	}
	poly := p.EnsureCCW()
	if d <= 0 {
		return poly
	}
	if m := miterInset(poly, d); !m.IsEmpty() {
		return m
	}
	return insetField(poly, d)
}

// miterInset offsets each edge inward by d and rebuilds the ring from the
// intersections of adjacent offset lines. Returns empty when the offset
// ring is degenerate or self-crossing, or when any part of it ends up
// closer than d to the original boundary (a folded miter).
func miterInset(p Polygon, d float64) Polygon {
	n := len(p.Verts)
	verts := make([]model2d.Coord, 0, n)
	for i := 0; i < n; i++ {
		prev := p.Verts[(i+n-1)%n]
		cur := p.Verts[i]
		next := p.Verts[(i+1)%n]
		d1 := cur.Sub(prev)
		d2 := next.Sub(cur)
		if d1.Norm() < 1e-9 || d2.Norm() < 1e-9 {
			continue
		}
		d1 = d1.Normalize()
		d2 = d2.Normalize()
		// inward normal of a CCW ring is the edge dir rotated anticlockwise
		denom := cross(d1, d2)
		if math.Abs(denom) < 1e-9 {
			verts = append(verts, cur.Add(Rot90(d1).Scale(d)))
			continue
		}
		a := prev.Add(Rot90(d1).Scale(d))
		b := cur.Add(Rot90(d2).Scale(d))
		t := cross(b.Sub(a), d2) / denom
		verts = append(verts, a.Add(d1.Scale(t)))
	}
	out := Polygon{Verts: dedupe(verts)}
	if len(out.Verts) < 3 || out.SignedArea() <= 0 || !out.IsSimple() {
		return Polygon{}
	}
	for i := range out.Verts {
		a, b := out.Edge(i)
		mid := a.Add(b).Scale(0.5)
		if !p.Contains(a) || p.DistToBoundary(a) < d-1e-6 ||
			!p.Contains(mid) || p.DistToBoundary(mid) < d-1e-6 {
			return Polygon{}
		}
	}
	return out
}

// insetField traces the region of points at least d inside p with marching
// squares and keeps the largest resulting ring.
func insetField(p Polygon, d float64) Polygon {
	lo, hi := p.Bounds()
	pad := model2d.XY(1, 1)
	solid := model2d.CheckedFuncSolid(lo.Sub(pad), hi.Add(pad), func(c model2d.Coord) bool {
		return p.Contains(c) && p.DistToBoundary(c) >= d
	})
	delta := math.Max(0.5, math.Min(d/4, 4))
	mesh := model2d.MarchingSquaresSearch(solid, delta, 8)
	if mesh == nil || len(mesh.SegmentSlice()) < 3 {
		return Polygon{}
	}
	var best Polygon
	for _, h := range model2d.MeshToHierarchy(mesh) {
		ring := chainLoop(h.Mesh)
		if ring.IsEmpty() {
			continue
		}
		ring = ring.EnsureCCW()
		if best.IsEmpty() || ring.Area() > best.Area() {
			best = ring
		}
	}
	return simplifyRing(best)
}

// chainLoop orders a single mesh loop into a ring. SegmentSlice order is
// map order, so the walk starts from the lexicographically smallest vertex
// to keep the result stable run to run.
func chainLoop(m *model2d.Mesh) Polygon {
	segs := m.SegmentSlice()
	if len(segs) < 3 {
		return Polygon{}
	}
	next := make(map[model2d.Coord]model2d.Coord, len(segs))
	start := segs[0][0]
	for _, s := range segs {
		next[s[0]] = s[1]
		if s[0].X < start.X || (s[0].X == start.X && s[0].Y < start.Y) {
			start = s[0]
		}
	}
	verts := make([]model2d.Coord, 0, len(segs))
	cur := start
	for range segs {
		verts = append(verts, cur)
		nxt, ok := next[cur]
		if !ok {
			return Polygon{}
		}
		cur = nxt
		if cur == start {
			break
		}
	}
	if len(verts) < 3 {
		return Polygon{}
	}
	return Polygon{Verts: verts}
}

// simplifyRing drops vertices that sit on (near) straight runs, which
// marching squares produces in abundance on axis-aligned stretches.
func simplifyRing(p Polygon) Polygon {
	n := len(p.Verts)
	if n < 4 {
		return p
	}
	out := make([]model2d.Coord, 0, n)
	for i := 0; i < n; i++ {
		prev := p.Verts[(i+n-1)%n]
		cur := p.Verts[i]
		nxt := p.Verts[(i+1)%n]
		a := cur.Sub(prev)
		b := nxt.Sub(cur)
		if math.Abs(cross(a, b)) < 1e-6*(a.Norm()*b.Norm()+1e-9) {
			continue
		}
		out = append(out, cur)
	}
	if len(out) < 3 {
		return p
	}
	return Polygon{Verts: out}
}

// OBB is an oriented bounding box: centre, unit major axis and the half
// extents along (W) and across (D) that axis.
type OBB struct {
	Center model2d.Coord
	Axis   model2d.Coord
	W, D   float64
}

// OrientedBounds returns the minimum-area oriented bounding box of the
// polygon by testing every edge direction (rotating calipers lite).
func OrientedBounds(p Polygon) OBB {
	if p.IsEmpty() {
		return OBB{}
	}
	best := OBB{}
	bestArea := math.Inf(1)
	n := len(p.Verts)
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		dir := b.Sub(a)
		if dir.Norm() < 1e-9 {
			continue
		}
		dir = dir.Normalize()
		perp := Rot90(dir)

		loU, hiU := math.Inf(1), math.Inf(-1)
		loV, hiV := math.Inf(1), math.Inf(-1)
		for _, v := range p.Verts {
			u := v.Dot(dir)
			w := v.Dot(perp)
			loU = math.Min(loU, u)
			hiU = math.Max(hiU, u)
			loV = math.Min(loV, w)
			hiV = math.Max(hiV, w)
		}
		area := (hiU - loU) * (hiV - loV)
		if area < bestArea {
			bestArea = area
			cu := (hiU + loU) / 2
			cv := (hiV + loV) / 2
			axis := dir
			w := (hiU - loU) / 2
			dd := (hiV - loV) / 2
			if dd > w { // major axis first
				axis = perp
				w, dd = dd, w
			}
			best = OBB{
				Center: dir.Scale(cu).Add(perp.Scale(cv)),
				Axis:   axis,
				W:      w,
				D:      dd,
			}
		}
	}
	return best
}

// Aspect returns the width:depth ratio (>= 1) of the polygon's OBB.
func Aspect(p Polygon) float64 {
	o := OrientedBounds(p)
	if o.D < 1e-9 {
		return math.Inf(1)
	}
	return o.W / o.D
}

// dedupe strips consecutive (near) duplicate vertices from a ring.
func dedupe(in []model2d.Coord) []model2d.Coord {
	out := in[:0]
	for _, v := range in {
		if len(out) > 0 && out[len(out)-1].Dist(v) < 1e-9 {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0].Dist(out[len(out)-1]) < 1e-9 {
		out = out[:len(out)-1]
	}
	return out
}
