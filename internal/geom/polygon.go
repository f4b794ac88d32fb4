package geom

import (
	"math"

	"github.com/unixpickle/model3d/model2d"
)

// Polygon is a closed simple ring of planar points (meters).
// The last vertex is implicitly joined to the first.
type Polygon struct {
	Verts []model2d.Coord
}

// NewPolygon builds a polygon from vertices in order.
func NewPolygon(pts ...model2d.Coord) Polygon {
	return Polygon{Verts: pts}
}

// Pt is shorthand for a coordinate.
func Pt(x, y float64) model2d.Coord {
	return model2d.Coord{X: x, Y: y}
}

// IsEmpty returns true if the polygon has fewer than 3 vertices.
func (p Polygon) IsEmpty() bool {
	return len(p.Verts) < 3
}

// Edge returns the i-th edge (start, end), wrapping around the ring.
func (p Polygon) Edge(i int) (model2d.Coord, model2d.Coord) {
	n := len(p.Verts)
	return p.Verts[i%n], p.Verts[(i+1)%n]
}

// SignedArea via the shoelace formula. Positive for counter clockwise rings.
func (p Polygon) SignedArea() float64 {
	n := len(p.Verts)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += p.Verts[i].X * p.Verts[j].Y
		area -= p.Verts[j].X * p.Verts[i].Y
	}
	return area / 2
}

// Area is the unsigned polygon area.
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// EnsureCCW returns the polygon wound counter clockwise.
func (p Polygon) EnsureCCW() Polygon {
	if p.SignedArea() < 0 {
		return p.Reverse()
	}
	return p
}

// Reverse returns the polygon with vertex order flipped.
func (p Polygon) Reverse() Polygon {
	n := len(p.Verts)
	rev := make([]model2d.Coord, n)
	for i, v := range p.Verts {
		rev[n-1-i] = v
	}
	return Polygon{Verts: rev}
}

// Centroid of the polygon (area weighted, falls back to vertex mean
// for degenerate rings).
func (p Polygon) Centroid() model2d.Coord {
	n := len(p.Verts)
	if n == 0 {
		return model2d.Coord{}
	}
	a := p.SignedArea()
	if n < 3 || math.Abs(a) < 1e-12 {
		sum := model2d.Coord{}
		for _, v := range p.Verts {
			sum = sum.Add(v)
		}
		return sum.Scale(1.0 / float64(n))
	}
	cx, cy := 0.0, 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := p.Verts[i].X*p.Verts[j].Y - p.Verts[j].X*p.Verts[i].Y
		cx += (p.Verts[i].X + p.Verts[j].X) * cross
		cy += (p.Verts[i].Y + p.Verts[j].Y) * cross
	}
	f := 1.0 / (6.0 * a)
	return Pt(cx*f, cy*f)
}

// Bounds returns the axis aligned bounding box (min, max).
func (p Polygon) Bounds() (model2d.Coord, model2d.Coord) {
	if len(p.Verts) == 0 {
		return model2d.Coord{}, model2d.Coord{}
	}
	lo, hi := p.Verts[0], p.Verts[0]
	for _, v := range p.Verts[1:] {
		if v.X < lo.X {
			lo.X = v.X
		}
		if v.Y < lo.Y {
			lo.Y = v.Y
		}
		if v.X > hi.X {
			hi.X = v.X
		}
		if v.Y > hi.Y {
			hi.Y = v.Y
		}
	}
	return lo, hi
}

// Contains reports whether pt is inside the ring (ray cast).
func (p Polygon) Contains(pt model2d.Coord) bool {
	n := len(p.Verts)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := p.Verts[i], p.Verts[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Perimeter is the total ring length.
func (p Polygon) Perimeter() float64 {
	n := len(p.Verts)
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += p.Verts[i].Dist(p.Verts[(i+1)%n])
	}
	return total
}

// DistToBoundary returns the distance from pt to the nearest ring edge.
func (p Polygon) DistToBoundary(pt model2d.Coord) float64 {
	n := len(p.Verts)
	if n < 2 {
		return 0
	}
	best := math.Inf(1)
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		d := PointSegDist(pt, a, b)
		if d < best {
			best = d
		}
	}
	return best
}

// IsSimple reports whether no two non-adjacent edges of the ring intersect.
// Quadratic; rings here are small.
func (p Polygon) IsSimple() bool {
	n := len(p.Verts)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := p.Edge(i)
		for j := i + 1; j < n; j++ {
			// skip adjacent edges (shared vertex)
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			if _, ok := SegIntersection(a1, a2, p.Verts[j%n], p.Verts[(j+1)%n]); ok {
				return false
			}
		}
	}
	return true
}

// PointSegDist is the distance from p to segment (a, b).
func PointSegDist(p, a, b model2d.Coord) float64 {
	d := b.Sub(a)
	lenSq := d.Dot(d)
	if lenSq < 1e-12 {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(d) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Dist(a.Add(d.Scale(t)))
}

// SegIntersection returns the intersection point of the closed segments
// (a1, a2) and (b1, b2), if any.
func SegIntersection(a1, a2, b1, b2 model2d.Coord) (model2d.Coord, bool) {
	r := a2.Sub(a1)
	s := b2.Sub(b1)
	denom := cross(r, s)
	if math.Abs(denom) < 1e-12 {
		return model2d.Coord{}, false
	}
	qp := b1.Sub(a1)
	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return model2d.Coord{}, false
	}
	return a1.Add(r.Scale(t)), true
}

// Rot90 rotates v a quarter turn counter clockwise.
func Rot90(v model2d.Coord) model2d.Coord {
	return Pt(-v.Y, v.X)
}

func cross(a, b model2d.Coord) float64 {
	return a.X*b.Y - a.Y*b.X
}
