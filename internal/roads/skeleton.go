package roads

import (
	"sort"

	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
)

// Skeleton is the medial-axis-like decomposition of the buffered interior:
// the raw material the primary backbone is carved from. It depends only on
// the boundary and buffer, so one Skeleton is shared by every candidate
// decoded in an optimization run.
type Skeleton struct {
	Inset geom.Polygon
	Segs  [][2]model2d.Coord
}

// BuildSkeleton insets the boundary by the perimeter buffer and
// approximates the medial axis of the result: we sample the boundary ring
// and keep the voronoi edges between samples that run through the deep
// interior. Those edges are (close to) equidistant between opposite
// stretches of boundary, which is exactly the medial axis.
func BuildSkeleton(boundary geom.Polygon, cfg Config) (*Skeleton, error) {
	cfg = cfg.withDefaults()

	inset := geom.Inset(boundary, cfg.Buffer)
	if inset.IsEmpty() || inset.Area() <= 0 {
		return nil, ErrInfeasibleGeometry
	}

	samples := sampleRing(boundary, cfg.SampleStep)
	lo, hi := boundary.Bounds()
	pad := cfg.SampleStep
	lo = lo.Sub(model2d.Coord{X: pad, Y: pad})
	hi = hi.Add(model2d.Coord{X: pad, Y: pad})

	// interior depth a skeleton point must reach; keeps the axis clear of
	// boundary-hugging voronoi edges
	minDepth := cfg.Buffer + cfg.PrimaryWidth/2

	sk := &Skeleton{Inset: inset}
	seen := map[[4]int64]bool{}
	for _, cell := range voronoiCells(lo, hi, samples) {
		for _, e := range cell.edges {
			a, b := e[0], e[1]
			if !inset.Contains(a) || !inset.Contains(b) {
				continue
			}
			if boundary.DistToBoundary(a) < minDepth || boundary.DistToBoundary(b) < minDepth {
				continue
			}
			key := segKey(a, b)
			if seen[key] {
				continue
			}
			seen[key] = true
			sk.Segs = append(sk.Segs, [2]model2d.Coord{a, b})
		}
	}
	// deterministic order regardless of map iteration upstream
	sort.Slice(sk.Segs, func(i, j int) bool {
		ki, kj := segKey(sk.Segs[i][0], sk.Segs[i][1]), segKey(sk.Segs[j][0], sk.Segs[j][1])
		for n := 0; n < 4; n++ {
			if ki[n] != kj[n] {
				return ki[n] < kj[n]
			}
		}
		return false
	})

	if len(sk.Segs) == 0 {
		// degenerate but non-empty interior (eg. a thin sliver); fall back
		// to the inset's OBB midline so there is always a backbone
		o := geom.OrientedBounds(inset)
		a := o.Center.Sub(o.Axis.Scale(o.W * 0.8))
		b := o.Center.Add(o.Axis.Scale(o.W * 0.8))
		sk.Segs = append(sk.Segs, [2]model2d.Coord{a, b})
	}

	return sk, nil
}

// sampleRing walks the boundary ring emitting points every step meters.
func sampleRing(p geom.Polygon, step float64) []model2d.Coord {
	out := []model2d.Coord{}
	n := len(p.Verts)
	carry := 0.0
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		length := a.Dist(b)
		if length < 1e-9 {
			continue
		}
		dir := b.Sub(a).Scale(1 / length)
		for d := carry; d < length; d += step {
			out = append(out, a.Add(dir.Scale(d)))
		}
		carry = 0 // restart at each vertex keeps corners represented
	}
	return out
}

// voronoiCell is one cell of the diagram: the site plus its bounding edges.
type voronoiCell struct {
	site  model2d.Coord
	edges [][2]model2d.Coord
}

// voronoiCells computes voronoi cells for the sites inside the bounding box
// by intersecting, per site, the half planes toward every other site.
// Adjacent cells' edges may disagree by rounding; callers quantize.
func voronoiCells(lo, hi model2d.Coord, sites []model2d.Coord) []voronoiCell {
	cells := make([]voronoiCell, len(sites))
	for i, c := range sites {
		constraints := model2d.NewConvexPolytopeRect(lo, hi)
		for _, c1 := range sites {
			if c == c1 {
				continue
			}
			mp := c.Mid(c1)
			normal := c1.Sub(c).Normalize()
			constraints = append(constraints, &model2d.LinearConstraint{
				Normal: normal,
				Max:    normal.Dot(mp),
			})
		}
		cell := voronoiCell{site: c}
		for _, seg := range constraints.Mesh().SegmentSlice() {
			cell.edges = append(cell.edges, [2]model2d.Coord{seg[0], seg[1]})
		}
		cells[i] = cell
	}
	return cells
}

// segKey is an order-independent quantized identity for an edge.
func segKey(a, b model2d.Coord) [4]int64 {
	const q = 100 // centimeter grid
	ax, ay := int64(a.X*q), int64(a.Y*q)
	bx, by := int64(b.X*q), int64(b.Y*q)
	if bx < ax || (bx == ax && by < ay) {
		ax, ay, bx, by = bx, by, ax, ay
	}
	return [4]int64{ax, ay, bx, by}
}

// pruneShort drops segments below the given length, keeping order.
func pruneShort(segs [][2]model2d.Coord, min float64) [][2]model2d.Coord {
	out := segs[:0]
	for _, s := range segs {
		if s[0].Dist(s[1]) >= min {
			out = append(out, s)
		}
	}
	return out
}

