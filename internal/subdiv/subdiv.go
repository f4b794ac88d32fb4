// Package subdiv partitions the buildable area left between road corridors
// into salable lots via recursive guillotine cuts aligned to each piece's
// oriented bounding box.
package subdiv

import (
	"math"
	"math/rand"

	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

// Config holds subdivision targets.
type Config struct {
	MinLotArea    float64 // pieces below this become green space
	MaxLotArea    float64 // pieces above this keep getting cut
	TargetLotArea float64
	MaxAspect     float64 // width:depth bound, eg. 4 for 1:4
	FrontageTol   float64 // lot edge within this of a road counts as frontage
	LotDepth      float64 // how far lots extend back from their road face
	Use           string  // industry-type tag stamped on every lot
}

func (c Config) withDefaults() Config {
	if c.TargetLotArea <= 0 {
		c.TargetLotArea = 2000
	}
	if c.MinLotArea <= 0 {
		c.MinLotArea = c.TargetLotArea / 2
	}
	if c.MaxLotArea <= 0 {
		c.MaxLotArea = c.TargetLotArea * 2
	}
	if c.MaxAspect <= 0 {
		c.MaxAspect = 4
	}
	if c.FrontageTol <= 0 {
		c.FrontageTol = 16
	}
	if c.LotDepth <= 0 {
		// a 2.5:1 deep lot at target size
		c.LotDepth = math.Sqrt(c.TargetLotArea * 2.5)
	}
	return c
}

// Blocks removes road corridors from the buildable polygon, returning the
// development blocks between roads. Cuts are guillotine (full line) per
// piece, applied only to pieces the segment actually passes through.
func Blocks(buildable geom.Polygon, net *plan.Network) []geom.Polygon {
	pieces := []geom.Polygon{buildable}
	for _, s := range net.Segments {
		a, b := net.Nodes[s.From], net.Nodes[s.To]
		dir := b.Sub(a)
		if dir.Norm() < 1e-9 {
			continue
		}
		dir = dir.Normalize()
		normal := geom.Rot90(dir)
		half := s.Width / 2

		next := pieces[:0]
		for _, p := range pieces {
			if !segTouches(p, a, b, half) {
				next = append(next, p)
				continue
			}
			// strip out the corridor: keep what lies either side of it
			left := geom.ClipHalfPlane(p, a.Add(normal.Scale(half)), normal.Scale(-1))
			right := geom.ClipHalfPlane(p, a.Sub(normal.Scale(half)), normal)
			if !left.IsEmpty() && left.Area() > 1 {
				next = append(next, left)
			}
			if !right.IsEmpty() && right.Area() > 1 {
				next = append(next, right)
			}
		}
		pieces = next
	}
	return pieces
}

// segTouches reports whether the segment (a,b), fattened by half, reaches
// the piece at all.
func segTouches(p geom.Polygon, a, b model2d.Coord, half float64) bool {
	mid := a.Mid(b)
	if p.Contains(mid) || p.Contains(a) || p.Contains(b) {
		return true
	}
	n := len(p.Verts)
	for i := 0; i < n; i++ {
		ea, eb := p.Edge(i)
		if _, ok := geom.SegIntersection(a, b, ea, eb); ok {
			return true
		}
	}
	// fully inside corridors with no crossing is possible for slivers
	return p.DistToBoundary(mid) < half && p.Contains(p.Centroid())
}

// Subdivide cuts blocks into lots. Deterministic for a given seed: the rng
// only jitters cut positions so two runs with the same seed and input make
// identical geometry.
func Subdivide(blocks []geom.Polygon, net *plan.Network, cfg Config, rng *rand.Rand) ([]*plan.Lot, []geom.Polygon) {
	cfg = cfg.withDefaults()
	lots := []*plan.Lot{}
	greens := []geom.Polygon{}

	for _, b := range blocks {
		cutBlock(b, net, cfg, rng, false, &lots, &greens)
	}
	return lots, greens
}

// cutBlock recursively guillotines a piece. relaxed widens the acceptance
// window by 50% for the one retry pass the engine allows on pieces that
// cannot satisfy the aspect bound at target size.
func cutBlock(p geom.Polygon, net *plan.Network, cfg Config, rng *rand.Rand, relaxed bool, lots *[]*plan.Lot, greens *[]geom.Polygon) {
	area := p.Area()
	if area < cfg.MinLotArea {
		if area > 1 {
			*greens = append(*greens, p)
		}
		return
	}

	maxArea := cfg.MaxLotArea
	maxAspect := cfg.MaxAspect
	if relaxed {
		maxArea *= 1.5
		maxAspect *= 1.5
	}

	aspect := geom.Aspect(p)
	if area <= maxArea && aspect <= maxAspect {
		if lot := acceptLot(p, net, cfg, area, aspect); lot != nil {
			*lots = append(*lots, lot)
		} else {
			*greens = append(*greens, p)
		}
		return
	}

	if !relaxed && aspect > maxAspect && area <= cfg.TargetLotArea {
		// small but too elongated to pass: re-run with the relaxed window
		// rather than slicing it below the minimum lot size
		cutBlock(p, net, cfg, rng, true, lots, greens)
		return
	}

	dir, origin, inward, hasFace := roadFace(p, net, cfg.FrontageTol)
	if !hasFace {
		// landlocked piece: cut across the major axis so it keeps
		// shrinking; whatever never reaches a road ends up green
		o := geom.OrientedBounds(p)
		if o.W < 1e-6 {
			*greens = append(*greens, p)
			return
		}
		jitter := (rng.Float64() - 0.5) * 0.2 * o.W
		mid := o.Center.Add(o.Axis.Scale(jitter))
		splitRecurse(p, mid, geom.Rot90(o.Axis), net, cfg, rng, relaxed, lots, greens)
		return
	}

	// how far the piece extends behind its road face
	depth := 0.0
	for _, v := range p.Verts {
		if d := v.Sub(origin).Dot(inward); d > depth {
			depth = d
		}
	}

	if depth > cfg.LotDepth*1.45 {
		// peel a road-fronting strip one lot deep; the remainder keeps
		// its own frontage on the next corridor over
		at := cfg.LotDepth * (1 + (rng.Float64()-0.5)*0.1)
		cut := origin.Add(inward.Scale(at))
		strip := geom.ClipHalfPlane(p, cut, inward)
		rest := geom.ClipHalfPlane(p, cut, inward.Scale(-1))
		if !strip.IsEmpty() && !rest.IsEmpty() {
			cutBlock(strip, net, cfg, rng, relaxed, lots, greens)
			cutBlock(rest, net, cfg, rng, relaxed, lots, greens)
			return
		}
	}

	// crosswise cut along the face so both halves keep their frontage
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range p.Verts {
		u := v.Dot(dir)
		lo = math.Min(lo, u)
		hi = math.Max(hi, u)
	}
	at := (lo+hi)/2 + (rng.Float64()-0.5)*0.2*(hi-lo)
	cut := origin.Add(dir.Scale(at - origin.Dot(dir)))
	splitRecurse(p, cut, inward, net, cfg, rng, relaxed, lots, greens)
}

// splitRecurse cuts p along the line through origin with direction lineDir
// and recurses on both halves, with the usual relaxed retry when the cut
// fails to bite.
func splitRecurse(p geom.Polygon, origin, lineDir model2d.Coord, net *plan.Network, cfg Config, rng *rand.Rand, relaxed bool, lots *[]*plan.Lot, greens *[]geom.Polygon) {
	left, right := geom.SplitByLine(p, origin, lineDir)
	if left.IsEmpty() || right.IsEmpty() {
		if !relaxed {
			cutBlock(p, net, cfg, rng, true, lots, greens)
		} else if p.Area() > 1 {
			*greens = append(*greens, p)
		}
		return
	}
	cutBlock(left, net, cfg, rng, relaxed, lots, greens)
	cutBlock(right, net, cfg, rng, relaxed, lots, greens)
}

// roadFace finds the piece edge closest to a road corridor. Ties within a
// metre go to the longer edge. Returns the face's unit direction, its
// midpoint and the inward normal; ok is false when no edge is within tol
// of a corridor.
func roadFace(p geom.Polygon, net *plan.Network, tol float64) (dir, origin, inward model2d.Coord, ok bool) {
	best, bestLen := math.Inf(1), 0.0
	n := len(p.Verts)
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		e := b.Sub(a)
		length := e.Norm()
		if length < 1e-9 {
			continue
		}
		mid := a.Mid(b)
		d, idx := net.NearestDist(mid)
		if idx < 0 {
			continue
		}
		d -= net.Segments[idx].Width / 2
		if d >= best+1 || (d > best-1 && length <= bestLen) {
			continue
		}
		best, bestLen = d, length
		dir = e.Scale(1 / length)
		origin = mid
		inward = geom.Rot90(dir)
		if !p.Contains(origin.Add(inward.Scale(0.1))) {
			inward = inward.Scale(-1)
		}
	}
	if math.IsInf(best, 1) || best > tol {
		return model2d.Coord{}, model2d.Coord{}, model2d.Coord{}, false
	}
	return dir, origin, inward, true
}

// acceptLot checks road frontage and builds the lot record; nil means the
// piece is landlocked and stays open space.
func acceptLot(p geom.Polygon, net *plan.Network, cfg Config, area, aspect float64) *plan.Lot {
	frontage := -1
	best := math.Inf(1)
	n := len(p.Verts)
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		d, idx := net.NearestDist(a.Mid(b))
		if idx < 0 {
			continue
		}
		// frontage distance is measured to the corridor edge, not centreline
		d -= net.Segments[idx].Width / 2
		if d < best {
			best = d
			frontage = idx
		}
	}
	if frontage < 0 || best > cfg.FrontageTol {
		return nil
	}
	return &plan.Lot{
		Poly:     p,
		Area:     area,
		Aspect:   aspect,
		Use:      cfg.Use,
		Frontage: frontage,
	}
}
