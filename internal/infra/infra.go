// Package infra places discrete facility elements (detention pond,
// treatment plants, substation) onto residual pieces of the buildable
// area before lots are cut.
package infra

import (
	"fmt"
	"math"
	"sort"

	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

// Terrain answers elevation queries for the site. Mirrors the shape of the
// caller-facing interface so this package stays decoupled from it.
type Terrain interface {
	ElevationAt(x, y float64) float64
}

// Requirement describes one facility the park must host.
type Requirement struct {
	Kind          plan.InfraKind
	Area          float64 // required footprint, m2
	Exclusion     float64 // clearance radius other features must respect
	NeedsRoad     bool    // must sit adjacent to the road network
	NeedsBoundary bool    // must sit against the site perimeter
	LowestGround  bool    // prefers the lowest-elevation candidate (ponds)
	Priority      int     // placement order, lower first
}

// DefaultRequirements is the standard industrial-park facility set.
func DefaultRequirements(siteArea float64) []Requirement {
	return []Requirement{
		{Kind: plan.InfraPond, Area: siteArea * 0.02, Exclusion: 4, NeedsBoundary: true, LowestGround: true, Priority: 0},
		{Kind: plan.InfraWastePlant, Area: 2500, Exclusion: 8, NeedsBoundary: true, NeedsRoad: true, Priority: 1},
		{Kind: plan.InfraWaterPlant, Area: 1500, Exclusion: 5, NeedsRoad: true, Priority: 2},
		{Kind: plan.InfraSubstation, Area: 900, Exclusion: 6, NeedsRoad: true, Priority: 3},
	}
}

// Place greedily assigns each required facility, in priority order, to the
// largest compatible residual piece, carving the footprint plus its
// clearance ring out of it. Returns the placed elements, the shrunken pool
// for lot subdivision and the clearance collars, which stay green so no
// lot can be cut inside an exclusion zone. Elements that cannot be placed
// are reported unplaced with a reason; placement of the rest continues
// regardless.
func Place(pool []geom.Polygon, net *plan.Network, boundary geom.Polygon, reqs []Requirement, terrain Terrain) ([]*plan.Infra, []geom.Polygon, []geom.Polygon) {
	ordered := append([]Requirement{}, reqs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	out := []*plan.Infra{}
	greens := []geom.Polygon{}
	for _, req := range ordered {
		clear := req.Exclusion
		if clear > 0 {
			clear++ // slack absorbs clip rounding in the distance checks
		}
		side := math.Sqrt(req.Area)
		need := (side + 2*clear) * (side + 2*clear)

		idx := pickPiece(pool, net, boundary, req, need, terrain)
		if idx < 0 {
			out = append(out, &plan.Infra{
				Kind:      req.Kind,
				Exclusion: req.Exclusion,
				Placed:    false,
				Reason:    fmt.Sprintf("no residual piece of %.0f m2 satisfies adjacency", need),
			})
			continue
		}
		foot, collar, rest := carveWithClearance(pool[idx], req.Area, need, clear)
		out = append(out, &plan.Infra{
			Kind:      req.Kind,
			Poly:      foot,
			Exclusion: req.Exclusion,
			Placed:    true,
		})
		greens = append(greens, collar...)
		// swap the consumed piece for whatever is left of it
		pool = append(pool[:idx], pool[idx+1:]...)
		for _, r := range rest {
			if !r.IsEmpty() && r.Area() > 1 {
				pool = append(pool, r)
			}
		}
	}
	return out, pool, greens
}

// pickPiece returns the index of the best pool piece for the requirement,
// or -1. Largest compatible area wins, except lowest ground wins for
// elements that want it.
func pickPiece(pool []geom.Polygon, net *plan.Network, boundary geom.Polygon, req Requirement, need float64, terrain Terrain) int {
	const adjTol = 20.0 // how close "adjacent" needs to be, meters

	best := -1
	bestArea := 0.0
	bestElev := math.Inf(1)
	for i, p := range pool {
		a := p.Area()
		if a < need {
			continue
		}
		c := p.Centroid()
		if req.NeedsRoad {
			d, idx := net.NearestDist(c)
			if idx < 0 {
				continue
			}
			// measured from the centroid, so allow for the piece extent
			lo, hi := p.Bounds()
			if d > hi.Sub(lo).Norm()/2+adjTol {
				continue
			}
		}
		if req.NeedsBoundary {
			if nearestRing(boundary, p) > adjTol {
				continue
			}
		}
		if req.LowestGround && terrain != nil {
			elev := terrain.ElevationAt(c.X, c.Y)
			if elev < bestElev || (elev == bestElev && a > bestArea) {
				bestElev = elev
				bestArea = a
				best = i
			}
			continue
		}
		if a > bestArea {
			bestArea = a
			best = i
		}
	}
	return best
}

// nearestRing is the closest approach of any piece vertex to the ring.
func nearestRing(ring geom.Polygon, p geom.Polygon) float64 {
	best := math.Inf(1)
	for _, v := range p.Verts {
		if d := ring.DistToBoundary(v); d < best {
			best = d
		}
	}
	return best
}

// carve slices a compact piece of roughly the wanted area off one corner,
// returning (footprint, remainders). Two guillotine cuts keep the
// footprint near square rather than a full-height sliver; exact for
// rectangles, close enough elsewhere. Small pieces are consumed whole.
func carve(p geom.Polygon, want float64) (geom.Polygon, []geom.Polygon) {
	area := p.Area()
	if area <= want*1.5 {
		return p, nil
	}
	o := geom.OrientedBounds(p)
	if o.W < 1e-6 || o.D < 1e-6 {
		return p, nil
	}
	perp := geom.Rot90(o.Axis)
	s := math.Min(math.Sqrt(want), 2*o.D) // no deeper than the piece
	w := want / s

	// end strip s deep, then a w wide corner of it
	cut1 := o.Center.Add(o.Axis.Scale(s - o.W))
	strip := geom.ClipHalfPlane(p, cut1, o.Axis)
	rests := []geom.Polygon{geom.ClipHalfPlane(p, cut1, o.Axis.Scale(-1))}
	if strip.IsEmpty() {
		return p, nil
	}
	cut2 := o.Center.Add(perp.Scale(w - o.D))
	foot := geom.ClipHalfPlane(strip, cut2, perp)
	rests = append(rests, geom.ClipHalfPlane(strip, cut2, perp.Scale(-1)))
	if foot.IsEmpty() {
		return strip, rests[:1]
	}
	return foot, rests
}

// carveWithClearance carves a piece sized for the footprint plus its
// clearance ring, then peels the ring off as collar strips. want is the
// footprint area, gross the ring-inclusive demand. Pieces too tight to
// hold a collar are consumed whole.
func carveWithClearance(p geom.Polygon, want, gross, clear float64) (geom.Polygon, []geom.Polygon, []geom.Polygon) {
	piece, rest := carve(p, gross)
	o := geom.OrientedBounds(piece)
	if clear <= 0 || o.W <= clear+1 || o.D <= clear+1 {
		return piece, nil, rest
	}

	perp := geom.Rot90(o.Axis)
	foot := piece
	collar := []geom.Polygon{}
	for _, hp := range []struct {
		n   model2d.Coord
		off float64
	}{
		{o.Axis, o.W - clear}, {o.Axis.Scale(-1), o.W - clear},
		{perp, o.D - clear}, {perp.Scale(-1), o.D - clear},
	} {
		origin := o.Center.Add(hp.n.Scale(hp.off))
		strip := geom.ClipHalfPlane(foot, origin, hp.n.Scale(-1))
		if !strip.IsEmpty() && strip.Area() > 1 {
			collar = append(collar, strip)
		}
		foot = geom.ClipHalfPlane(foot, origin, hp.n)
	}
	if foot.IsEmpty() || foot.Area() < want*0.5 {
		return piece, nil, rest
	}
	return foot, collar, rest
}
