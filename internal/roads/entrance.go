package roads

import (
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

// entranceCandidate is a stretch of boundary long enough to host a gate.
type entranceCandidate struct {
	point model2d.Coord
	edge  int
	score float64 // alignment against the reference line, higher is better
	dist  float64 // distance to the reference line
}

// ChooseEntrances selects up to count points on the boundary facing the
// external reference line. A candidate needs a frontage of at least
// cfg.MinFrontage; long edges contribute a station every MinFrontage so a
// single highway-facing edge can host several gates. Candidates are ranked
// by how squarely they face the reference line, then by proximity to it;
// picks after the first maximise spread from already chosen gates.
func ChooseEntrances(boundary geom.Polygon, ref []model2d.Coord, count int, cfg Config) ([]*plan.Entrance, error) {
	cfg = cfg.withDefaults()
	if count <= 0 {
		count = 1
	}
	if len(ref) < 2 {
		return nil, ErrNoValidFrontage
	}

	ccw := boundary.EnsureCCW()
	cands := []entranceCandidate{}
	for i := 0; i < len(ccw.Verts); i++ {
		a, b := ccw.Edge(i)
		length := a.Dist(b)
		if length < cfg.MinFrontage {
			continue
		}
		dir := b.Sub(a).Scale(1 / length)
		outward := geom.Rot90(dir).Scale(-1) // CCW ring: outward is clockwise normal

		// stations along the edge, at least one at the midpoint
		offs := []float64{length / 2}
		if length >= 2*cfg.MinFrontage {
			offs = offs[:0]
			for off := cfg.MinFrontage; off <= length-cfg.MinFrontage/2; off += cfg.MinFrontage {
				offs = append(offs, off)
			}
		}
		for _, off := range offs {
			p := a.Add(dir.Scale(off))
			refDir, refDist := nearestRefDir(ref, p)
			// the outward normal should be perpendicular to the reference
			// line, ie. the edge runs parallel to it
			align := math.Abs(outward.Dot(geom.Rot90(refDir)))
			cands = append(cands, entranceCandidate{point: p, edge: i, score: align, dist: refDist})
		}
	}
	if len(cands) == 0 {
		return nil, ErrNoValidFrontage
	}

	essentials.VoodooSort(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].edge < cands[j].edge
	})

	// drop stations that barely face the road, or that sit on a far side
	// of the site (the gate must actually be adjacent to the reference)
	best := cands[0].score
	maxDist := cands[0].dist*2 + cfg.MinFrontage
	usable := cands[:0]
	for _, c := range cands {
		if c.score >= best*0.5 && c.dist <= maxDist {
			usable = append(usable, c)
		}
	}

	chosen := []*plan.Entrance{usable[0].toEntrance()}
	for len(chosen) < count {
		pickIdx, pickSpread := -1, -1.0
		for i, c := range usable {
			spread := math.Inf(1)
			for _, e := range chosen {
				spread = math.Min(spread, e.Point.Dist(c.point))
			}
			if spread < cfg.MinFrontage {
				continue // too close to an existing gate
			}
			if spread > pickSpread {
				pickSpread = spread
				pickIdx = i
			}
		}
		if pickIdx < 0 {
			break // fewer entrances than asked for; best effort
		}
		chosen = append(chosen, usable[pickIdx].toEntrance())
	}
	return chosen, nil
}

func (c entranceCandidate) toEntrance() *plan.Entrance {
	return &plan.Entrance{Point: c.point, Edge: c.edge, Node: -1}
}

// nearestRefDir returns the direction of the reference polyline segment
// closest to p, and the distance to it.
func nearestRefDir(ref []model2d.Coord, p model2d.Coord) (model2d.Coord, float64) {
	bestDir := model2d.Coord{X: 1}
	bestDist := math.Inf(1)
	for i := 0; i+1 < len(ref); i++ {
		d := geom.PointSegDist(p, ref[i], ref[i+1])
		if d < bestDist {
			bestDist = d
			seg := ref[i+1].Sub(ref[i])
			if seg.Norm() > 1e-9 {
				bestDir = seg.Normalize()
			}
		}
	}
	return bestDir, bestDist
}
