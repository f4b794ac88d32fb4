package parkgraph

import (
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/evolve"
	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
	"github.com/voidshard/parkgraph/internal/schedule"
	"github.com/voidshard/parkgraph/internal/score"
)

// newLayout converts the winning candidate into the public result shape.
func newLayout(p *Planner, c *candidate, res *evolve.Result, tl *schedule.Timeline) *Layout {
	pl := c.plan
	l := &Layout{
		Seed:     p.params.Seed,
		Boundary: ringOut(pl.Boundary),
	}

	for _, s := range pl.Net.Segments {
		l.Roads = append(l.Roads, &Road{
			From:  pointOut(pl.Net.Nodes[s.From]),
			To:    pointOut(pl.Net.Nodes[s.To]),
			Class: string(s.Class),
			Width: s.Width,
		})
	}
	for _, lot := range pl.Lots {
		l.Lots = append(l.Lots, &Lot{
			Ring:        ringOut(lot.Poly),
			Area:        lot.Area,
			Aspect:      lot.Aspect,
			Use:         lot.Use,
			HasFrontage: lot.Frontage >= 0,
		})
	}
	for _, g := range pl.Greens {
		l.Greens = append(l.Greens, ringOut(g))
	}
	for _, el := range pl.Infra {
		f := &Facility{
			Kind:      string(el.Kind),
			Exclusion: el.Exclusion,
			Placed:    el.Placed,
			Reason:    el.Reason,
		}
		if el.Placed {
			f.Ring = ringOut(el.Poly)
		}
		l.Facilities = append(l.Facilities, f)
	}
	for _, e := range pl.Entrances {
		l.Entrances = append(l.Entrances, &Gate{At: pointOut(e.Point), Edge: e.Edge})
	}
	for _, v := range c.violations {
		v := v
		l.Violations = append(l.Violations, &Violation{
			Rule:      v.Rule,
			Severity:  string(v.Severity),
			Quantity:  v.Quantity,
			Measured:  v.Measured,
			Threshold: v.Threshold,
			Message:   v.Message,
		})
	}

	l.Score = &ScoreVector{
		Compliance:       c.vec[score.DimCompliance],
		Efficiency:       c.vec[score.DimEfficiency],
		LotQuality:       c.vec[score.DimLotQuality],
		Financial:        c.vec[score.DimFinancial],
		Constructability: c.vec[score.DimConstructability],
		Environmental:    c.vec[score.DimEnvironmental],
		UtilityCoverage:  c.vec[score.DimUtilityCoverage],
		Total:            c.fitness,
	}
	l.Timeline = timelineOut(tl)
	l.Stats = statsOut(pl, c, res)
	return l
}

func timelineOut(tl *schedule.Timeline) *Timeline {
	out := &Timeline{
		TotalDays:    tl.TotalDays,
		CriticalPath: tl.CriticalPath,
	}
	for _, p := range tl.Packages {
		out.Packages = append(out.Packages, &WorkPackage{
			ID:        p.ID,
			Type:      string(p.Type),
			Quantity:  p.Quantity,
			Duration:  p.Duration,
			Start:     p.Start,
			Finish:    p.Finish,
			DependsOn: p.DependsOn,
		})
	}
	return out
}

func statsOut(pl *plan.Plan, c *candidate, res *evolve.Result) *LayoutStats {
	return &LayoutStats{
		SiteArea:        pl.SiteArea(),
		SalableArea:     pl.LotArea(),
		SalableFraction: pl.SalableFraction(),
		GreenFraction:   pl.GreenFraction(),
		LotCount:        len(pl.Lots),
		GreenCount:      len(pl.Greens),
		RoadLength: map[string]float64{
			string(plan.RoadPrimary):   pl.Net.TotalLength(plan.RoadPrimary),
			string(plan.RoadSecondary): pl.Net.TotalLength(plan.RoadSecondary),
			string(plan.RoadAccess):    pl.Net.TotalLength(plan.RoadAccess),
		},
		Coverage:    c.coverage,
		CoverageGap: c.gapArea,
		Generations: res.Generations,
		Evaluations: res.Evaluations,
		StopReason:  string(res.Stop),
	}
}

func pointOut(c model2d.Coord) Point {
	return Point{X: c.X, Y: c.Y}
}

func ringOut(p geom.Polygon) []Point {
	out := make([]Point, len(p.Verts))
	for i, v := range p.Verts {
		out[i] = pointOut(v)
	}
	return out
}
