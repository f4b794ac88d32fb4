// Package score grades a candidate plan along seven dimensions, each
// normalized into [0,1], and collapses them into a single fitness value
// with a weighted dot product.
package score

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/voidshard/parkgraph/internal/plan"
	"github.com/voidshard/parkgraph/internal/rules"
)

// Dims is the number of scoring dimensions.
const Dims = 7

// Dimension indices into a Vector.
const (
	DimCompliance = iota
	DimEfficiency
	DimLotQuality
	DimFinancial
	DimConstructability
	DimEnvironmental
	DimUtilityCoverage
)

// DimNames labels each dimension, in index order.
var DimNames = [Dims]string{
	"compliance", "efficiency", "lot_quality", "financial",
	"constructability", "environmental", "utility_coverage",
}

// Vector holds one score per dimension.
type Vector [Dims]float64

// Input bundles everything the scorer reads.
type Input struct {
	Plan       *plan.Plan
	Violations []rules.Violation
	// Coverage is the fraction of the buildable area within the road
	// service radius, from the network audit.
	Coverage float64
}

// Cost model constants, rough mid-range unit rates.
const (
	revenuePerM2  = 90.0 // salable land
	costPerRoadM  = 950.0
	costPerInfraM = 55.0 // facility footprint, per m2
)

// Evaluate grades the plan. Deterministic for a given input.
func Evaluate(in Input) Vector {
	p := in.Plan
	var v Vector
	v[DimCompliance] = complianceScore(in.Violations)
	v[DimEfficiency] = band(p.SalableFraction(), 0.45, 0.70, 0.85, 0.95)
	v[DimLotQuality] = lotQuality(p)
	v[DimFinancial] = financial(p)
	v[DimConstructability] = constructability(p)
	v[DimEnvironmental] = band(p.GreenFraction(), 0.02, 0.08, 0.20, 0.35)
	v[DimUtilityCoverage] = clamp01(in.Coverage)
	return v
}

// Aggregate collapses the vector with the given weights. Weights are
// normalized to sum to one, so relative magnitudes are all that matter.
func (v Vector) Aggregate(weights []float64) float64 {
	w := weights
	if len(w) != Dims {
		w = DefaultWeights()
	}
	total := 0.0
	for _, x := range w {
		total += x
	}
	if total <= 0 {
		return 0
	}
	wv := mat.NewVecDense(Dims, append([]float64{}, w...))
	wv.ScaleVec(1/total, wv)
	sv := mat.NewVecDense(Dims, v[:])
	return mat.Dot(sv, wv)
}

// DefaultWeights weighs every dimension equally.
func DefaultWeights() []float64 {
	w := make([]float64, Dims)
	for i := range w {
		w[i] = 1
	}
	return w
}

func complianceScore(vs []rules.Violation) float64 {
	s := 1.0
	for _, v := range vs {
		if v.Severity == rules.Hard {
			s -= 0.5
		} else {
			s -= 0.1
		}
	}
	return clamp01(s)
}

// lotQuality rewards compact, road-fronting lots.
func lotQuality(p *plan.Plan) float64 {
	if len(p.Lots) == 0 {
		return 0
	}
	shape := 0.0
	fronted := 0
	for _, l := range p.Lots {
		// 1 up to aspect 2, fading to 0 at aspect 6
		shape += 1 - clamp01((l.Aspect-2)/4)
		if l.Frontage >= 0 {
			fronted++
		}
	}
	shape /= float64(len(p.Lots))
	frontFrac := float64(fronted) / float64(len(p.Lots))
	return shape * frontFrac
}

// financial scores projected margin: land revenue against road and
// facility construction cost, as a fraction of revenue.
func financial(p *plan.Plan) float64 {
	revenue := p.LotArea() * revenuePerM2
	if revenue <= 0 {
		return 0
	}
	cost := costPerInfraM * p.InfraArea()
	if p.Net != nil {
		cost += costPerRoadM * p.Net.TotalLength("")
	}
	return clamp01((revenue - cost) / revenue)
}

// constructability penalizes road-heavy layouts: meters of road per
// hectare of site, 1 at or under 120, 0 at or over 320.
func constructability(p *plan.Plan) float64 {
	site := p.SiteArea()
	if site <= 0 || p.Net == nil {
		return 0
	}
	perHa := p.Net.TotalLength("") / (site / 10000)
	return 1 - clamp01((perHa-120)/200)
}

// band is a trapezoid membership function: 0 outside [lo0,hi0], 1 inside
// [lo1,hi1], linear ramps between.
func band(x, lo0, lo1, hi1, hi0 float64) float64 {
	switch {
	case x <= lo0 || x >= hi0:
		return 0
	case x >= lo1 && x <= hi1:
		return 1
	case x < lo1:
		return (x - lo0) / (lo1 - lo0)
	default:
		return (hi0 - x) / (hi0 - hi1)
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
