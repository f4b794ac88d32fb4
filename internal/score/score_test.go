package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
	"github.com/voidshard/parkgraph/internal/rules"
)

func rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{Verts: []model2d.Coord{
		geom.Pt(x0, y0), geom.Pt(x1, y0), geom.Pt(x1, y1), geom.Pt(x0, y1),
	}}
}

func goodPlan() *plan.Plan {
	net := &plan.Network{}
	a := net.AddNode(geom.Pt(0, 150), 0.1)
	b := net.AddNode(geom.Pt(500, 150), 0.1)
	net.AddSegment(a, b, plan.RoadPrimary, 24)

	p := &plan.Plan{Boundary: rect(0, 0, 500, 300), Net: net}
	// 75% salable, compact fronted lots
	for x := 0.0; x < 500; x += 50 {
		top := rect(x, 30, x+50, 138)
		bot := rect(x, 162, x+50, 270)
		p.Lots = append(p.Lots,
			&plan.Lot{Poly: top, Area: top.Area(), Aspect: 1.8, Frontage: 0},
			&plan.Lot{Poly: bot, Area: bot.Area(), Aspect: 1.8, Frontage: 0})
	}
	p.Greens = append(p.Greens, rect(0, 0, 500, 30))
	return p
}

func TestAllDimensionsInUnitRange(t *testing.T) {
	v := Evaluate(Input{Plan: goodPlan(), Coverage: 0.9})
	for i, s := range v {
		assert.GreaterOrEqual(t, s, 0.0, DimNames[i])
		assert.LessOrEqual(t, s, 1.0, DimNames[i])
	}
}

func TestGoodPlanScoresWell(t *testing.T) {
	v := Evaluate(Input{Plan: goodPlan(), Coverage: 0.9})
	assert.Equal(t, 1.0, v[DimCompliance])
	assert.Greater(t, v[DimEfficiency], 0.9, "salable fraction 0.72 sits in the target band")
	assert.Greater(t, v[DimLotQuality], 0.9)
	assert.Greater(t, v[DimFinancial], 0.5)
	assert.Equal(t, 0.9, v[DimUtilityCoverage])
}

func TestHardViolationsCrushCompliance(t *testing.T) {
	vs := []rules.Violation{
		{Rule: "a", Severity: rules.Hard},
		{Rule: "b", Severity: rules.Hard},
	}
	v := Evaluate(Input{Plan: goodPlan(), Violations: vs})
	assert.Equal(t, 0.0, v[DimCompliance])
}

func TestSoftViolationsNibble(t *testing.T) {
	vs := []rules.Violation{{Rule: "a", Severity: rules.Soft}}
	v := Evaluate(Input{Plan: goodPlan(), Violations: vs})
	assert.InDelta(t, 0.9, v[DimCompliance], 1e-9)
}

func TestEmptyPlanScoresZeroish(t *testing.T) {
	p := &plan.Plan{Boundary: rect(0, 0, 100, 100)}
	v := Evaluate(Input{Plan: p})
	assert.Equal(t, 0.0, v[DimLotQuality])
	assert.Equal(t, 0.0, v[DimFinancial])
	assert.Equal(t, 0.0, v[DimConstructability])
	assert.Equal(t, 0.0, v[DimEfficiency])
}

func TestAggregateWeighting(t *testing.T) {
	v := Vector{1, 0, 0, 0, 0, 0, 0}
	assert.InDelta(t, 1.0/Dims, v.Aggregate(DefaultWeights()), 1e-9)

	// all weight on the first dimension
	w := make([]float64, Dims)
	w[0] = 5
	assert.InDelta(t, 1.0, v.Aggregate(w), 1e-9)

	// bad weight lengths fall back to uniform
	assert.InDelta(t, 1.0/Dims, v.Aggregate([]float64{1, 2}), 1e-9)
}

func TestAggregateScaleInvariant(t *testing.T) {
	v := Vector{0.2, 0.9, 0.5, 0.7, 0.4, 0.8, 0.6}
	w := []float64{1, 2, 3, 1, 1, 2, 1}
	w10 := make([]float64, Dims)
	for i := range w {
		w10[i] = w[i] * 10
	}
	assert.InDelta(t, v.Aggregate(w), v.Aggregate(w10), 1e-12)
}

func TestBandShape(t *testing.T) {
	require.Equal(t, 0.0, band(0.1, 0.2, 0.4, 0.6, 0.8))
	require.Equal(t, 1.0, band(0.5, 0.2, 0.4, 0.6, 0.8))
	assert.InDelta(t, 0.5, band(0.3, 0.2, 0.4, 0.6, 0.8), 1e-9)
	assert.InDelta(t, 0.5, band(0.7, 0.2, 0.4, 0.6, 0.8), 1e-9)
	require.Equal(t, 0.0, band(0.9, 0.2, 0.4, 0.6, 0.8))
}
