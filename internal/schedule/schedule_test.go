package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

func rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{Verts: []model2d.Coord{
		geom.Pt(x0, y0), geom.Pt(x1, y0), geom.Pt(x1, y1), geom.Pt(x0, y1),
	}}
}

func samplePlan() *plan.Plan {
	net := &plan.Network{}
	a := net.AddNode(geom.Pt(0, 150), 0.1)
	b := net.AddNode(geom.Pt(600, 150), 0.1)
	c := net.AddNode(geom.Pt(300, 150), 0.1)
	d := net.AddNode(geom.Pt(300, 0), 0.1)
	net.AddSegment(a, c, plan.RoadPrimary, 24)
	net.AddSegment(c, b, plan.RoadPrimary, 24)
	net.AddSegment(c, d, plan.RoadSecondary, 16)

	p := &plan.Plan{
		Boundary:  rect(0, 0, 600, 300),
		Buildable: rect(10, 10, 590, 290),
		Net:       net,
	}
	lot := rect(50, 180, 110, 260)
	p.Lots = append(p.Lots, &plan.Lot{Poly: lot, Area: lot.Area(), Frontage: 0})
	p.Infra = append(p.Infra,
		&plan.Infra{Kind: plan.InfraPond, Poly: rect(400, 200, 470, 270), Placed: true},
		&plan.Infra{Kind: plan.InfraSubstation, Poly: rect(500, 200, 540, 240), Placed: true},
		&plan.Infra{Kind: plan.InfraWastePlant, Placed: false, Reason: "no room"},
	)
	return p
}

func TestBuildPackageSet(t *testing.T) {
	pkgs := Build(samplePlan(), nil)

	ids := map[string]*Package{}
	for _, p := range pkgs {
		ids[p.ID] = p
	}
	require.Contains(t, ids, "clearing")
	require.Contains(t, ids, "earthworks")
	require.Contains(t, ids, "roads-primary")
	require.Contains(t, ids, "roads-secondary")
	require.Contains(t, ids, "lot-grading")
	assert.NotContains(t, ids, "roads-access")

	// unplaced facilities are never scheduled
	for id := range ids {
		assert.NotContains(t, id, "wastewater")
	}

	assert.Equal(t, []string{"clearing"}, ids["earthworks"].DependsOn)
	assert.Equal(t, []string{"roads-primary"}, ids["roads-secondary"].DependsOn)
	assert.Equal(t, []string{"roads-secondary"}, ids["lot-grading"].DependsOn)
	assert.Equal(t, 600.0, ids["roads-primary"].Quantity)

	for _, p := range pkgs {
		assert.Greater(t, p.Duration, 0.0, p.ID)
	}
}

func TestBuildDeterministic(t *testing.T) {
	p := samplePlan()
	a := Build(p, nil)
	b := Build(p, nil)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Duration, b[i].Duration)
	}
}

func TestEstimateBounds(t *testing.T) {
	pkgs := Build(samplePlan(), nil)
	tl, err := Estimate(pkgs)
	require.NoError(t, err)

	longest, sum := 0.0, 0.0
	for _, p := range pkgs {
		sum += p.Duration
		if p.Duration > longest {
			longest = p.Duration
		}
	}
	assert.GreaterOrEqual(t, tl.TotalDays, longest)
	assert.LessOrEqual(t, tl.TotalDays, sum)

	// every package starts after all its dependencies finish
	byID := map[string]*Package{}
	for _, p := range pkgs {
		byID[p.ID] = p
	}
	for _, p := range pkgs {
		for _, d := range p.DependsOn {
			assert.GreaterOrEqual(t, p.Start, byID[d].Finish, "%s after %s", p.ID, d)
		}
	}
}

func TestCriticalPathWalk(t *testing.T) {
	pkgs := []*Package{
		{ID: "a", Duration: 10},
		{ID: "b", Duration: 20, DependsOn: []string{"a"}},
		{ID: "c", Duration: 1, DependsOn: []string{"a"}},
		{ID: "d", Duration: 5, DependsOn: []string{"b", "c"}},
	}
	tl, err := Estimate(pkgs)
	require.NoError(t, err)

	assert.Equal(t, 35.0, tl.TotalDays)
	assert.Equal(t, []string{"a", "b", "d"}, tl.CriticalPath)
}

func TestCycleDetected(t *testing.T) {
	pkgs := []*Package{
		{ID: "a", Duration: 1, DependsOn: []string{"b"}},
		{ID: "b", Duration: 1, DependsOn: []string{"a"}},
	}
	_, err := Estimate(pkgs)
	require.ErrorIs(t, err, ErrCyclicDependency)
}

func TestUnknownDepIgnored(t *testing.T) {
	pkgs := []*Package{
		{ID: "a", Duration: 3, DependsOn: []string{"ghost"}},
	}
	tl, err := Estimate(pkgs)
	require.NoError(t, err)
	assert.Equal(t, 3.0, tl.TotalDays)
	assert.Equal(t, 0.0, pkgs[0].Start)
}

func TestDurationLookup(t *testing.T) {
	d := Duration(WorkRoadPrimary, 1000, nil)
	assert.InDelta(t, 7+12, d, 1e-9)

	custom := map[WorkType]Rate{WorkRoadPrimary: {Setup: 1, PerUnit: 0.001}}
	assert.InDelta(t, 2.0, Duration(WorkRoadPrimary, 1000, custom), 1e-9)

	assert.Equal(t, 0.0, Duration(WorkType("unknown"), 50, nil))
}
