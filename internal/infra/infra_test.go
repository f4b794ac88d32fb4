package infra

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

// slopeSouth falls one meter for every meter of southing.
type slopeSouth struct{}

func (slopeSouth) ElevationAt(x, y float64) float64 { return y }

func testNet() *plan.Network {
	net := &plan.Network{}
	a := net.AddNode(geom.Pt(0, 150), 0.1)
	b := net.AddNode(geom.Pt(600, 150), 0.1)
	net.AddSegment(a, b, plan.RoadPrimary, 24)
	return net
}

func TestPlaceAllFacilities(t *testing.T) {
	boundary := rect(0, 0, 600, 300)
	// two big pieces on either side of the road
	pool := []geom.Polygon{rect(0, 0, 600, 138), rect(0, 162, 600, 300)}

	reqs := DefaultRequirements(boundary.Area())
	placed, rest, greens := Place(pool, testNet(), boundary, reqs, slopeSouth{})

	require.Len(t, placed, len(reqs))
	for _, el := range placed {
		assert.True(t, el.Placed, "facility %s should fit on an empty site", el.Kind)
		assert.Greater(t, el.Poly.Area(), 0.0)
	}
	assert.NotEmpty(t, rest, "lots still need land after infrastructure")
	assert.NotEmpty(t, greens, "exclusion rings become green collars")
}

func TestPlaceKeepsClearance(t *testing.T) {
	boundary := rect(0, 0, 600, 300)
	pool := []geom.Polygon{rect(0, 162, 600, 300)}
	reqs := []Requirement{
		{Kind: plan.InfraSubstation, Area: 900, Exclusion: 20, NeedsRoad: true},
	}

	placed, rest, greens := Place(pool, testNet(), boundary, reqs, nil)
	require.Len(t, placed, 1)
	require.True(t, placed[0].Placed)
	require.NotEmpty(t, greens)

	// nothing left in the pool may come closer than the exclusion radius
	foot := placed[0].Poly
	assert.InDelta(t, 900, foot.Area(), 900*0.1)
	for _, r := range rest {
		for _, v := range r.Verts {
			assert.GreaterOrEqual(t, foot.DistToBoundary(v), 20.0)
		}
		for _, v := range foot.Verts {
			assert.GreaterOrEqual(t, r.DistToBoundary(v), 20.0)
		}
	}
}

func TestPondSeeksLowGround(t *testing.T) {
	boundary := rect(0, 0, 600, 300)
	pool := []geom.Polygon{rect(0, 0, 600, 138), rect(0, 162, 600, 300)}

	reqs := []Requirement{
		{Kind: plan.InfraPond, Area: 3000, NeedsBoundary: true, LowestGround: true},
	}
	placed, _, _ := Place(pool, testNet(), boundary, reqs, slopeSouth{})

	require.Len(t, placed, 1)
	require.True(t, placed[0].Placed)
	// south piece centroid sits lower than the north one
	assert.Less(t, placed[0].Poly.Centroid().Y, 150.0)
}

func TestLargestWinsWithoutTerrainBias(t *testing.T) {
	boundary := rect(0, 0, 600, 300)
	small := rect(0, 0, 100, 100)
	big := rect(200, 0, 600, 300)
	reqs := []Requirement{{Kind: plan.InfraSubstation, Area: 1600, NeedsRoad: true, Exclusion: 20}}

	placed, _, _ := Place([]geom.Polygon{small, big}, testNet(), boundary, reqs, nil)
	require.True(t, placed[0].Placed)
	c := placed[0].Poly.Centroid()
	assert.Greater(t, c.X, 150.0, "footprint should be carved from the larger piece")
}

func TestInfeasibleRecordedNotFatal(t *testing.T) {
	boundary := rect(0, 0, 100, 100)
	pool := []geom.Polygon{rect(0, 0, 100, 100)}
	reqs := []Requirement{
		{Kind: plan.InfraWastePlant, Area: 50000, NeedsBoundary: true, Priority: 0},
		{Kind: plan.InfraSubstation, Area: 1600, NeedsRoad: true, Priority: 1},
	}
	net := &plan.Network{}
	a := net.AddNode(geom.Pt(0, 50), 0.1)
	b := net.AddNode(geom.Pt(100, 50), 0.1)
	net.AddSegment(a, b, plan.RoadPrimary, 16)

	placed, _, _ := Place(pool, net, boundary, reqs, nil)
	require.Len(t, placed, 2)
	assert.False(t, placed[0].Placed)
	assert.NotEmpty(t, placed[0].Reason)
	assert.True(t, placed[1].Placed, "later facilities still place after a failure")
}

func TestCarveRoughArea(t *testing.T) {
	p := rect(0, 0, 200, 100)
	foot, rest := carve(p, 4000)
	require.False(t, foot.IsEmpty())
	assert.InDelta(t, 4000, foot.Area(), 4000*0.05)
	// compact, not a full-height sliver
	assert.Less(t, geom.Aspect(foot), 2.0)

	total := foot.Area()
	for _, r := range rest {
		total += r.Area()
	}
	assert.InDelta(t, p.Area(), total, 1)
}

func TestCarveConsumesSmallPieceWhole(t *testing.T) {
	p := rect(0, 0, 60, 50)
	foot, rest := carve(p, 2500)
	assert.InDelta(t, p.Area(), foot.Area(), 1e-6)
	assert.Empty(t, rest)
}
