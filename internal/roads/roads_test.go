package roads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

func rect(w, h float64) geom.Polygon {
	return geom.NewPolygon(geom.Pt(0, 0), geom.Pt(w, 0), geom.Pt(w, h), geom.Pt(0, h))
}

func testCfg() Config {
	return Config{
		Buffer:         10,
		PrimaryWidth:   24,
		SecondaryWidth: 16,
		RibSpacing:     120,
		SampleStep:     40,
	}
}

func TestBuildSkeletonRect(t *testing.T) {
	sk, err := BuildSkeleton(rect(600, 400), testCfg())
	require.NoError(t, err)
	require.NotEmpty(t, sk.Segs)

	// the medial-axis approximation of a rectangle stays deep inside it
	for _, s := range sk.Segs {
		assert.True(t, sk.Inset.Contains(s[0]))
		assert.True(t, sk.Inset.Contains(s[1]))
	}
}

func TestBuildSkeletonConcave(t *testing.T) {
	// 400x400 site with a 100m wide notch cut down from the north edge;
	// both arms are far wider than the buffer, so the site is buildable
	site := geom.NewPolygon(
		geom.Pt(0, 0), geom.Pt(400, 0), geom.Pt(400, 400), geom.Pt(250, 400),
		geom.Pt(250, 100), geom.Pt(150, 100), geom.Pt(150, 400), geom.Pt(0, 400))

	sk, err := BuildSkeleton(site, testCfg())
	require.NoError(t, err)
	require.False(t, sk.Inset.IsEmpty())
	require.NotEmpty(t, sk.Segs)

	// the inset must keep the notch: its mouth is outside the buildable area
	assert.False(t, sk.Inset.Contains(geom.Pt(200, 300)))
	assert.True(t, sk.Inset.Contains(geom.Pt(200, 50)))
	for i := range sk.Inset.Verts {
		assert.GreaterOrEqual(t, site.DistToBoundary(sk.Inset.Verts[i]), 10.0-1e-6)
	}
}

func TestBuildSkeletonInfeasible(t *testing.T) {
	// 12m wide strip with a 10m buffer leaves nothing
	_, err := BuildSkeleton(rect(300, 12), testCfg())
	assert.ErrorIs(t, err, ErrInfeasibleGeometry)
}

func TestBuildSkeletonDeterministic(t *testing.T) {
	a, err := BuildSkeleton(rect(600, 400), testCfg())
	require.NoError(t, err)
	b, err := BuildSkeleton(rect(600, 400), testCfg())
	require.NoError(t, err)
	require.Equal(t, len(a.Segs), len(b.Segs))
	for i := range a.Segs {
		assert.Equal(t, a.Segs[i], b.Segs[i])
	}
}

func TestBuildNetworkConnected(t *testing.T) {
	boundary := rect(600, 400)
	cfg := testCfg()
	sk, err := BuildSkeleton(boundary, cfg)
	require.NoError(t, err)

	ents, err := ChooseEntrances(boundary, []model2d.Coord{geom.Pt(-50, -30), geom.Pt(700, -30)}, 1, cfg)
	require.NoError(t, err)

	net, cov, err := BuildNetwork(sk, cfg, ents)
	require.NoError(t, err)
	require.NotEmpty(t, net.Segments)

	assert.True(t, net.Connected(), "road graph must be connected")
	assert.Greater(t, net.TotalLength(plan.RoadPrimary), 0.0)
	assert.Greater(t, cov.Fraction, 0.8, "most of the interior should be near a road")

	// entrance connector was wired in
	require.GreaterOrEqual(t, ents[0].Node, 0)
}

func TestCoverageReportsGapPocket(t *testing.T) {
	inset := rect(400, 200)
	net := &plan.Network{}
	a := net.AddNode(geom.Pt(0, 100), 0.1)
	b := net.AddNode(geom.Pt(400, 100), 0.1)
	net.AddSegment(a, b, plan.RoadPrimary, 14)

	full := auditCoverage(inset, net, 120)
	assert.Equal(t, 1.0, full.Fraction)
	assert.Zero(t, full.GapArea)

	tight := auditCoverage(inset, net, 40)
	assert.Less(t, tight.Fraction, 1.0)
	assert.Greater(t, tight.GapArea, 0.0)
	// two mirrored unserved bands, each roughly 400x60
	assert.InDelta(t, 400*60, tight.GapArea, 400*60*0.35)
	assert.InDelta(t, 90.0, tight.MaxGap, 15)
}

func TestChooseEntrancesFacesReference(t *testing.T) {
	boundary := rect(600, 400)
	// reference highway runs along the south edge
	ref := []model2d.Coord{geom.Pt(-100, -30), geom.Pt(700, -30)}

	ents, err := ChooseEntrances(boundary, ref, 2, testCfg())
	require.NoError(t, err)
	require.NotEmpty(t, ents)
	for _, e := range ents {
		assert.InDelta(t, 0.0, e.Point.Y, 1e-6, "gates should sit on the south edge")
	}
	if len(ents) == 2 {
		assert.Greater(t, ents[0].Point.Dist(ents[1].Point), testCfg().MinFrontage)
	}
}

func TestChooseEntrancesNoFrontage(t *testing.T) {
	// every edge is shorter than the minimum frontage
	tiny := rect(20, 20)
	cfg := testCfg()
	cfg.MinFrontage = 100
	_, err := ChooseEntrances(tiny, []model2d.Coord{geom.Pt(0, -5), geom.Pt(20, -5)}, 1, cfg)
	assert.ErrorIs(t, err, ErrNoValidFrontage)
}

func TestCastToEdge(t *testing.T) {
	poly := rect(100, 100)
	end, ok := castToEdge(poly, geom.Pt(50, 50), geom.Pt(1, 0))
	require.True(t, ok)
	assert.InDelta(t, 100.0, end.X, 0.5)
	assert.InDelta(t, 50.0, end.Y, 1e-6)

	_, ok = castToEdge(poly, geom.Pt(200, 50), geom.Pt(1, 0))
	assert.False(t, ok)
}
