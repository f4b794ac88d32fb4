package parkgraph

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/parkgraph/internal/evolve"
	"github.com/voidshard/parkgraph/internal/roads"
)

// flatSite is a 500x400m (20 hectare) rectangle.
func flatSite() []Point {
	return []Point{{0, 0}, {500, 0}, {500, 400}, {0, 400}}
}

func quickOpt() *OptimizeConfig {
	return &OptimizeConfig{Population: 12, MaxGenerations: 6, Parallelism: 4}
}

func TestNewValidatesParams(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.Error(t, err)

	_, err = New(&Params{}, nil, nil)
	require.Error(t, err, "a boundary is required")

	_, err = New(&Params{Boundary: []Point{{0, 0}, {1, 0}}}, nil, nil)
	require.Error(t, err, "two points do not make a ring")

	// bowtie
	_, err = New(&Params{Boundary: []Point{{0, 0}, {100, 100}, {100, 0}, {0, 100}}}, nil, nil)
	require.Error(t, err)

	p, err := New(&Params{Boundary: flatSite(), Seed: 1}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestPlanFlatRectangle(t *testing.T) {
	p, err := New(&Params{
		Boundary:      flatSite(),
		TargetLotArea: 1200,
		Entrances:     2,
		Seed:          19,
	}, quickOpt(), nil)
	require.NoError(t, err)

	l, err := p.Plan(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, l.RunID)
	assert.Equal(t, int64(19), l.Seed)
	assert.NotEmpty(t, l.Roads)
	assert.NotEmpty(t, l.Lots, "a flat empty rectangle must yield lots")
	assert.NotEmpty(t, l.Entrances)
	require.NotNil(t, l.Stats)
	assert.InDelta(t, 200000, l.Stats.SiteArea, 1)
	assert.Greater(t, l.Stats.SalableFraction, 0.2)
	assert.Less(t, l.Stats.SalableFraction, 0.95)

	for _, lot := range l.Lots {
		assert.Greater(t, lot.Area, 0.0)
		assert.GreaterOrEqual(t, lot.Aspect, 1.0)
		assert.Equal(t, "industrial", lot.Use)
	}

	require.NotNil(t, l.Timeline)
	assert.Greater(t, l.Timeline.TotalDays, 0.0)
	assert.NotEmpty(t, l.Timeline.CriticalPath)

	require.NotNil(t, l.Score)
	assert.GreaterOrEqual(t, l.Score.Total, 0.0)
	assert.LessOrEqual(t, l.Score.Total, 1.0)
}

// TestPlanTargetScenario drives a realistic engagement: 20 hectares of
// flat land beside a highway, 1200 m2 lots. A competent plan sells most
// of the site without breaking any hard rule.
func TestPlanTargetScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("full optimization run")
	}
	p, err := New(&Params{
		Boundary:           flatSite(),
		Buffer:             6,
		PrimaryRoadWidth:   14,
		SecondaryRoadWidth: 9,
		TargetLotArea:      1200,
		Entrances:          2,
		RefLine:            []Point{{-50, -40}, {550, -40}},
		Seed:               101,
	}, &OptimizeConfig{Population: 24, MaxGenerations: 30, Parallelism: 4}, nil)
	require.NoError(t, err)

	l, err := p.Plan(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(l.Lots), 50)
	assert.GreaterOrEqual(t, l.Stats.SalableFraction, 0.70)
	assert.LessOrEqual(t, l.Stats.SalableFraction, 0.85)
	for _, v := range l.Violations {
		assert.NotEqual(t, "hard", v.Severity, "hard rule %s broken (%.2f)", v.Rule, v.Measured)
	}

	// gates face the highway south of the site
	require.NotEmpty(t, l.Entrances)
	for _, g := range l.Entrances {
		assert.InDelta(t, 0.0, g.At.Y, 1e-6)
	}

	// the schedule respects its own dependency structure: no shorter than
	// the longest package, no longer than strictly serial execution
	require.NotNil(t, l.Timeline)
	longest, serial := 0.0, 0.0
	for _, wp := range l.Timeline.Packages {
		longest = math.Max(longest, wp.Duration)
		serial += wp.Duration
	}
	assert.GreaterOrEqual(t, l.Timeline.TotalDays, longest)
	assert.LessOrEqual(t, l.Timeline.TotalDays, serial+1e-9)
}

func TestRefLineSteersEntrances(t *testing.T) {
	mk := func(ref []Point) ([]Point, error) {
		p, err := New(&Params{Boundary: flatSite(), Seed: 4, RefLine: ref}, quickOpt(), nil)
		require.NoError(t, err)
		sk, err := roads.BuildSkeleton(p.boundary, p.roadConfig())
		require.NoError(t, err)
		pr := newProblem(p, sk)
		ents, err := roads.ChooseEntrances(p.boundary, pr.ref, 2, p.roadConfig())
		if err != nil {
			return nil, err
		}
		out := make([]Point, len(ents))
		for i, e := range ents {
			out[i] = Point{X: e.Point.X, Y: e.Point.Y}
		}
		return out, nil
	}

	south, err := mk([]Point{{-100, -40}, {600, -40}})
	require.NoError(t, err)
	require.NotEmpty(t, south)
	for _, g := range south {
		assert.InDelta(t, 0.0, g.Y, 1e-6, "gates should face the southern road")
	}

	north, err := mk([]Point{{-100, 440}, {600, 440}})
	require.NoError(t, err)
	require.NotEmpty(t, north)
	for _, g := range north {
		assert.InDelta(t, 400.0, g.Y, 1e-6, "gates should face the northern road")
	}
}

func TestPlanDeterministicPerSeed(t *testing.T) {
	mk := func() *Layout {
		p, err := New(&Params{Boundary: flatSite(), Seed: 77}, quickOpt(), nil)
		require.NoError(t, err)
		l, err := p.Plan(context.Background())
		require.NoError(t, err)
		return l
	}
	a, b := mk(), mk()

	assert.Equal(t, len(a.Lots), len(b.Lots))
	assert.Equal(t, len(a.Roads), len(b.Roads))
	assert.Equal(t, a.Stats.SalableFraction, b.Stats.SalableFraction)
	assert.Equal(t, a.Score.Total, b.Score.Total)
}

func TestPlanInfeasibleBoundary(t *testing.T) {
	// a sliver thinner than the default buffer
	p, err := New(&Params{
		Boundary: []Point{{0, 0}, {800, 0}, {800, 12}, {0, 12}},
		Seed:     3,
	}, quickOpt(), nil)
	require.NoError(t, err)

	_, err = p.Plan(context.Background())
	require.ErrorIs(t, err, ErrInfeasibleGeometry)
}

func TestPlanCancellation(t *testing.T) {
	p, err := New(&Params{Boundary: flatSite(), Seed: 5}, &OptimizeConfig{
		Population: 8, MaxGenerations: 1000,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	l, err := p.Plan(ctx)
	if err == nil {
		assert.NotEmpty(t, l.Lots, "early stop still returns the best so far")
	}
}

func TestProgressCallback(t *testing.T) {
	var updates []ProgressUpdate
	opt := quickOpt()
	opt.Progress = func(u ProgressUpdate) { updates = append(updates, u) }

	p, err := New(&Params{Boundary: flatSite(), Seed: 9}, opt, nil)
	require.NoError(t, err)
	_, err = p.Plan(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	for i := 1; i < len(updates); i++ {
		assert.Equal(t, updates[i-1].Generation+1, updates[i].Generation)
		assert.Greater(t, updates[i].Evaluations, updates[i-1].Evaluations)
		assert.LessOrEqual(t, updates[i].HardViolations, updates[i-1].HardViolations,
			"feasibility never regresses")
		if updates[i].HardViolations == updates[i-1].HardViolations {
			assert.GreaterOrEqual(t, updates[i].BestFitness, updates[i-1].BestFitness)
		}
	}
}

func TestLayoutJSONRoundTrip(t *testing.T) {
	p, err := New(&Params{Boundary: flatSite(), Seed: 13}, quickOpt(), nil)
	require.NoError(t, err)
	l, err := p.Plan(context.Background())
	require.NoError(t, err)

	data, err := l.JSON()
	require.NoError(t, err)

	var back Layout
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, l.RunID, back.RunID)
	assert.Equal(t, len(l.Lots), len(back.Lots))
	assert.Equal(t, l.Stats.SalableFraction, back.Stats.SalableFraction)
}

func TestCustomRuleTable(t *testing.T) {
	p, err := New(&Params{Boundary: flatSite(), Seed: 21}, quickOpt(), nil)
	require.NoError(t, err)

	err = p.SetRulesYAML(strings.NewReader(`
rules:
  - id: impossible
    quantity: lot.count
    op: ">="
    threshold: 1000000
    severity: soft
`))
	require.NoError(t, err)

	l, err := p.Plan(context.Background())
	require.NoError(t, err)

	found := false
	for _, v := range l.Violations {
		if v.Rule == "impossible" {
			found = true
			assert.Equal(t, "soft", v.Severity)
		}
	}
	assert.True(t, found)
}

func TestDecodeDeterministicProperty(t *testing.T) {
	p, err := New(&Params{Boundary: flatSite(), Seed: 31}, quickOpt(), nil)
	require.NoError(t, err)
	sk, err := roads.BuildSkeleton(p.boundary, p.roadConfig())
	require.NoError(t, err)
	pr := newProblem(p, sk)

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	geneGen := gen.SliceOfN(genomeLen, gen.Float64Range(0, 1))
	properties.Property("same genome decodes identically", prop.ForAll(
		func(genes []float64) bool {
			g := evolve.Genome(genes)
			a, errA := pr.decode(g)
			b, errB := pr.decode(g)
			if errA != nil || errB != nil {
				return (errA == nil) == (errB == nil)
			}
			return a.fitness == b.fitness &&
				len(a.plan.Lots) == len(b.plan.Lots) &&
				a.coverage == b.coverage
		},
		geneGen,
	))
	properties.Property("fitness stays in unit range", prop.ForAll(
		func(genes []float64) bool {
			c, err := pr.decode(evolve.Genome(genes))
			if err != nil {
				return true
			}
			return c.fitness >= 0 && c.fitness <= 1
		},
		geneGen,
	))
	properties.TestingRun(t)
}
