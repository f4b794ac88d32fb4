package parkgraph

import (
	"context"
	"math"
	"math/rand"

	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/evolve"
	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/infra"
	"github.com/voidshard/parkgraph/internal/plan"
	"github.com/voidshard/parkgraph/internal/roads"
	"github.com/voidshard/parkgraph/internal/rules"
	"github.com/voidshard/parkgraph/internal/score"
	"github.com/voidshard/parkgraph/internal/subdiv"
)

// The genome is six genes, each in [0,1], mapped onto the layout knobs
// the optimizer is allowed to turn. Everything else comes straight from
// Params.
const (
	geneRibSpacing = iota
	geneLotArea
	geneAspect
	geneEntrances
	geneCutSeed
	geneFrontageTol
	genomeLen
)

// gene ranges
const (
	ribSpacingMin = 90.0
	ribSpacingMax = 240.0
	lotAreaMinMul = 0.6
	lotAreaMaxMul = 1.6
	aspectMin     = 2.2
	frontageMin   = 8.0
	frontageMax   = 24.0
)

// candidate is one fully decoded layout, ready for scoring.
type candidate struct {
	plan       *plan.Plan
	coverage   float64
	gapArea    float64
	violations []rules.Violation
	vec        score.Vector
	fitness    float64
}

// problem adapts the decode pipeline to the optimizer. One problem is
// built per run; the skeleton is computed once and shared by every
// candidate, since it depends only on boundary and buffer.
type problem struct {
	p  *Planner
	sk *roads.Skeleton

	// the external reference line entrances align against
	ref []model2d.Coord
}

func newProblem(p *Planner, sk *roads.Skeleton) *problem {
	ref := make([]model2d.Coord, 0, 2)
	if len(p.params.RefLine) >= 2 {
		for _, pt := range p.params.RefLine {
			ref = append(ref, pt.coord())
		}
	} else {
		// no external road given: assume one runs just outside the longest
		// boundary edge, which is where a frontage road would be
		poly := p.boundary.EnsureCCW()
		bi, bestLen := 0, 0.0
		n := len(poly.Verts)
		for i := 0; i < n; i++ {
			a, b := poly.Edge(i)
			if l := b.Sub(a).Norm(); l > bestLen {
				bestLen = l
				bi = i
			}
		}
		a, b := poly.Edge(bi)
		dir := b.Sub(a).Normalize()
		out := geom.Rot90(dir).Scale(-1) // outward for a CCW ring
		off := out.Scale(p.params.Buffer * 2)
		ref = append(ref, a.Add(off), b.Add(off))
	}
	return &problem{p: p, sk: sk, ref: ref}
}

func (pr *problem) GenomeLen() int  { return genomeLen }
func (pr *problem) Objectives() int { return score.Dims }

// Seed plants one genome tuned to the parameter set so the search never
// starts from pure noise; the rest of the population is random.
func (pr *problem) Seed(i int, rng *rand.Rand) evolve.Genome {
	if i != 0 {
		return nil
	}
	params := pr.p.params
	g := make(evolve.Genome, genomeLen)
	for j := range g {
		g[j] = 0.5
	}
	// rib spacing sized so two rows of target-size lots fit between ribs
	depth := math.Sqrt(params.TargetLotArea * 2.5)
	g[geneRibSpacing] = unlerp(2*depth+params.SecondaryRoadWidth, ribSpacingMin, ribSpacingMax)
	g[geneLotArea] = unlerp(1, lotAreaMinMul, lotAreaMaxMul)
	g[geneEntrances] = 1 // ask for the full entrance count
	return g
}

func (pr *problem) Evaluate(ctx context.Context, g evolve.Genome) evolve.Evaluation {
	if ctx.Err() != nil {
		return evolve.Unfit(score.Dims)
	}
	c, err := pr.decode(g)
	if err != nil {
		return evolve.Unfit(score.Dims)
	}
	return evolve.Evaluation{
		Objectives:     append([]float64{}, c.vec[:]...),
		HardViolations: rules.CountHard(c.violations),
		Fitness:        c.fitness,
	}
}

// decode turns a genome into a complete candidate plan: entrances, road
// network, facilities, lots, then compliance and scoring. Deterministic
// per genome.
func (pr *problem) decode(g evolve.Genome) (*candidate, error) {
	p := pr.p
	rcfg := p.roadConfig()
	rcfg.RibSpacing = lerp(g[geneRibSpacing], ribSpacingMin, ribSpacingMax)
	rcfg.CoverageRadius = rcfg.RibSpacing

	wantGates := 1 + int(math.Round(g[geneEntrances]*float64(p.params.Entrances-1)))
	ents, err := roads.ChooseEntrances(p.boundary, pr.ref, wantGates, rcfg)
	if err != nil {
		return nil, err
	}

	net, cov, err := roads.BuildNetwork(pr.sk, rcfg, ents)
	if err != nil {
		return nil, err
	}

	blocks := subdiv.Blocks(pr.sk.Inset, net)
	els, pool, collars := infra.Place(blocks, net, p.boundary,
		infra.DefaultRequirements(p.boundary.Area()), p.terrain)

	target := p.params.TargetLotArea * lerp(g[geneLotArea], lotAreaMinMul, lotAreaMaxMul)
	aspectHi := math.Max(aspectMin+0.4, p.params.MaxLotAspect)
	scfg := subdiv.Config{
		TargetLotArea: target,
		MinLotArea:    target / 2,
		MaxLotArea:    target * 2,
		MaxAspect:     lerp(g[geneAspect], aspectMin, aspectHi),
		FrontageTol:   lerp(g[geneFrontageTol], frontageMin, frontageMax),
		Use:           p.params.LotUse,
	}
	cutSeed := p.params.Seed ^ int64(g[geneCutSeed]*float64(math.MaxInt32))
	lots, greens := subdiv.Subdivide(pool, net, scfg, rand.New(rand.NewSource(cutSeed)))
	greens = append(greens, collars...)

	// lots on unbuildable ground revert to green space
	kept := lots[:0]
	for _, lot := range lots {
		c := lot.Poly.Centroid()
		if !p.terrain.CanBuildOn(c.X, c.Y) {
			greens = append(greens, lot.Poly)
			continue
		}
		kept = append(kept, lot)
	}
	lots = kept

	pl := &plan.Plan{
		Boundary:  p.boundary,
		Buildable: pr.sk.Inset,
		Buffer:    p.params.Buffer,
		Net:       net,
		Lots:      lots,
		Greens:    greens,
		Infra:     els,
		Entrances: ents,
	}

	vs := p.rules.Evaluate(pl)
	vec := score.Evaluate(score.Input{Plan: pl, Violations: vs, Coverage: cov.Fraction})
	return &candidate{
		plan:       pl,
		coverage:   cov.Fraction,
		gapArea:    cov.GapArea,
		violations: vs,
		vec:        vec,
		fitness:    vec.Aggregate(p.params.Weights),
	}, nil
}

// roadConfig maps user params onto the road generator's knobs.
func (p *Planner) roadConfig() roads.Config {
	return roads.Config{
		Buffer:         p.params.Buffer,
		PrimaryWidth:   p.params.PrimaryRoadWidth,
		SecondaryWidth: p.params.SecondaryRoadWidth,
	}
}

func lerp(t, lo, hi float64) float64 {
	return lo + t*(hi-lo)
}

// unlerp inverts lerp, clamped to [0,1].
func unlerp(v, lo, hi float64) float64 {
	t := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, t))
}

func toPolygon(ring []Point) geom.Polygon {
	poly := geom.Polygon{Verts: make([]model2d.Coord, len(ring))}
	for i, pt := range ring {
		poly.Verts[i] = pt.coord()
	}
	return poly
}
