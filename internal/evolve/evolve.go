// Package evolve is a small NSGA-II style multi-objective genetic
// optimizer over fixed-length real genomes. It knows nothing about site
// plans; callers supply a Problem that decodes and scores genomes.
package evolve

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Genome is a fixed-length vector of genes, each in [0,1].
type Genome []float64

// Clone returns an independent copy.
func (g Genome) Clone() Genome {
	return append(Genome{}, g...)
}

// Evaluation is the outcome of decoding and scoring one genome.
// Objectives are maximized. HardViolations ranks feasibility: any genome
// with fewer hard violations beats any genome with more, regardless of
// objectives. A decode failure is reported as maximally unfit via Unfit.
type Evaluation struct {
	Objectives     []float64
	HardViolations int
	Fitness        float64 // scalar aggregate, used for best-pick and stagnation
}

// Unfit is the evaluation assigned to genomes that fail to decode.
func Unfit(nObjectives int) Evaluation {
	return Evaluation{
		Objectives:     make([]float64, nObjectives),
		HardViolations: math.MaxInt32,
		Fitness:        math.Inf(-1),
	}
}

// Problem is the search problem being optimized.
type Problem interface {
	// GenomeLen is the number of genes.
	GenomeLen() int
	// Objectives is the number of objective dimensions.
	Objectives() int
	// Evaluate decodes and scores one genome. Implementations must be
	// safe for concurrent use and deterministic per genome.
	Evaluate(ctx context.Context, g Genome) Evaluation
	// Seed may return a non-random starting genome for slot i of the
	// initial population, or nil to use a random one.
	Seed(i int, rng *rand.Rand) Genome
}

// Config tunes the search.
type Config struct {
	Population       int
	MaxGenerations   int
	StagnationWindow int // stop after this many generations without improvement
	CrossoverRate    float64
	MutationRate     float64
	Elite            int
	TournamentK      int
	Parallelism      int // concurrent evaluations, 0 = population size
	Seed             int64
}

func (c Config) withDefaults() Config {
	if c.Population <= 0 {
		c.Population = 48
	}
	if c.MaxGenerations <= 0 {
		c.MaxGenerations = 60
	}
	if c.StagnationWindow <= 0 {
		c.StagnationWindow = 12
	}
	if c.CrossoverRate <= 0 {
		c.CrossoverRate = 0.9
	}
	if c.MutationRate <= 0 {
		c.MutationRate = 0.2
	}
	if c.Elite <= 0 {
		c.Elite = 2
	}
	if c.TournamentK <= 0 {
		c.TournamentK = 2
	}
	if c.Parallelism <= 0 {
		c.Parallelism = c.Population
	}
	return c
}

// Individual is one member of the population.
type Individual struct {
	Genome Genome
	Eval   Evaluation

	rank  int
	crowd float64
}

// Progress is reported to the optional callback once per generation.
type Progress struct {
	Generation  int
	BestFitness float64
	BestHard    int
	FrontSize   int
	Evaluations int
}

// StopReason says why the run ended.
type StopReason string

const (
	StopGenerations StopReason = "generation-cap"
	StopStagnation  StopReason = "stagnation"
	StopCancelled   StopReason = "cancelled"
)

// Result of a run.
type Result struct {
	// Best is the feasibility-first fittest individual seen.
	Best *Individual
	// Front is the final first non-dominated front, crowding-sorted.
	Front []*Individual
	Generations int
	Evaluations int
	Stop        StopReason
}

var errEmptyGenome = errors.New("evolve: problem reports zero-length genome")

// Run executes the search. Cancelling the context stops the run early
// and returns the best individual found so far.
func Run(ctx context.Context, p Problem, cfg Config, onProgress func(Progress)) (*Result, error) {
	if p.GenomeLen() <= 0 {
		return nil, errEmptyGenome
	}
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	pop := make([]*Individual, cfg.Population)
	for i := range pop {
		g := p.Seed(i, rng)
		if g == nil {
			g = randomGenome(p.GenomeLen(), rng)
		}
		pop[i] = &Individual{Genome: g}
	}

	res := &Result{Stop: StopGenerations}
	evaluate(ctx, p, cfg, pop)
	res.Evaluations += len(pop)
	rankPopulation(pop)
	res.Best = betterOf(nil, fittest(pop))

	sinceImproved := 0
	for gen := 1; gen <= cfg.MaxGenerations; gen++ {
		if ctx.Err() != nil {
			res.Stop = StopCancelled
			break
		}
		kids := breed(pop, cfg, rng)
		evaluate(ctx, p, cfg, kids)
		res.Evaluations += len(kids)
		if ctx.Err() != nil {
			// partial evaluations are unreliable, discard the brood
			res.Stop = StopCancelled
			break
		}

		pop = selectNext(append(pop, kids...), cfg.Population)
		res.Generations = gen

		prev := res.Best
		res.Best = betterOf(res.Best, fittest(pop))
		if res.Best == prev {
			sinceImproved++
		} else {
			sinceImproved = 0
		}

		if onProgress != nil {
			onProgress(Progress{
				Generation:  gen,
				BestFitness: res.Best.Eval.Fitness,
				BestHard:    res.Best.Eval.HardViolations,
				FrontSize:   frontSize(pop),
				Evaluations: res.Evaluations,
			})
		}
		if sinceImproved >= cfg.StagnationWindow {
			res.Stop = StopStagnation
			break
		}
	}

	res.Front = firstFront(pop)
	if res.Best == nil {
		return nil, errors.New("evolve: no individual evaluated")
	}
	return res, nil
}

func randomGenome(n int, rng *rand.Rand) Genome {
	g := make(Genome, n)
	for i := range g {
		g[i] = rng.Float64()
	}
	return g
}

// evaluate scores every individual concurrently. Results land by index,
// so concurrency never perturbs determinism.
func evaluate(ctx context.Context, p Problem, cfg Config, pop []*Individual) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Parallelism)
	for _, ind := range pop {
		ind := ind
		eg.Go(func() error {
			if ctx.Err() != nil {
				ind.Eval = Unfit(p.Objectives())
				return nil
			}
			ind.Eval = p.Evaluate(ctx, ind.Genome)
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors
}

// dominates implements feasibility-first Pareto domination: fewer hard
// violations always wins; at equal feasibility, a must be no worse in
// every objective and better in at least one.
func dominates(a, b *Individual) bool {
	if a.Eval.HardViolations != b.Eval.HardViolations {
		return a.Eval.HardViolations < b.Eval.HardViolations
	}
	better := false
	for i, av := range a.Eval.Objectives {
		bv := b.Eval.Objectives[i]
		if av < bv {
			return false
		}
		if av > bv {
			better = true
		}
	}
	return better
}

// rankPopulation assigns non-domination ranks and crowding distances.
func rankPopulation(pop []*Individual) {
	fronts := sortFronts(pop)
	for _, f := range fronts {
		crowding(f)
	}
}

// sortFronts is the fast non-dominated sort.
func sortFronts(pop []*Individual) [][]*Individual {
	n := len(pop)
	domCount := make([]int, n)
	dominated := make([][]int, n)
	var first []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if dominates(pop[i], pop[j]) {
				dominated[i] = append(dominated[i], j)
			} else if dominates(pop[j], pop[i]) {
				domCount[i]++
			}
		}
		if domCount[i] == 0 {
			pop[i].rank = 0
			first = append(first, i)
		}
	}

	var fronts [][]*Individual
	cur := first
	rank := 0
	for len(cur) > 0 {
		f := make([]*Individual, 0, len(cur))
		var next []int
		for _, i := range cur {
			f = append(f, pop[i])
			for _, j := range dominated[i] {
				domCount[j]--
				if domCount[j] == 0 {
					pop[j].rank = rank + 1
					next = append(next, j)
				}
			}
		}
		fronts = append(fronts, f)
		cur = next
		rank++
	}
	return fronts
}

// crowding computes the crowding distance within one front.
func crowding(front []*Individual) {
	n := len(front)
	for _, ind := range front {
		ind.crowd = 0
	}
	if n < 3 {
		for _, ind := range front {
			ind.crowd = math.Inf(1)
		}
		return
	}
	nObj := len(front[0].Eval.Objectives)
	for m := 0; m < nObj; m++ {
		m := m
		sort.SliceStable(front, func(i, j int) bool {
			return front[i].Eval.Objectives[m] < front[j].Eval.Objectives[m]
		})
		lo := front[0].Eval.Objectives[m]
		hi := front[n-1].Eval.Objectives[m]
		front[0].crowd = math.Inf(1)
		front[n-1].crowd = math.Inf(1)
		if hi-lo < 1e-12 {
			continue
		}
		for i := 1; i < n-1; i++ {
			gap := front[i+1].Eval.Objectives[m] - front[i-1].Eval.Objectives[m]
			front[i].crowd += gap / (hi - lo)
		}
	}
}

// selectNext keeps the best `keep` of a merged parent+child population:
// whole fronts while they fit, then the most crowded of the split front.
func selectNext(merged []*Individual, keep int) []*Individual {
	fronts := sortFronts(merged)
	out := make([]*Individual, 0, keep)
	for _, f := range fronts {
		crowding(f)
		if len(out)+len(f) <= keep {
			out = append(out, f...)
			continue
		}
		sort.SliceStable(f, func(i, j int) bool { return f[i].crowd > f[j].crowd })
		out = append(out, f[:keep-len(out)]...)
		break
	}
	return out
}

// breed produces a full brood of children from the current population.
func breed(pop []*Individual, cfg Config, rng *rand.Rand) []*Individual {
	kids := make([]*Individual, 0, cfg.Population)

	// elites carry over untouched
	elite := append([]*Individual{}, pop...)
	sort.SliceStable(elite, func(i, j int) bool { return less(elite[j], elite[i]) })
	for i := 0; i < cfg.Elite && i < len(elite); i++ {
		kids = append(kids, &Individual{Genome: elite[i].Genome.Clone()})
	}

	for len(kids) < cfg.Population {
		a := tournament(pop, cfg.TournamentK, rng)
		b := tournament(pop, cfg.TournamentK, rng)
		child := crossover(a.Genome, b.Genome, cfg.CrossoverRate, rng)
		mutate(child, cfg.MutationRate, rng)
		kids = append(kids, &Individual{Genome: child})
	}
	return kids
}

// less orders individuals for selection: rank, then crowding, then
// scalar fitness as a final tiebreak.
func less(a, b *Individual) bool {
	if a.rank != b.rank {
		return a.rank > b.rank
	}
	if a.crowd != b.crowd {
		return a.crowd < b.crowd
	}
	return a.Eval.Fitness < b.Eval.Fitness
}

func tournament(pop []*Individual, k int, rng *rand.Rand) *Individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < k; i++ {
		c := pop[rng.Intn(len(pop))]
		if less(best, c) {
			best = c
		}
	}
	return best
}

// crossover is uniform per-gene: each gene comes from either parent.
func crossover(a, b Genome, rate float64, rng *rand.Rand) Genome {
	child := a.Clone()
	if rng.Float64() >= rate {
		return child
	}
	for i := range child {
		if rng.Float64() < 0.5 {
			child[i] = b[i]
		}
	}
	return child
}

// mutate resamples a single random gene with probability rate.
func mutate(g Genome, rate float64, rng *rand.Rand) {
	if rng.Float64() >= rate || len(g) == 0 {
		return
	}
	g[rng.Intn(len(g))] = rng.Float64()
}

// fittest is the feasibility-first best of a ranked population.
func fittest(pop []*Individual) *Individual {
	var best *Individual
	for _, ind := range pop {
		best = betterOf(best, ind)
	}
	return best
}

// betterOf keeps a unless b is strictly fitter: fewer hard violations,
// or equal violations and higher scalar fitness.
func betterOf(a, b *Individual) *Individual {
	if b == nil {
		return a
	}
	if a == nil {
		return b
	}
	if b.Eval.HardViolations != a.Eval.HardViolations {
		if b.Eval.HardViolations < a.Eval.HardViolations {
			return b
		}
		return a
	}
	if b.Eval.Fitness > a.Eval.Fitness {
		return b
	}
	return a
}

func firstFront(pop []*Individual) []*Individual {
	fronts := sortFronts(pop)
	if len(fronts) == 0 {
		return nil
	}
	f := fronts[0]
	crowding(f)
	sort.SliceStable(f, func(i, j int) bool { return f[i].crowd > f[j].crowd })
	return f
}

func frontSize(pop []*Individual) int {
	n := 0
	for _, ind := range pop {
		if ind.rank == 0 {
			n++
		}
	}
	return n
}
