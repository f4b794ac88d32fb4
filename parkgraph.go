// Package parkgraph lays out industrial parks: given a site boundary it
// generates a road network, salable lots, green space and required
// facilities, then searches over layout variants for one that scores
// well and breaks no compliance rules.
package parkgraph

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/voidshard/parkgraph/internal/evolve"
	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/roads"
	"github.com/voidshard/parkgraph/internal/rules"
	"github.com/voidshard/parkgraph/internal/schedule"
)

var (
	// ErrInfeasibleGeometry means the boundary minus the perimeter
	// buffer leaves nothing to build on.
	ErrInfeasibleGeometry = roads.ErrInfeasibleGeometry

	// ErrNoValidFrontage means no stretch of boundary can host an
	// entrance.
	ErrNoValidFrontage = roads.ErrNoValidFrontage

	// ErrCyclicDependency means a custom work package graph loops.
	ErrCyclicDependency = schedule.ErrCyclicDependency
)

// Planner holds the site configuration & runs layout searches against it.
type Planner struct {
	params  *Params
	opt     *OptimizeConfig
	terrain Terrain
	rules   *rules.Ruleset

	boundary geom.Polygon
}

// New creates a Planner for a site. Terrain may be nil for a flat,
// fully buildable site. Optimization settings may be nil for defaults.
func New(params *Params, opt *OptimizeConfig, t Terrain) (*Planner, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}
	params.withDefaults()
	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}
	if t == nil {
		t = FlatTerrain{}
	}
	if opt == nil {
		opt = &OptimizeConfig{}
	}

	boundary := toPolygon(params.Boundary)
	if !boundary.IsSimple() {
		return nil, errors.New("boundary ring self-intersects")
	}
	boundary.EnsureCCW()

	return &Planner{
		params:   params,
		opt:      opt,
		terrain:  t,
		rules:    rules.Default(),
		boundary: boundary,
	}, nil
}

// LoadRules replaces the default compliance table with one read from a
// YAML file.
func (p *Planner) LoadRules(fpath string) error {
	rs, err := rules.LoadFile(fpath)
	if err != nil {
		return err
	}
	p.rules = rs
	return nil
}

// SetRulesYAML replaces the default compliance table with YAML read
// from r.
func (p *Planner) SetRulesYAML(r io.Reader) error {
	rs, err := rules.Load(r)
	if err != nil {
		return err
	}
	p.rules = rs
	return nil
}

// Plan runs the layout search & returns the best layout found.
// Cancelling the context stops the search early and returns the best
// layout so far, if any candidate decoded at all.
func (p *Planner) Plan(ctx context.Context) (*Layout, error) {
	sk, err := roads.BuildSkeleton(p.boundary, p.roadConfig())
	if err != nil {
		return nil, err
	}

	pr := newProblem(p, sk)
	started := time.Now()

	var onProgress func(evolve.Progress)
	if p.opt.Progress != nil || p.opt.Logger != nil {
		cb := p.opt.Progress
		log := p.opt.Logger
		onProgress = func(ev evolve.Progress) {
			if log != nil {
				log.Debug("generation done",
					"generation", ev.Generation,
					"best_fitness", ev.BestFitness,
					"hard_violations", ev.BestHard,
					"evaluations", ev.Evaluations,
				)
			}
			if cb != nil {
				cb(ProgressUpdate{
					Generation:     ev.Generation,
					BestFitness:    ev.BestFitness,
					HardViolations: ev.BestHard,
					Evaluations:    ev.Evaluations,
				})
			}
		}
	}

	res, err := evolve.Run(ctx, pr, evolve.Config{
		Population:       p.opt.Population,
		MaxGenerations:   p.opt.MaxGenerations,
		StagnationWindow: p.opt.StagnationWindow,
		CrossoverRate:    p.opt.CrossoverRate,
		MutationRate:     p.opt.MutationRate,
		Parallelism:      p.opt.Parallelism,
		Seed:             p.params.Seed,
	}, onProgress)
	if err != nil {
		return nil, err
	}

	// re-decode the winner for the full plan, not just its scores
	best, err := pr.decode(res.Best.Genome)
	if err != nil {
		return nil, errors.Wrap(err, "no feasible layout found")
	}

	pkgs := schedule.Build(best.plan, nil)
	tl, err := schedule.Estimate(pkgs)
	if err != nil {
		return nil, err
	}

	l := newLayout(p, best, res, tl)
	l.RunID = uuid.NewString()
	l.Stats.ElapsedSeconds = time.Since(started).Seconds()
	if p.opt.Logger != nil {
		p.opt.Logger.Info("plan complete",
			"run_id", l.RunID,
			"lots", len(l.Lots),
			"salable_fraction", l.Stats.SalableFraction,
			"stop", l.Stats.StopReason,
		)
	}
	return l, nil
}
