package parkgraph

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model2d"
)

// Params holds configuration for a given site.
// Many settings have workable defaults; the boundary is the only thing
// you really must supply. It's probably safer to set most ..
type Params struct {
	// Boundary is the site perimeter as an ordered ring of x,y metres.
	// Required. Winding order doesn't matter, we fix it up.
	Boundary []Point `validate:"required,min=3,dive"`

	// Buffer is the no-build setback inward from the boundary, metres.
	Buffer float64 `validate:"gte=0"`

	// Width of the primary (spine) roads. Should fit two trucks.
	PrimaryRoadWidth float64 `validate:"gte=0"`

	// Width of the secondary (rib) roads.
	SecondaryRoadWidth float64 `validate:"gte=0"`

	// TargetLotArea is the lot size we aim for, m2. The optimizer is
	// allowed to drift around this to find better layouts.
	TargetLotArea float64 `validate:"gte=0"`

	// MaxLotAspect caps how elongated a lot may be.
	MaxLotAspect float64 `validate:"gte=0"`

	// Entrances is how many site gates we want. Best effort; narrow
	// frontage can yield fewer.
	Entrances int `validate:"gte=0,lte=8"`

	// RefLine is the external road the site connects to, as a polyline in
	// the same coordinate frame as the boundary. Entrances are placed on
	// boundary edges facing it. Optional: without one, gates align
	// against an assumed frontage road outside the longest boundary edge.
	RefLine []Point `validate:"omitempty,min=2,dive"`

	// LotUse tags every salable lot, eg. "industrial", "logistics".
	LotUse string

	// Weights reorders the seven scoring dimensions. Uniform if empty.
	// See ScoreVector for the dimension order.
	Weights []float64 `validate:"omitempty,len=7"`

	// Seed for rng (random seed chosen if 0).
	Seed int64
}

// withDefaults fills in anything the caller left zero.
func (p *Params) withDefaults() {
	if p.Buffer <= 0 {
		p.Buffer = 24
	}
	if p.PrimaryRoadWidth <= 0 {
		p.PrimaryRoadWidth = 16
	}
	if p.SecondaryRoadWidth <= 0 {
		p.SecondaryRoadWidth = 10
	}
	if p.TargetLotArea <= 0 {
		p.TargetLotArea = 2000
	}
	if p.MaxLotAspect <= 0 {
		p.MaxLotAspect = 4
	}
	if p.Entrances <= 0 {
		p.Entrances = 2
	}
	if p.LotUse == "" {
		p.LotUse = "industrial"
	}
}

// OptimizeConfig tunes the layout search. The defaults trade quality
// against runtime about evenly; crank Population / MaxGenerations for
// better plans, drop them for faster answers.
type OptimizeConfig struct {
	Population       int     `validate:"gte=0"`
	MaxGenerations   int     `validate:"gte=0"`
	StagnationWindow int     `validate:"gte=0"`
	CrossoverRate    float64 `validate:"gte=0,lte=1"`
	MutationRate     float64 `validate:"gte=0,lte=1"`
	Parallelism      int     `validate:"gte=0"`

	// Progress, if set, is called once per generation with search
	// telemetry. Must be fast; it runs on the search goroutine.
	Progress func(ProgressUpdate)

	// Logger, if set, receives per-generation debug logs. The engine
	// is silent without one.
	Logger *slog.Logger
}

// ProgressUpdate is one generation's worth of search telemetry.
type ProgressUpdate struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	HardViolations int     `json:"hard_violations"`
	Evaluations    int     `json:"evaluations"`
}

// Point is an x,y position in metres.
type Point struct {
	X float64 `json:"x" validate:"gte=-1e7,lte=1e7"`
	Y float64 `json:"y" validate:"gte=-1e7,lte=1e7"`
}

func (p Point) coord() model2d.Coord {
	return model2d.XY(p.X, p.Y)
}

var validate = validator.New()

// checkParams validates user configuration before we spend any time on it.
func checkParams(p *Params) error {
	if p == nil {
		return errors.New("params required")
	}
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(err, "invalid params")
	}
	return nil
}
