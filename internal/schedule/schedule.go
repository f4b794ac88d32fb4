// Package schedule derives construction work packages from a plan and
// estimates the build timeline by critical-path analysis.
package schedule

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/voidshard/parkgraph/internal/plan"
)

// WorkType names a kind of construction work.
type WorkType string

const (
	WorkClearing      WorkType = "clearing"
	WorkEarthworks    WorkType = "earthworks"
	WorkRoadPrimary   WorkType = "road-primary"
	WorkRoadSecondary WorkType = "road-secondary"
	WorkRoadAccess    WorkType = "road-access"
	WorkPond          WorkType = "detention-pond"
	WorkWaterPlant    WorkType = "water-plant"
	WorkWastePlant    WorkType = "wastewater-plant"
	WorkSubstation    WorkType = "substation"
	WorkLotGrading    WorkType = "lot-grading"
)

// Rate converts a work quantity into days: Setup fixed days plus PerUnit
// days per unit of quantity (m2 for areas, m for roads).
type Rate struct {
	Setup   float64
	PerUnit float64
}

// DefaultRates holds mid-range production rates per work type.
var DefaultRates = map[WorkType]Rate{
	WorkClearing:      {Setup: 5, PerUnit: 0.00008},
	WorkEarthworks:    {Setup: 10, PerUnit: 0.00035},
	WorkRoadPrimary:   {Setup: 7, PerUnit: 0.012},
	WorkRoadSecondary: {Setup: 4, PerUnit: 0.009},
	WorkRoadAccess:    {Setup: 2, PerUnit: 0.007},
	WorkPond:          {Setup: 8, PerUnit: 0.002},
	WorkWaterPlant:    {Setup: 45, PerUnit: 0.004},
	WorkWastePlant:    {Setup: 60, PerUnit: 0.004},
	WorkSubstation:    {Setup: 30, PerUnit: 0.003},
	WorkLotGrading:    {Setup: 3, PerUnit: 0.00012},
}

// Package is one schedulable unit of work.
type Package struct {
	ID        string
	Type      WorkType
	Quantity  float64
	Duration  float64 // days
	DependsOn []string

	// filled by Estimate
	Start  float64
	Finish float64
}

// Timeline is the forward-pass schedule.
type Timeline struct {
	Packages     []*Package
	TotalDays    float64
	CriticalPath []string // package IDs, in execution order
}

// ErrCyclicDependency is returned when the package graph has a cycle.
var ErrCyclicDependency = errors.New("schedule: cyclic dependency between work packages")

// Duration looks up the rate for the package type and applies it.
func Duration(t WorkType, quantity float64, rates map[WorkType]Rate) float64 {
	if rates == nil {
		rates = DefaultRates
	}
	r, ok := rates[t]
	if !ok {
		return 0
	}
	return r.Setup + r.PerUnit*quantity
}

// Build derives the standard package set from a plan. Output is
// deterministic: same plan, same packages in the same order.
func Build(p *plan.Plan, rates map[WorkType]Rate) []*Package {
	mk := func(id string, t WorkType, qty float64, deps ...string) *Package {
		return &Package{
			ID: id, Type: t, Quantity: qty,
			Duration:  Duration(t, qty, rates),
			DependsOn: deps,
		}
	}

	pkgs := []*Package{
		mk("clearing", WorkClearing, p.SiteArea()),
		mk("earthworks", WorkEarthworks, p.Buildable.Area(), "clearing"),
	}

	roadDeps := []string{"earthworks"}
	if p.Net != nil {
		if l := p.Net.TotalLength(plan.RoadPrimary); l > 0 {
			pkgs = append(pkgs, mk("roads-primary", WorkRoadPrimary, l, "earthworks"))
			roadDeps = []string{"roads-primary"}
		}
		if l := p.Net.TotalLength(plan.RoadSecondary); l > 0 {
			pkgs = append(pkgs, mk("roads-secondary", WorkRoadSecondary, l, roadDeps...))
		}
		if l := p.Net.TotalLength(plan.RoadAccess); l > 0 {
			pkgs = append(pkgs, mk("roads-access", WorkRoadAccess, l, roadDeps...))
		}
	}

	for i, el := range p.Infra {
		if !el.Placed {
			continue
		}
		id := fmt.Sprintf("infra-%d-%s", i, el.Kind)
		t, deps := infraWork(el.Kind, roadDeps)
		pkgs = append(pkgs, mk(id, t, el.Poly.Area(), deps...))
	}

	gradeDeps := roadDeps
	if p.Net != nil && p.Net.TotalLength(plan.RoadSecondary) > 0 {
		gradeDeps = []string{"roads-secondary"}
	}
	pkgs = append(pkgs, mk("lot-grading", WorkLotGrading, p.LotArea(), gradeDeps...))
	return pkgs
}

// infraWork maps a facility kind to its work type and dependencies.
// Ponds only need rough earthworks; plants want road access for heavy
// deliveries.
func infraWork(kind plan.InfraKind, roadDeps []string) (WorkType, []string) {
	switch kind {
	case plan.InfraPond:
		return WorkPond, []string{"earthworks"}
	case plan.InfraWaterPlant:
		return WorkWaterPlant, roadDeps
	case plan.InfraWastePlant:
		return WorkWastePlant, roadDeps
	case plan.InfraSubstation:
		return WorkSubstation, roadDeps
	}
	return WorkEarthworks, []string{"earthworks"}
}

// Estimate runs a forward pass over the dependency graph and extracts
// the critical path. Packages naming unknown dependencies are treated
// as if the dependency did not exist.
func Estimate(pkgs []*Package) (*Timeline, error) {
	byID := map[string]*Package{}
	for _, p := range pkgs {
		byID[p.ID] = p
	}

	// Kahn topological order
	indeg := map[string]int{}
	succ := map[string][]string{}
	for _, p := range pkgs {
		indeg[p.ID] = 0
	}
	for _, p := range pkgs {
		for _, d := range p.DependsOn {
			if _, ok := byID[d]; !ok {
				continue
			}
			indeg[p.ID]++
			succ[d] = append(succ[d], p.ID)
		}
	}
	var queue []string
	for _, p := range pkgs {
		if indeg[p.ID] == 0 {
			queue = append(queue, p.ID)
		}
	}
	sort.Strings(queue)

	critPred := map[string]string{}
	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		p := byID[id]
		start := 0.0
		for _, d := range p.DependsOn {
			dep, ok := byID[d]
			if !ok {
				continue
			}
			if dep.Finish > start {
				start = dep.Finish
				critPred[id] = d
			}
		}
		p.Start = start
		p.Finish = start + p.Duration

		next := append([]string{}, succ[id]...)
		sort.Strings(next)
		for _, s := range next {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(order) != len(pkgs) {
		return nil, ErrCyclicDependency
	}

	// the critical path ends at the latest-finishing package
	last := ""
	total := 0.0
	for _, p := range pkgs {
		if p.Finish > total || (p.Finish == total && (last == "" || p.ID < last)) {
			total = p.Finish
			last = p.ID
		}
	}
	var path []string
	for id := last; id != ""; id = critPred[id] {
		path = append(path, id)
		if math.Abs(byID[id].Start) < 1e-12 {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return &Timeline{Packages: pkgs, TotalDays: total, CriticalPath: path}, nil
}
