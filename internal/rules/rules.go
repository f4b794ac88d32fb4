// Package rules evaluates a candidate plan against a data-driven table
// of compliance rules. Rules compare measured plan quantities against
// thresholds; the table ships with sane industrial defaults and can be
// replaced wholesale from YAML.
package rules

import (
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

// Severity splits rules into ones a plan must satisfy and ones it should.
type Severity string

const (
	Hard Severity = "hard"
	Soft Severity = "soft"
)

// Op is a comparison operator in a rule.
type Op string

const (
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpLT  Op = "<"
	OpEQ  Op = "=="
)

// Rule is one row of the compliance table.
type Rule struct {
	ID        string   `yaml:"id"`
	Quantity  string   `yaml:"quantity"`
	Op        Op       `yaml:"op"`
	Threshold float64  `yaml:"threshold"`
	Severity  Severity `yaml:"severity"`
	Message   string   `yaml:"message,omitempty"`
}

// Ruleset is a loaded compliance table.
type Ruleset struct {
	Rules []Rule `yaml:"rules"`
}

// Violation records one failed rule with the value that failed it.
type Violation struct {
	Rule      string
	Severity  Severity
	Quantity  string
	Measured  float64
	Threshold float64
	Message   string
}

// Quantities the evaluator knows how to measure from a plan.
const (
	QSalableFraction  = "salable.fraction"
	QGreenFraction    = "green.fraction"
	QLotMinArea       = "lot.min_area"
	QLotMaxAspect     = "lot.max_aspect"
	QLotFrontageFrac  = "lot.frontage_fraction"
	QLotCount         = "lot.count"
	QRoadMinWidth     = "road.min_width"
	QRoadLength       = "road.length"
	QEntranceCount    = "entrance.count"
	QInfraPlacedFrac  = "infra.placed_fraction"
	QInfraClearGap    = "infra.clearance_deficit"
	QNetworkConnected = "road.connected"
)

var knownQuantities = map[string]bool{
	QSalableFraction: true, QGreenFraction: true,
	QLotMinArea: true, QLotMaxAspect: true, QLotFrontageFrac: true,
	QLotCount: true, QRoadMinWidth: true, QRoadLength: true,
	QEntranceCount: true, QInfraPlacedFrac: true, QInfraClearGap: true,
	QNetworkConnected: true,
}

// Load parses a ruleset from YAML and rejects unknown quantities or
// operators so a typo in a rule table fails loudly, not silently.
func Load(r io.Reader) (*Ruleset, error) {
	rs := &Ruleset{}
	if err := yaml.NewDecoder(r).Decode(rs); err != nil {
		return nil, errors.Wrap(err, "decode ruleset")
	}
	for i, rule := range rs.Rules {
		if rule.ID == "" {
			return nil, errors.Errorf("rule %d: missing id", i)
		}
		if !knownQuantities[rule.Quantity] {
			return nil, errors.Errorf("rule %s: unknown quantity %q", rule.ID, rule.Quantity)
		}
		switch rule.Op {
		case OpGTE, OpLTE, OpGT, OpLT, OpEQ:
		default:
			return nil, errors.Errorf("rule %s: unknown operator %q", rule.ID, rule.Op)
		}
		switch rule.Severity {
		case Hard, Soft:
		default:
			return nil, errors.Errorf("rule %s: unknown severity %q", rule.ID, rule.Severity)
		}
	}
	return rs, nil
}

// LoadFile reads a YAML rule table from disk.
func LoadFile(path string) (*Ruleset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ruleset")
	}
	defer f.Close()
	return Load(f)
}

// Default is the standard industrial-park compliance table.
func Default() *Ruleset {
	return &Ruleset{Rules: []Rule{
		{ID: "green-min", Quantity: QGreenFraction, Op: OpGTE, Threshold: 0.05, Severity: Hard,
			Message: "at least 5% of the site must remain green"},
		{ID: "lot-min-area", Quantity: QLotMinArea, Op: OpGTE, Threshold: 500, Severity: Hard,
			Message: "lots under 500 m2 are not salable"},
		{ID: "lot-aspect", Quantity: QLotMaxAspect, Op: OpLTE, Threshold: 6, Severity: Hard,
			Message: "sliver lots are unbuildable"},
		{ID: "road-width", Quantity: QRoadMinWidth, Op: OpGTE, Threshold: 7, Severity: Hard,
			Message: "roads must allow two-way truck traffic"},
		{ID: "entrance", Quantity: QEntranceCount, Op: OpGTE, Threshold: 1, Severity: Hard,
			Message: "the site needs at least one entrance"},
		{ID: "road-connected", Quantity: QNetworkConnected, Op: OpEQ, Threshold: 1, Severity: Hard,
			Message: "every road must be reachable from every other"},
		{ID: "infra-clearance", Quantity: QInfraClearGap, Op: OpLTE, Threshold: 0, Severity: Hard,
			Message: "lots encroach on a facility exclusion zone"},
		{ID: "salable-min", Quantity: QSalableFraction, Op: OpGTE, Threshold: 0.6, Severity: Soft,
			Message: "low salable fraction hurts project economics"},
		{ID: "green-max", Quantity: QGreenFraction, Op: OpLTE, Threshold: 0.25, Severity: Soft,
			Message: "excess green space is wasted land"},
		{ID: "frontage", Quantity: QLotFrontageFrac, Op: OpGTE, Threshold: 0.9, Severity: Soft,
			Message: "landlocked lots are hard to sell"},
		{ID: "infra-placed", Quantity: QInfraPlacedFrac, Op: OpEQ, Threshold: 1, Severity: Soft,
			Message: "some required facilities could not be placed"},
	}}
}

// Measure extracts every known quantity from the plan. Pure; the same
// plan always yields the same numbers.
func Measure(p *plan.Plan) map[string]float64 {
	m := map[string]float64{
		QSalableFraction:  p.SalableFraction(),
		QGreenFraction:    p.GreenFraction(),
		QLotCount:         float64(len(p.Lots)),
		QEntranceCount:    float64(len(p.Entrances)),
		QRoadLength:       0,
		QRoadMinWidth:     0,
		QLotMinArea:       0,
		QLotMaxAspect:     0,
		QLotFrontageFrac:  0,
		QInfraPlacedFrac:  1,
		QInfraClearGap:    0,
		QNetworkConnected: 0,
	}
	if p.Net != nil {
		m[QRoadLength] = p.Net.TotalLength("")
		m[QRoadMinWidth] = p.Net.MinWidth("")
		if p.Net.Connected() {
			m[QNetworkConnected] = 1
		}
	}
	if len(p.Lots) > 0 {
		minArea := math.Inf(1)
		maxAspect := 0.0
		fronted := 0
		for _, l := range p.Lots {
			minArea = math.Min(minArea, l.Area)
			maxAspect = math.Max(maxAspect, l.Aspect)
			if l.Frontage >= 0 {
				fronted++
			}
		}
		m[QLotMinArea] = minArea
		m[QLotMaxAspect] = maxAspect
		m[QLotFrontageFrac] = float64(fronted) / float64(len(p.Lots))
	}
	if len(p.Infra) > 0 {
		placed := 0
		deficit := 0.0
		for _, el := range p.Infra {
			if !el.Placed {
				continue
			}
			placed++
			if el.Exclusion > 0 {
				gap := el.Exclusion - nearestLot(el.Poly, p.Lots)
				deficit = math.Max(deficit, gap)
			}
		}
		m[QInfraPlacedFrac] = float64(placed) / float64(len(p.Infra))
		m[QInfraClearGap] = deficit
	}
	return m
}

// Evaluate runs every rule against the plan and returns violations in
// table order, hard before soft.
func (rs *Ruleset) Evaluate(p *plan.Plan) []Violation {
	m := Measure(p)
	out := []Violation{}
	for _, rule := range rs.Rules {
		got, ok := m[rule.Quantity]
		if !ok {
			continue
		}
		if holds(rule.Op, got, rule.Threshold) {
			continue
		}
		out = append(out, Violation{
			Rule:      rule.ID,
			Severity:  rule.Severity,
			Quantity:  rule.Quantity,
			Measured:  got,
			Threshold: rule.Threshold,
			Message:   rule.Message,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity == Hard && out[j].Severity == Soft
	})
	return out
}

// CountHard tallies the hard violations in a slice.
func CountHard(vs []Violation) int {
	n := 0
	for _, v := range vs {
		if v.Severity == Hard {
			n++
		}
	}
	return n
}

func holds(op Op, got, want float64) bool {
	switch op {
	case OpGTE:
		return got >= want-1e-9
	case OpLTE:
		return got <= want+1e-9
	case OpGT:
		return got > want
	case OpLT:
		return got < want
	case OpEQ:
		return math.Abs(got-want) < 1e-9
	}
	return false
}

// nearestLot is the closest approach between the facility footprint and
// any lot boundary.
func nearestLot(fp geom.Polygon, lots []*plan.Lot) float64 {
	best := math.Inf(1)
	for _, l := range lots {
		for _, v := range fp.Verts {
			if d := l.Poly.DistToBoundary(v); d < best {
				best = d
			}
		}
		for _, v := range l.Poly.Verts {
			if d := fp.DistToBoundary(v); d < best {
				best = d
			}
		}
	}
	return best
}
