// Package plan holds the in-memory candidate layout shared by the
// generation, validation, scoring and scheduling stages.
package plan

import (
	"math"

	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
)

// RoadClass indicates the hierarchy level of a road segment.
type RoadClass string

const (
	RoadPrimary   RoadClass = "primary"
	RoadSecondary RoadClass = "secondary"
	RoadAccess    RoadClass = "access"
)

// Segment is one edge of the road network between two graph nodes.
type Segment struct {
	From, To int
	Class    RoadClass
	Width    float64
}

// Network is a planar graph of road segments over shared nodes.
type Network struct {
	Nodes    []model2d.Coord
	Segments []*Segment
}

// Length of a single segment.
func (n *Network) Length(s *Segment) float64 {
	return n.Nodes[s.From].Dist(n.Nodes[s.To])
}

// TotalLength of all segments, optionally filtered by class
// (empty class means everything).
func (n *Network) TotalLength(class RoadClass) float64 {
	total := 0.0
	for _, s := range n.Segments {
		if class != "" && s.Class != class {
			continue
		}
		total += n.Length(s)
	}
	return total
}

// Area consumed by road corridors (length x width per segment; junction
// overlap is ignored, which slightly overcounts).
func (n *Network) Area() float64 {
	total := 0.0
	for _, s := range n.Segments {
		total += n.Length(s) * s.Width
	}
	return total
}

// MinWidth returns the narrowest segment width of the given class, or
// of any class when class is empty.
func (n *Network) MinWidth(class RoadClass) float64 {
	best := math.Inf(1)
	for _, s := range n.Segments {
		if class != "" && s.Class != class {
			continue
		}
		if s.Width < best {
			best = s.Width
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// NearestDist returns the distance from p to the closest segment, and the
// index of that segment. Returns (+Inf, -1) on an empty network.
func (n *Network) NearestDist(p model2d.Coord) (float64, int) {
	best := math.Inf(1)
	idx := -1
	for i, s := range n.Segments {
		d := geom.PointSegDist(p, n.Nodes[s.From], n.Nodes[s.To])
		if d < best {
			best = d
			idx = i
		}
	}
	return best, idx
}

// Connected reports whether every node with at least one segment is
// reachable from every other such node.
func (n *Network) Connected() bool {
	if len(n.Segments) == 0 {
		return false
	}
	adj := map[int][]int{}
	for _, s := range n.Segments {
		adj[s.From] = append(adj[s.From], s.To)
		adj[s.To] = append(adj[s.To], s.From)
	}
	seen := map[int]bool{}
	queue := []int{n.Segments[0].From}
	seen[n.Segments[0].From] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nxt := range adj[cur] {
			if !seen[nxt] {
				seen[nxt] = true
				queue = append(queue, nxt)
			}
		}
	}
	return len(seen) == len(adj)
}

// AddNode appends a node, merging with an existing node closer than tol.
func (n *Network) AddNode(p model2d.Coord, tol float64) int {
	for i, q := range n.Nodes {
		if q.Dist(p) < tol {
			return i
		}
	}
	n.Nodes = append(n.Nodes, p)
	return len(n.Nodes) - 1
}

// AddSegment links two nodes; zero length segments are dropped.
func (n *Network) AddSegment(from, to int, class RoadClass, width float64) *Segment {
	if from == to {
		return nil
	}
	s := &Segment{From: from, To: to, Class: class, Width: width}
	n.Segments = append(n.Segments, s)
	return s
}

// InfraKind enumerates the discrete facility types we know how to place.
type InfraKind string

const (
	InfraPond       InfraKind = "detention-pond"
	InfraWaterPlant InfraKind = "water-plant"
	InfraWastePlant InfraKind = "wastewater-plant"
	InfraSubstation InfraKind = "substation"
)

// Infra is one placed (or unplaceable) facility element.
type Infra struct {
	Kind      InfraKind
	Poly      geom.Polygon
	Exclusion float64 // clearance radius other features must respect
	Placed    bool
	Reason    string // why placement failed, when Placed is false
}

// Lot is a single salable parcel.
type Lot struct {
	Poly     geom.Polygon
	Area     float64
	Aspect   float64 // OBB width:depth, >= 1
	Use      string  // industry-type tag from the parameter set
	Frontage int     // index of the access road segment, -1 if none
}

// Entrance records where the park connects to the outside reference road.
type Entrance struct {
	Point model2d.Coord
	Edge  int // boundary edge index
	Node  int // network node of the connector
}

// Plan is one complete candidate layout.
type Plan struct {
	Boundary  geom.Polygon
	Buildable geom.Polygon // boundary inset by the perimeter buffer
	Buffer    float64

	Net       *Network
	Lots      []*Lot
	Greens    []geom.Polygon
	Infra     []*Infra
	Entrances []*Entrance
}

// SiteArea is the full boundary area.
func (p *Plan) SiteArea() float64 {
	return p.Boundary.Area()
}

// LotArea is the summed area of all lots.
func (p *Plan) LotArea() float64 {
	total := 0.0
	for _, l := range p.Lots {
		total += l.Area
	}
	return total
}

// GreenArea is the summed area of residual open space plus the perimeter
// buffer ring, which stays unpaved landscaping.
func (p *Plan) GreenArea() float64 {
	total := 0.0
	for _, g := range p.Greens {
		total += g.Area()
	}
	if !p.Buildable.IsEmpty() {
		if ring := p.Boundary.Area() - p.Buildable.Area(); ring > 0 {
			total += ring
		}
	}
	return total
}

// InfraArea is the summed area of placed facility elements.
func (p *Plan) InfraArea() float64 {
	total := 0.0
	for _, f := range p.Infra {
		if f.Placed {
			total += f.Poly.Area()
		}
	}
	return total
}

// SalableFraction is lot area over site area.
func (p *Plan) SalableFraction() float64 {
	site := p.SiteArea()
	if site <= 0 {
		return 0
	}
	return p.LotArea() / site
}

// GreenFraction is green area over site area.
func (p *Plan) GreenFraction() float64 {
	site := p.SiteArea()
	if site <= 0 {
		return 0
	}
	return p.GreenArea() / site
}

// MeanAspect averages lot OBB aspect ratios; 0 when there are no lots.
func (p *Plan) MeanAspect() float64 {
	if len(p.Lots) == 0 {
		return 0
	}
	total := 0.0
	for _, l := range p.Lots {
		total += l.Aspect
	}
	return total / float64(len(p.Lots))
}
