package parkgraph

import (
	"encoding/json"
	"os"
)

// Layout is a finished site plan: roads, lots, green space, facilities
// and the supporting paperwork (score, violations, build timeline).
type Layout struct {
	// RunID uniquely identifies the planning run that produced this.
	RunID string

	// Seed reproduces this exact layout when fed back via Params.
	Seed int64

	Boundary   []Point
	Roads      []*Road
	Lots       []*Lot
	Greens     [][]Point    `json:",omitempty"`
	Facilities []*Facility  `json:",omitempty"`
	Entrances  []*Gate      `json:",omitempty"`
	Violations []*Violation `json:",omitempty"`
	Score      *ScoreVector `json:",omitempty"`
	Timeline   *Timeline    `json:",omitempty"`
	Stats      *LayoutStats `json:",omitempty"`
}

// JSON returns the layout as json.
func (l *Layout) JSON() ([]byte, error) {
	return json.Marshal(l)
}

// SaveJSON writes a json file to the given path.
func (l *Layout) SaveJSON(fpath string) error {
	data, err := l.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(fpath, data, 0644)
}

// Road is one straight stretch of roadway.
type Road struct {
	From  Point
	To    Point
	Class string // "primary", "secondary", "access"
	Width float64
}

// Lot is a salable parcel.
type Lot struct {
	Ring        []Point
	Area        float64
	Aspect      float64
	Use         string
	HasFrontage bool
}

// Facility is a piece of required site infrastructure: detention pond,
// water / wastewater plant, substation. Unplaced facilities carry the
// reason placement failed.
type Facility struct {
	Kind      string
	Ring      []Point `json:",omitempty"`
	Exclusion float64 `json:",omitempty"`
	Placed    bool
	Reason    string `json:",omitempty"`
}

// Gate is a site entrance on the boundary.
type Gate struct {
	At   Point
	Edge int // boundary edge index the gate sits on
}

// Violation is one failed compliance rule.
type Violation struct {
	Rule      string
	Severity  string // "hard" or "soft"
	Quantity  string
	Measured  float64
	Threshold float64
	Message   string `json:",omitempty"`
}

// ScoreVector grades the layout along seven dimensions, each in [0,1],
// plus the weighted Total used to rank candidates.
type ScoreVector struct {
	Compliance       float64
	Efficiency       float64
	LotQuality       float64
	Financial        float64
	Constructability float64
	Environmental    float64
	UtilityCoverage  float64
	Total            float64
}

// Timeline is the estimated construction schedule.
type Timeline struct {
	Packages     []*WorkPackage
	TotalDays    float64
	CriticalPath []string // package IDs in execution order
}

// WorkPackage is one schedulable unit of construction work.
type WorkPackage struct {
	ID        string
	Type      string
	Quantity  float64
	Duration  float64
	Start     float64
	Finish    float64
	DependsOn []string `json:",omitempty"`
}

// LayoutStats holds generic stats about the layout & the search that
// produced it.
type LayoutStats struct {
	SiteArea        float64
	SalableArea     float64
	SalableFraction float64
	GreenFraction   float64
	LotCount        int
	GreenCount      int
	RoadLength      map[string]float64 `json:",omitempty"`
	Coverage        float64
	CoverageGap     float64 // largest unserved pocket, m2
	Generations     int
	Evaluations     int
	ElapsedSeconds  float64
	StopReason      string
}
