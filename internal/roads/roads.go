// Package roads generates the hierarchical road network for a site: a
// primary backbone along the medial axis of the buffered interior, secondary
// ribs branching from it, and entrance connectors to the outside world.
package roads

import (
	"github.com/pkg/errors"
)

var (
	// ErrInfeasibleGeometry means the boundary interior after buffer
	// removal has no usable area; nothing can be generated from it.
	ErrInfeasibleGeometry = errors.New("buildable interior has zero area")

	// ErrNoValidFrontage means no boundary segment meets the minimum
	// clearance against the reference line for an entrance.
	ErrNoValidFrontage = errors.New("no boundary segment offers valid frontage")
)

// Config holds the numeric targets the generator works to.
type Config struct {
	// Perimeter buffer stripped from the boundary before anything is built.
	Buffer float64

	// Right-of-way widths by class.
	PrimaryWidth   float64
	SecondaryWidth float64

	// Spacing between secondary ribs along the primary backbone.
	RibSpacing float64

	// Max lateral distance any buildable point should be from a road.
	CoverageRadius float64

	// Boundary sampling interval for the medial axis approximation.
	SampleStep float64

	// Skeleton leaves shorter than this are pruned.
	MinSpur float64

	// Ribs shorter than this are not worth a road.
	MinRibLen float64

	// Minimum frontage length for an entrance candidate.
	MinFrontage float64
}

// withDefaults fills zero fields with workable values.
func (c Config) withDefaults() Config {
	if c.PrimaryWidth <= 0 {
		c.PrimaryWidth = 24
	}
	if c.SecondaryWidth <= 0 {
		c.SecondaryWidth = 16
	}
	if c.Buffer <= 0 {
		c.Buffer = 10
	}
	if c.RibSpacing <= 0 {
		c.RibSpacing = 150
	}
	if c.CoverageRadius <= 0 {
		c.CoverageRadius = c.RibSpacing
	}
	if c.SampleStep <= 0 {
		c.SampleStep = 25
	}
	if c.MinSpur <= 0 {
		c.MinSpur = c.RibSpacing / 2
	}
	if c.MinRibLen <= 0 {
		c.MinRibLen = c.SecondaryWidth * 2
	}
	if c.MinFrontage <= 0 {
		c.MinFrontage = c.PrimaryWidth * 2
	}
	return c
}
