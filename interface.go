package parkgraph

// Terrain tells parkgraph roughly what the ground is doing at a given
// location. We only have two questions;
// - how high is it? (drives detention pond placement & earthworks)
// - can I build on it? (wetland, rock outcrop, easement etc)
type Terrain interface {
	// ElevationAt returns the ground height in metres at x,y.
	ElevationAt(x, y float64) float64

	// CanBuildOn is false for spots that must stay untouched.
	CanBuildOn(x, y float64) bool
}

// FlatTerrain is the Terrain used when none is given: dead level and
// buildable everywhere.
type FlatTerrain struct{}

func (FlatTerrain) ElevationAt(x, y float64) float64 { return 0 }
func (FlatTerrain) CanBuildOn(x, y float64) bool     { return true }
