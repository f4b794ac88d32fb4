package roads

import (
	"math"

	"github.com/boljen/go-bitmap"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

// Coverage summarises how well the network reaches the buildable interior.
type Coverage struct {
	// Fraction of interior cells within radius of some road segment.
	Fraction float64

	// Largest distance from any interior cell to the nearest segment.
	MaxGap float64

	// GapArea is the size of the largest contiguous uncovered pocket, m2.
	// A big pocket means a whole corner of the site is unserved, which one
	// more rib would fix; scattered single cells are just raster noise.
	GapArea float64
}

// auditCoverage rasterises the buildable area at half the coverage radius
// into interior and covered bitmaps, then reads the coverage fraction and
// the largest uncovered pocket off them.
func auditCoverage(inset geom.Polygon, net *plan.Network, radius float64) *Coverage {
	lo, hi := inset.Bounds()
	cell := radius / 2
	if cell <= 0 {
		return &Coverage{Fraction: 1}
	}
	nx := int(math.Ceil((hi.X-lo.X)/cell)) + 1
	ny := int(math.Ceil((hi.Y-lo.Y)/cell)) + 1
	if nx <= 0 || ny <= 0 {
		return &Coverage{Fraction: 1}
	}

	inside := bitmap.New(nx * ny)
	covered := bitmap.New(nx * ny)

	maxGap := 0.0
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			p := geom.Pt(lo.X+(float64(ix)+0.5)*cell, lo.Y+(float64(iy)+0.5)*cell)
			if !inset.Contains(p) {
				continue
			}
			i := iy*nx + ix
			inside.Set(i, true)

			d, _ := net.NearestDist(p)
			if d <= radius {
				covered.Set(i, true)
			}
			if d > maxGap && !math.IsInf(d, 1) {
				maxGap = d
			}
		}
	}

	insideCount, coveredCount := 0, 0
	for i := 0; i < nx*ny; i++ {
		if !inside.Get(i) {
			continue
		}
		insideCount++
		if covered.Get(i) {
			coveredCount++
		}
	}
	if insideCount == 0 {
		return &Coverage{Fraction: 1}
	}

	return &Coverage{
		Fraction: float64(coveredCount) / float64(insideCount),
		MaxGap:   maxGap,
		GapArea:  float64(largestPocket(inside, covered, nx, ny)) * cell * cell,
	}
}

// largestPocket floods the uncovered interior cells (4-connected) and
// returns the biggest cluster's cell count.
func largestPocket(inside, covered bitmap.Bitmap, nx, ny int) int {
	seen := bitmap.New(nx * ny)
	gap := func(i int) bool { return inside.Get(i) && !covered.Get(i) }

	biggest := 0
	for start := 0; start < nx*ny; start++ {
		if seen.Get(start) || !gap(start) {
			continue
		}
		size := 0
		queue := []int{start}
		seen.Set(start, true)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			size++
			cx, cy := cur%nx, cur/nx
			for _, nb := range [4][2]int{{cx - 1, cy}, {cx + 1, cy}, {cx, cy - 1}, {cx, cy + 1}} {
				if nb[0] < 0 || nb[0] >= nx || nb[1] < 0 || nb[1] >= ny {
					continue
				}
				i := nb[1]*nx + nb[0]
				if seen.Get(i) || !gap(i) {
					continue
				}
				seen.Set(i, true)
				queue = append(queue, i)
			}
		}
		if size > biggest {
			biggest = size
		}
	}
	return biggest
}
