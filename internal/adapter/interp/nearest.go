package interp

import (
	"math"

	"go.ngs.io/climate-grid/internal/domain"
)

// MinSamples is the fewest valid samples a grid is built from.
const MinSamples = 4

// Sample is one station value at a coordinate.
type Sample struct {
	Lat   float64
	Lon   float64
	Value float64
}

// NearestNeighbor assigns every cell of the (xAxis, yAxis) grid the value of
// its closest sample, measured as planar distance in degrees. Samples with
// non-finite values or coordinates are dropped first. Fewer than minSamples
// remaining returns an *domain.InsufficientDataError and no grid. When two
// samples are equally close the one that appears first in samples wins.
//
// The kernel never converts units; callers do that before and after.
func NearestNeighbor(xAxis, yAxis []float64, samples []Sample, minSamples int) (*Grid2D, error) {
	valid := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !finite(s.Value) || !finite(s.Lat) || !finite(s.Lon) {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) < minSamples || len(valid) == 0 {
		return nil, &domain.InsufficientDataError{Got: len(valid), Need: minSamples}
	}

	grid := NewGrid2D(xAxis, yAxis, math.NaN())
	for j, lat := range yAxis {
		row := grid.Values[j]
		for i, lon := range xAxis {
			best := 0
			bestDist := math.Inf(1)
			for k, s := range valid {
				dx := s.Lon - lon
				dy := s.Lat - lat
				d := dx*dx + dy*dy
				// Strict comparison keeps the earliest sample on ties.
				if d < bestDist {
					bestDist = d
					best = k
				}
			}
			row[i] = valid[best].Value
		}
	}
	return grid, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
