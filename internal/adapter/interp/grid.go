// Package interp builds dense grids from scattered station samples.
package interp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid2D represents a regular 2D grid of cell values.
type Grid2D struct {
	X      []float64   // X coordinates (cell-center longitudes).
	Y      []float64   // Y coordinates (cell-center latitudes).
	Values [][]float64 // Values[j][i] corresponds to (X[i], Y[j]); NaN is missing.
}

// NewGrid2D allocates a grid over the given axes with every cell set to fill.
func NewGrid2D(x, y []float64, fill float64) *Grid2D {
	values := make([][]float64, len(y))
	for j := range values {
		row := make([]float64, len(x))
		for i := range row {
			row[i] = fill
		}
		values[j] = row
	}
	return &Grid2D{X: x, Y: y, Values: values}
}

// Validate checks if the grid is valid.
func (g *Grid2D) Validate() error {
	if len(g.X) < 2 {
		return fmt.Errorf("grid must have at least 2 X coordinates")
	}
	if len(g.Y) < 2 {
		return fmt.Errorf("grid must have at least 2 Y coordinates")
	}
	if len(g.Values) != len(g.Y) {
		return fmt.Errorf("number of value rows (%d) must match Y coordinates (%d)", len(g.Values), len(g.Y))
	}

	for j, row := range g.Values {
		if len(row) != len(g.X) {
			return fmt.Errorf("row %d has %d values, expected %d", j, len(row), len(g.X))
		}
	}

	// Check that coordinates are sorted and unique.
	for i := 1; i < len(g.X); i++ {
		if g.X[i] <= g.X[i-1] {
			return fmt.Errorf("X coordinates must be strictly increasing")
		}
	}
	for j := 1; j < len(g.Y); j++ {
		if g.Y[j] <= g.Y[j-1] {
			return fmt.Errorf("Y coordinates must be strictly increasing")
		}
	}

	return nil
}

// At returns the value of cell (i, j). ok is false when the cell is outside
// the grid or holds a missing value.
func (g *Grid2D) At(i, j int) (v float64, ok bool) {
	if j < 0 || j >= len(g.Values) || i < 0 || i >= len(g.Values[j]) {
		return math.NaN(), false
	}
	v = g.Values[j][i]
	return v, !math.IsNaN(v)
}

// Missing counts cells holding NaN.
func (g *Grid2D) Missing() int {
	n := 0
	for _, row := range g.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// Stats summarizes the valid cells of a grid.
type Stats struct {
	Valid int
	Min   float64
	Max   float64
	Mean  float64
}

// Stats returns min, max and mean over non-missing cells. With no valid
// cells the summary values are NaN.
func (g *Grid2D) Stats() Stats {
	valid := make([]float64, 0, len(g.X)*len(g.Y))
	for _, row := range g.Values {
		for _, v := range row {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
	}
	if len(valid) == 0 {
		return Stats{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN()}
	}
	return Stats{
		Valid: len(valid),
		Min:   floats.Min(valid),
		Max:   floats.Max(valid),
		Mean:  floats.Sum(valid) / float64(len(valid)),
	}
}
