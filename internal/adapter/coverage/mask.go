// Package coverage rasterizes region polygons onto the analysis grid to
// maintain the per-cell "has data" flag of a grid store.
package coverage

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"go.ngs.io/climate-grid/internal/domain"
)

// Region is a named polygon, such as a state outline.
type Region struct {
	Name  string
	Shape geom.Polygonal
}

// indexed wraps a region for the rtree, which stores geom.Geom values.
type indexed struct {
	geom.Polygonal
	name string
}

// Mask is a coverage flag per cell, indexed [lat][lon] like a Grid2D.
type Mask [][]bool

// NewMask allocates an all-uncovered mask for a geometry.
func NewMask(geo domain.Geometry) Mask {
	m := make(Mask, geo.NY)
	for j := range m {
		m[j] = make([]bool, geo.NX)
	}
	return m
}

// Count returns the number of covered cells.
func (m Mask) Count() int {
	n := 0
	for _, row := range m {
		for _, c := range row {
			if c {
				n++
			}
		}
	}
	return n
}

// Rasterize marks every cell whose center lies inside (or on the edge of)
// any region.
func Rasterize(geo domain.Geometry, regions []Region) Mask {
	tree := rtree.NewTree(25, 50)
	for _, r := range regions {
		if r.Shape == nil {
			continue
		}
		tree.Insert(&indexed{Polygonal: r.Shape, name: r.Name})
	}

	mask := NewMask(geo)
	xs, ys := geo.XAxis(), geo.YAxis()
	for j, lat := range ys {
		for i, lon := range xs {
			p := geom.Point{X: lon, Y: lat}
			for _, hit := range tree.SearchIntersect(p.Bounds()) {
				if p.Within(hit.(*indexed).Polygonal) != geom.Outside {
					mask[j][i] = true
					break
				}
			}
		}
	}
	return mask
}

// Union ORs next into prior and returns the result. A cell covered in
// prior is never uncovered.
func Union(prior, next Mask) (Mask, error) {
	if len(prior) != len(next) {
		return nil, fmt.Errorf("mask row count mismatch: %d vs %d", len(prior), len(next))
	}
	out := make(Mask, len(prior))
	for j := range prior {
		if len(prior[j]) != len(next[j]) {
			return nil, fmt.Errorf("mask row %d length mismatch: %d vs %d", j, len(prior[j]), len(next[j]))
		}
		out[j] = make([]bool, len(prior[j]))
		for i := range prior[j] {
			out[j][i] = prior[j][i] || next[j][i]
		}
	}
	return out, nil
}

// Store is the part of a grid store the builder needs.
type Store interface {
	ReadCoverage() ([][]bool, error)
	WriteCoverage(mask [][]bool) error
}

// UpdateCoverage rasterizes regions and merges them into the store's
// coverage. It returns the number of cells covered afterwards.
func UpdateCoverage(store Store, geo domain.Geometry, regions []Region) (int, error) {
	prior, err := store.ReadCoverage()
	if err != nil {
		return 0, fmt.Errorf("read coverage: %w", err)
	}
	merged, err := Union(prior, Rasterize(geo, regions))
	if err != nil {
		return 0, err
	}
	if err := store.WriteCoverage(merged); err != nil {
		return 0, fmt.Errorf("write coverage: %w", err)
	}
	return merged.Count(), nil
}
