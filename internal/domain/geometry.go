package domain

import (
	"fmt"
	"math"
)

// IEMRE analysis domain: 0.125 degree cells over the central United States.
const (
	IEMREWest  = -104.0
	IEMREEast  = -80.0
	IEMRESouth = 36.0
	IEMRENorth = 49.0
	IEMRECell  = 0.125
)

// Geometry is a fixed regular lat/lon grid. Cell (i, j) spans
// [West+i*DX, West+(i+1)*DX) in longitude and [South+j*DY, South+(j+1)*DY)
// in latitude. Values are immutable once built by NewGeometry.
type Geometry struct {
	West  float64 // Longitude of the western edge (degrees east).
	South float64 // Latitude of the southern edge (degrees north).
	DX    float64 // Cell width in degrees of longitude.
	DY    float64 // Cell height in degrees of latitude.
	NX    int     // Number of columns (longitude).
	NY    int     // Number of rows (latitude).

	// Tolerance is how far (in degrees) a coordinate may sit outside the
	// domain and still be clamped onto an edge cell.
	Tolerance float64
}

// NewGeometry validates and returns a grid geometry.
func NewGeometry(west, south, dx, dy float64, nx, ny int, tolerance float64) (Geometry, error) {
	if dx <= 0 || dy <= 0 {
		return Geometry{}, fmt.Errorf("cell size must be positive (dx=%v dy=%v)", dx, dy)
	}
	if nx <= 0 || ny <= 0 {
		return Geometry{}, fmt.Errorf("grid dimensions must be positive (nx=%d ny=%d)", nx, ny)
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		return Geometry{}, fmt.Errorf("tolerance must be non-negative, got %v", tolerance)
	}
	return Geometry{
		West:      west,
		South:     south,
		DX:        dx,
		DY:        dy,
		NX:        nx,
		NY:        ny,
		Tolerance: tolerance,
	}, nil
}

// IEMRE returns the standard analysis grid (192 x 104 cells) with a one
// cell clamping tolerance.
func IEMRE() Geometry {
	return Geometry{
		West:      IEMREWest,
		South:     IEMRESouth,
		DX:        IEMRECell,
		DY:        IEMRECell,
		NX:        int(math.Round((IEMREEast - IEMREWest) / IEMRECell)),
		NY:        int(math.Round((IEMRENorth - IEMRESouth) / IEMRECell)),
		Tolerance: IEMRECell,
	}
}

// East returns the longitude of the eastern edge.
func (g Geometry) East() float64 { return g.West + float64(g.NX)*g.DX }

// North returns the latitude of the northern edge.
func (g Geometry) North() float64 { return g.South + float64(g.NY)*g.DY }

// CellOf maps a coordinate onto its cell. Coordinates within Tolerance of
// the domain are clamped onto the nearest edge cell; anything farther out
// returns an *OutOfDomainError.
func (g Geometry) CellOf(lat, lon float64) (i, j int, err error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, 0, &OutOfDomainError{Lat: lat, Lon: lon}
	}
	if lon < g.West-g.Tolerance || lon > g.East()+g.Tolerance ||
		lat < g.South-g.Tolerance || lat > g.North()+g.Tolerance {
		return 0, 0, &OutOfDomainError{Lat: lat, Lon: lon}
	}

	i = clampIndex(int(math.Floor((lon-g.West)/g.DX)), g.NX)
	j = clampIndex(int(math.Floor((lat-g.South)/g.DY)), g.NY)
	return i, j, nil
}

// CellCenter returns the coordinate of the center of cell (i, j).
func (g Geometry) CellCenter(i, j int) (lat, lon float64, err error) {
	if i < 0 || i >= g.NX || j < 0 || j >= g.NY {
		return 0, 0, fmt.Errorf("cell (%d, %d) outside grid %dx%d", i, j, g.NX, g.NY)
	}
	return g.South + (float64(j)+0.5)*g.DY, g.West + (float64(i)+0.5)*g.DX, nil
}

// XAxis returns the longitude of every column center, west to east.
func (g Geometry) XAxis() []float64 {
	xs := make([]float64, g.NX)
	for i := range xs {
		xs[i] = g.West + (float64(i)+0.5)*g.DX
	}
	return xs
}

// YAxis returns the latitude of every row center, south to north.
func (g Geometry) YAxis() []float64 {
	ys := make([]float64, g.NY)
	for j := range ys {
		ys[j] = g.South + (float64(j)+0.5)*g.DY
	}
	return ys
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
