package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/domain"
)

// CellResponse locates a point on the grid.
type CellResponse struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	I         int     `json:"i"`
	J         int     `json:"j"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
}

// ValueRequest asks for one variable at a point and time.
type ValueRequest struct {
	Lat      float64
	Lon      float64
	Time     time.Time
	Variable string
	Cadence  gridnc.Cadence
}

// ValueResponse is a stored value in physical units. Value is nil when the
// cell is missing.
type ValueResponse struct {
	Cell      CellResponse `json:"cell"`
	Variable  string       `json:"variable"`
	Cadence   string       `json:"cadence"`
	Time      string       `json:"time"`
	TimeIndex int          `json:"time_index"`
	Units     string       `json:"units"`
	Value     *float64     `json:"value"`
}

// CoverageResponse reports whether a cell is inside the analysis domain.
type CoverageResponse struct {
	Cell    CellResponse `json:"cell"`
	Year    int          `json:"year"`
	Covered bool         `json:"covered"`
	Cells   int          `json:"covered_cells"`
}

// ErrNoStore is returned when the store for a year does not exist.
var ErrNoStore = errors.New("grid store not found")

// GridQuery answers read-only questions about the grid stores.
type GridQuery struct {
	dir     string
	geo     domain.Geometry
	timeout time.Duration
}

// NewGridQuery creates a query service over the stores in dir.
func NewGridQuery(dir string, geo domain.Geometry, timeout time.Duration) *GridQuery {
	return &GridQuery{dir: dir, geo: geo, timeout: timeout}
}

// Cell maps a point onto the grid.
func (q *GridQuery) Cell(lat, lon float64) (*CellResponse, error) {
	i, j, err := q.geo.CellOf(lat, lon)
	if err != nil {
		return nil, err
	}
	clat, clon, err := q.geo.CellCenter(i, j)
	if err != nil {
		return nil, err
	}
	return &CellResponse{Lat: lat, Lon: lon, I: i, J: j, CenterLat: clat, CenterLon: clon}, nil
}

// Value reads one variable at a point.
func (q *GridQuery) Value(ctx context.Context, req ValueRequest) (resp *ValueResponse, err error) {
	cell, err := q.Cell(req.Lat, req.Lon)
	if err != nil {
		return nil, err
	}
	st, err := q.open(ctx, req.Cadence, req.Time.Year())
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	idx, err := st.TimeIndex(req.Time)
	if err != nil {
		return nil, err
	}
	sp, err := st.Spec(req.Variable)
	if err != nil {
		return nil, err
	}
	g, err := st.ReadSlice(req.Variable, idx)
	if err != nil {
		return nil, err
	}

	resp = &ValueResponse{
		Cell:      *cell,
		Variable:  req.Variable,
		Cadence:   req.Cadence.String(),
		Time:      req.Time.UTC().Format(time.RFC3339),
		TimeIndex: idx,
		Units:     string(sp.Units),
	}
	if v, ok := g.At(cell.I, cell.J); ok && !math.IsNaN(v) {
		resp.Value = &v
	}
	return resp, nil
}

// Coverage reports the coverage flag of a point in a year's daily store.
func (q *GridQuery) Coverage(ctx context.Context, lat, lon float64, year int) (resp *CoverageResponse, err error) {
	cell, err := q.Cell(lat, lon)
	if err != nil {
		return nil, err
	}
	st, err := q.open(ctx, gridnc.Daily, year)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	mask, err := st.ReadCoverage()
	if err != nil {
		return nil, err
	}
	if cell.J >= len(mask) || cell.I >= len(mask[cell.J]) {
		return nil, fmt.Errorf("store %s does not match the query geometry", st.Path())
	}
	n := 0
	for _, row := range mask {
		for _, c := range row {
			if c {
				n++
			}
		}
	}
	return &CoverageResponse{Cell: *cell, Year: year, Covered: mask[cell.J][cell.I], Cells: n}, nil
}

func (q *GridQuery) open(ctx context.Context, c gridnc.Cadence, year int) (*gridnc.Store, error) {
	path := gridnc.Path(q.dir, c, year)
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: %s %d", ErrNoStore, c, year)
	}
	return gridnc.Open(ctx, path, c, year, gridnc.ReadOnly, q.timeout)
}
