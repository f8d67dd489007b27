// Package usecase holds the estimator, gridder and grid query workflows.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/interp"
	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/domain"
)

// Daily analysis variables read by the estimator.
const (
	VarHigh00   = "high_tmpk"
	VarLow00    = "low_tmpk"
	VarHigh12   = "high_tmpk_12z"
	VarLow12    = "low_tmpk_12z"
	VarPrecip00 = "p01d"
	VarPrecip12 = "p01d_12z"
	VarSnow12   = "snow_12z"
	VarSnowd12  = "snowd_12z"
)

// EstimatorVars lists every variable DailyGrids loads.
var EstimatorVars = []string{
	VarHigh00, VarLow00, VarHigh12, VarLow12,
	VarPrecip00, VarPrecip12, VarSnow12, VarSnowd12,
}

// SliceReader is the part of a grid store the estimator reads.
type SliceReader interface {
	Spec(name string) (gridnc.VarSpec, error)
	ReadSlice(name string, idx int) (*interp.Grid2D, error)
	TimeIndex(t time.Time) (int, error)
}

// DailyGrids holds one day's analysis grids converted to station units
// (F for temperature, inch for water). Grids are read once per date and
// shared read-only by every region.
type DailyGrids struct {
	Day   time.Time
	Geo   domain.Geometry
	grids map[string]*interp.Grid2D
}

// LoadDailyGrids reads the estimator variables for a day from a store.
func LoadDailyGrids(r SliceReader, geo domain.Geometry, day time.Time) (*DailyGrids, error) {
	idx, err := r.TimeIndex(day)
	if err != nil {
		return nil, err
	}
	dg := &DailyGrids{Day: day, Geo: geo, grids: make(map[string]*interp.Grid2D, len(EstimatorVars))}
	for _, name := range EstimatorVars {
		sp, err := r.Spec(name)
		if err != nil {
			return nil, fmt.Errorf("grid %s: %w", name, err)
		}
		g, err := r.ReadSlice(name, idx)
		if err != nil {
			return nil, fmt.Errorf("read %s[%d]: %w", name, idx, err)
		}
		if len(g.Y) != geo.NY || len(g.X) != geo.NX {
			return nil, fmt.Errorf("grid %s is %dx%d, geometry is %dx%d", name, len(g.X), len(g.Y), geo.NX, geo.NY)
		}
		if err := domain.ConvertSlice(g.Values, sp.Units, stationUnit(sp.Units)); err != nil {
			return nil, fmt.Errorf("grid %s: %w", name, err)
		}
		dg.grids[name] = g
	}
	return dg, nil
}

// NewDailyGrids builds DailyGrids from grids already in station units.
func NewDailyGrids(day time.Time, geo domain.Geometry, grids map[string]*interp.Grid2D) *DailyGrids {
	return &DailyGrids{Day: day, Geo: geo, grids: grids}
}

func stationUnit(u domain.Unit) domain.Unit {
	if u.Kind() == "temperature" {
		return domain.Fahrenheit
	}
	return domain.Inch
}

// Value returns a variable at cell (i, j); NaN when the variable or the
// cell is missing.
func (d *DailyGrids) Value(name string, i, j int) float64 {
	g, ok := d.grids[name]
	if !ok {
		return math.NaN()
	}
	v, ok := g.At(i, j)
	if !ok {
		return math.NaN()
	}
	return v
}

// GridLoader opens the daily store of a date's year and loads its grids.
type GridLoader interface {
	Load(ctx context.Context, day time.Time) (*DailyGrids, error)
}

// StoreGridLoader loads DailyGrids from the per-year NetCDF stores in a
// directory, holding a shared lock only while reading.
type StoreGridLoader struct {
	Dir     string
	Geo     domain.Geometry
	Timeout time.Duration
}

// Load implements GridLoader.
func (l *StoreGridLoader) Load(ctx context.Context, day time.Time) (grids *DailyGrids, err error) {
	path := gridnc.Path(l.Dir, gridnc.Daily, day.Year())
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNoStore, path)
	}
	st, err := gridnc.Open(ctx, path, gridnc.Daily, day.Year(), gridnc.ReadOnly, l.Timeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()
	return LoadDailyGrids(st, l.Geo, day)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
