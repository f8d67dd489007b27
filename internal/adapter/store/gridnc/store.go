package gridnc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/gofrs/flock"

	"go.ngs.io/climate-grid/internal/adapter/interp"
	"go.ngs.io/climate-grid/internal/domain"
)

// CoverageVar is the 2-D (lat, lon) flag of cells inside the analysis domain.
const CoverageVar = "hasdata"

// Mode selects how a store is opened.
type Mode int

const (
	// ReadOnly takes a shared lock.
	ReadOnly Mode = iota
	// ReadWrite takes an exclusive lock.
	ReadWrite
)

// Store is an open grid time series file. All methods are safe for
// concurrent use; the underlying NetCDF handle is serialized.
type Store struct {
	path    string
	cadence Cadence
	year    int
	mode    Mode

	ds    netcdf.Dataset
	lock  *flock.Flock
	x, y  []float64
	specs map[string]VarSpec
	times int

	mu     sync.Mutex
	closed bool
}

// Create writes a new store for one year. Every variable starts at its fill
// value (NetCDF fill mode) and coverage starts at zero. It fails with an
// *domain.AlreadyExistsError if the file is present.
func Create(path string, c Cadence, year int, geo domain.Geometry, specs []VarSpec) error {
	if _, err := os.Stat(path); err == nil {
		return &domain.AlreadyExistsError{Path: path}
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	ds, err := netcdf.CreateFile(path, netcdf.NOCLOBBER|netcdf.NETCDF4)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return &domain.AlreadyExistsError{Path: path}
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := define(ds, c, year, geo, specs); err != nil {
		_ = ds.Close()
		_ = os.Remove(path)
		return err
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func define(ds netcdf.Dataset, c Cadence, year int, geo domain.Geometry, specs []VarSpec) error {
	ntimes := c.NumTimes(year)

	title := fmt.Sprintf("IEM %s Reanalysis %d", strings.ToUpper(c.String()[:1])+c.String()[1:], year)
	if c == Climatology {
		title = "IEM Daily Climatology"
	}
	globals := map[string]string{
		"title":       title,
		"platform":    "Grided Observations",
		"description": fmt.Sprintf("IEM %s analysis on a %.3f degree grid", c, geo.DX),
		"source":      "Iowa Environmental Mesonet",
		"Conventions": "CF-1.0",
		"history":     time.Now().UTC().Format("02 January 2006") + " Generated",
	}
	for k, v := range globals {
		if err := ds.Attr(k).WriteBytes([]byte(v)); err != nil {
			return fmt.Errorf("write global %s: %w", k, err)
		}
	}

	latDim, err := ds.AddDim("lat", uint64(geo.NY))
	if err != nil {
		return fmt.Errorf("add lat dim: %w", err)
	}
	lonDim, err := ds.AddDim("lon", uint64(geo.NX))
	if err != nil {
		return fmt.Errorf("add lon dim: %w", err)
	}
	timeDim, err := ds.AddDim("time", uint64(ntimes))
	if err != nil {
		return fmt.Errorf("add time dim: %w", err)
	}

	vlat, err := addCoordinate(ds, "lat", latDim, "degrees_north", "Latitude", "Y")
	if err != nil {
		return err
	}
	vlon, err := addCoordinate(ds, "lon", lonDim, "degrees_east", "Longitude", "X")
	if err != nil {
		return err
	}
	timeUnits := fmt.Sprintf("Days since %d-01-01 00:00:0.0", year)
	switch c {
	case Hourly:
		timeUnits = fmt.Sprintf("Hours since %d-01-01 00:00:0.0", year)
	case Climatology:
		timeUnits = "Days since 2000-01-01 00:00:0.0"
	}
	vtime, err := addCoordinate(ds, "time", timeDim, timeUnits, "Time", "T")
	if err != nil {
		return err
	}

	hasdata, err := ds.AddVar(CoverageVar, netcdf.BYTE, []netcdf.Dim{latDim, lonDim})
	if err != nil {
		return fmt.Errorf("add %s: %w", CoverageVar, err)
	}
	if err := writeTextAttrs(hasdata, map[string]string{
		"units":       "1",
		"long_name":   "Analysis Available for Grid Cell",
		"coordinates": "lon lat",
	}); err != nil {
		return err
	}

	for _, s := range specs {
		v, err := ds.AddVar(s.Name, netcdf.USHORT, []netcdf.Dim{timeDim, latDim, lonDim})
		if err != nil {
			return fmt.Errorf("add %s: %w", s.Name, err)
		}
		if err := v.Attr("_FillValue").WriteUint16s([]uint16{s.Fill}); err != nil {
			return fmt.Errorf("%s _FillValue: %w", s.Name, err)
		}
		if err := v.Attr("scale_factor").WriteFloat64s([]float64{s.Scale}); err != nil {
			return fmt.Errorf("%s scale_factor: %w", s.Name, err)
		}
		if s.Offset != 0 {
			if err := v.Attr("add_offset").WriteFloat64s([]float64{s.Offset}); err != nil {
				return fmt.Errorf("%s add_offset: %w", s.Name, err)
			}
		}
		if err := v.Attr("valid_range").WriteUint16s([]uint16{s.ValidMin, s.ValidMax}); err != nil {
			return fmt.Errorf("%s valid_range: %w", s.Name, err)
		}
		if err := writeTextAttrs(v, map[string]string{
			"units":       string(s.Units),
			"long_name":   s.LongName,
			"coordinates": "lon lat",
		}); err != nil {
			return err
		}
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("end define mode: %w", err)
	}

	if err := vlat.WriteFloat64s(geo.YAxis()); err != nil {
		return fmt.Errorf("write lat: %w", err)
	}
	if err := vlon.WriteFloat64s(geo.XAxis()); err != nil {
		return fmt.Errorf("write lon: %w", err)
	}
	steps := make([]float64, ntimes)
	for i := range steps {
		steps[i] = float64(i)
	}
	if err := vtime.WriteFloat64s(steps); err != nil {
		return fmt.Errorf("write time: %w", err)
	}
	if err := hasdata.WriteInt8s(make([]int8, geo.NX*geo.NY)); err != nil {
		return fmt.Errorf("write %s: %w", CoverageVar, err)
	}
	return nil
}

func addCoordinate(ds netcdf.Dataset, name string, dim netcdf.Dim, units, long, axis string) (netcdf.Var, error) {
	v, err := ds.AddVar(name, netcdf.DOUBLE, []netcdf.Dim{dim})
	if err != nil {
		return netcdf.Var{}, fmt.Errorf("add %s: %w", name, err)
	}
	if err := writeTextAttrs(v, map[string]string{
		"units":     units,
		"long_name": long,
		"axis":      axis,
	}); err != nil {
		return netcdf.Var{}, err
	}
	return v, nil
}

func writeTextAttrs(v netcdf.Var, attrs map[string]string) error {
	for k, val := range attrs {
		if err := v.Attr(k).WriteBytes([]byte(val)); err != nil {
			return fmt.Errorf("write attribute %s: %w", k, err)
		}
	}
	return nil
}

// Open opens an existing store, waiting at most timeout for the file lock.
// ReadWrite holds an exclusive lock until Close; ReadOnly a shared one.
func Open(ctx context.Context, path string, c Cadence, year int, mode Mode, timeout time.Duration) (*Store, error) {
	lk, err := acquire(ctx, path, mode == ReadWrite, timeout)
	if err != nil {
		return nil, err
	}

	ncMode := netcdf.NOWRITE
	if mode == ReadWrite {
		ncMode = netcdf.WRITE
	}
	ds, err := netcdf.OpenFile(path, ncMode)
	if err != nil {
		_ = lk.Unlock()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Store{
		path:    path,
		cadence: c,
		year:    year,
		mode:    mode,
		ds:      ds,
		lock:    lk,
		specs:   make(map[string]VarSpec),
	}
	if err := s.loadAxes(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAxes() error {
	var err error
	if s.x, err = s.readAxis("lon"); err != nil {
		return err
	}
	if s.y, err = s.readAxis("lat"); err != nil {
		return err
	}
	tv, err := s.ds.Var("time")
	if err != nil {
		return fmt.Errorf("time variable: %w", err)
	}
	n, err := axisLen(tv)
	if err != nil {
		return fmt.Errorf("time length: %w", err)
	}
	s.times = int(n)
	return nil
}

func axisLen(v netcdf.Var) (uint64, error) {
	dims, err := v.Dims()
	if err != nil {
		return 0, err
	}
	if len(dims) != 1 {
		return 0, fmt.Errorf("expected 1 dimension, got %d", len(dims))
	}
	return dims[0].Len()
}

func (s *Store) readAxis(name string) ([]float64, error) {
	v, err := s.ds.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%s variable: %w", name, err)
	}
	n, err := axisLen(v)
	if err != nil {
		return nil, fmt.Errorf("%s length: %w", name, err)
	}
	vals := make([]float64, n)
	if err := v.ReadFloat64s(vals); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return vals, nil
}

// Close releases the NetCDF handle and the file lock. It is safe to call
// more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.ds.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", s.path, err))
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("unlock %s: %w", s.path, err))
	}
	return errors.Join(errs...)
}

// Path returns the file path of the store.
func (s *Store) Path() string { return s.path }

// Cadence returns the store's time axis kind.
func (s *Store) Cadence() Cadence { return s.cadence }

// Year returns the calendar year the store covers.
func (s *Store) Year() int { return s.year }

// NumTimes returns the length of the time axis.
func (s *Store) NumTimes() int { return s.times }

// Axes returns the cell-center longitude and latitude vectors.
func (s *Store) Axes() (x, y []float64) { return s.x, s.y }

// TimeIndex resolves a date to a record, checking the date belongs to the
// store's year (any year for climatology).
func (s *Store) TimeIndex(t time.Time) (int, error) {
	year := t.Year()
	if s.cadence == Hourly {
		year = t.UTC().Year()
	}
	if s.cadence != Climatology && year != s.year {
		return 0, fmt.Errorf("%s is outside store year %d", t.Format(time.DateOnly), s.year)
	}
	idx := TimeIndex(s.cadence, t)
	if idx < 0 || idx >= s.times {
		return 0, fmt.Errorf("time index %d outside [0, %d)", idx, s.times)
	}
	return idx, nil
}

// Spec returns the quantization metadata of a variable as stored on disk.
func (s *Store) Spec(name string) (VarSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return VarSpec{}, fmt.Errorf("store %s is closed", s.path)
	}
	_, sp, err := s.variable(name)
	return sp, err
}

// Variables lists the quantized variables in the store.
func (s *Store) Variables() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.ds.NVars()
	if err != nil {
		return nil, fmt.Errorf("count variables: %w", err)
	}
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v := s.ds.VarN(i)
		t, err := v.Type()
		if err != nil || t != netcdf.USHORT {
			continue
		}
		name, err := v.Name()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// variable returns the NetCDF handle and spec of a quantized variable.
// Callers hold s.mu.
func (s *Store) variable(name string) (netcdf.Var, VarSpec, error) {
	v, err := s.ds.Var(name)
	if err != nil {
		return netcdf.Var{}, VarSpec{}, fmt.Errorf("variable %s: %w", name, err)
	}
	if sp, ok := s.specs[name]; ok {
		return v, sp, nil
	}
	t, err := v.Type()
	if err != nil {
		return netcdf.Var{}, VarSpec{}, fmt.Errorf("%s type: %w", name, err)
	}
	if t != netcdf.USHORT {
		return netcdf.Var{}, VarSpec{}, fmt.Errorf("%s: unsupported storage type %v", name, t)
	}

	sp := VarSpec{Name: name, Scale: 1, Fill: DefaultFill, ValidMin: 0, ValidMax: DefaultFill - 1}
	if f, ok := readFloatAttr(v, "scale_factor"); ok {
		sp.Scale = f
	}
	if f, ok := readFloatAttr(v, "add_offset"); ok {
		sp.Offset = f
	}
	if fill, ok := readUint16Attr(v, "_FillValue", 1); ok {
		sp.Fill = fill[0]
	}
	if vr, ok := readUint16Attr(v, "valid_range", 2); ok {
		sp.ValidMin, sp.ValidMax = vr[0], vr[1]
	}
	if u, ok := readTextAttr(v, "units"); ok {
		sp.Units = domain.Unit(u)
	}
	if ln, ok := readTextAttr(v, "long_name"); ok {
		sp.LongName = ln
	}
	s.specs[name] = sp
	return v, sp, nil
}

// WriteSlice overwrites one time step of a variable. NaN cells are stored
// as fill; out of range cells are clamped and counted in the report.
func (s *Store) WriteSlice(name string, idx int, g *interp.Grid2D) (ClampReport, error) {
	report := ClampReport{Variable: name}
	if s.mode != ReadWrite {
		return report, fmt.Errorf("store %s opened read-only", s.path)
	}
	if err := s.checkShape(g); err != nil {
		return report, fmt.Errorf("write %s: %w", name, err)
	}
	if idx < 0 || idx >= s.times {
		return report, fmt.Errorf("time index %d outside [0, %d)", idx, s.times)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return report, fmt.Errorf("store %s is closed", s.path)
	}
	v, sp, err := s.variable(name)
	if err != nil {
		return report, err
	}

	nx, ny := len(s.x), len(s.y)
	buf := make([]uint16, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			raw, clamped := Quantize(g.Values[j][i], sp)
			if clamped {
				if raw == sp.ValidMin {
					report.Below++
				} else {
					report.Above++
				}
			}
			buf[j*nx+i] = raw
		}
	}

	start := []uint64{uint64(idx), 0, 0}
	count := []uint64{1, uint64(ny), uint64(nx)}
	if err := v.WriteUint16Slice(buf, start, count); err != nil {
		return report, fmt.Errorf("write %s[%d]: %w", name, idx, err)
	}
	return report, nil
}

// ReadSlice reads one time step of a variable in physical units. Fill cells
// read as NaN.
func (s *Store) ReadSlice(name string, idx int) (*interp.Grid2D, error) {
	if idx < 0 || idx >= s.times {
		return nil, fmt.Errorf("time index %d outside [0, %d)", idx, s.times)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store %s is closed", s.path)
	}
	v, sp, err := s.variable(name)
	if err != nil {
		return nil, err
	}

	nx, ny := len(s.x), len(s.y)
	buf := make([]uint16, nx*ny)
	start := []uint64{uint64(idx), 0, 0}
	count := []uint64{1, uint64(ny), uint64(nx)}
	if err := v.ReadUint16Slice(buf, start, count); err != nil {
		return nil, fmt.Errorf("read %s[%d]: %w", name, idx, err)
	}

	g := interp.NewGrid2D(s.x, s.y, math.NaN())
	for j := 0; j < ny; j++ {
		row := g.Values[j]
		for i := 0; i < nx; i++ {
			row[i] = Dequantize(buf[j*nx+i], sp)
		}
	}
	return g, nil
}

// ReadCoverage returns the coverage mask indexed [lat][lon].
func (s *Store) ReadCoverage() ([][]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store %s is closed", s.path)
	}
	v, err := s.ds.Var(CoverageVar)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", CoverageVar, err)
	}
	nx, ny := len(s.x), len(s.y)
	buf := make([]int8, nx*ny)
	if err := v.ReadInt8s(buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", CoverageVar, err)
	}
	mask := make([][]bool, ny)
	for j := range mask {
		mask[j] = make([]bool, nx)
		for i := range mask[j] {
			mask[j][i] = buf[j*nx+i] > 0
		}
	}
	return mask, nil
}

// WriteCoverage replaces the coverage mask.
func (s *Store) WriteCoverage(mask [][]bool) error {
	if s.mode != ReadWrite {
		return fmt.Errorf("store %s opened read-only", s.path)
	}
	nx, ny := len(s.x), len(s.y)
	if len(mask) != ny {
		return fmt.Errorf("coverage has %d rows, store has %d", len(mask), ny)
	}
	buf := make([]int8, nx*ny)
	for j, row := range mask {
		if len(row) != nx {
			return fmt.Errorf("coverage row %d has %d cells, store has %d", j, len(row), nx)
		}
		for i, covered := range row {
			if covered {
				buf[j*nx+i] = 1
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store %s is closed", s.path)
	}
	v, err := s.ds.Var(CoverageVar)
	if err != nil {
		return fmt.Errorf("variable %s: %w", CoverageVar, err)
	}
	if err := v.WriteInt8s(buf); err != nil {
		return fmt.Errorf("write %s: %w", CoverageVar, err)
	}
	return nil
}

func (s *Store) checkShape(g *interp.Grid2D) error {
	if g == nil {
		return errors.New("nil grid")
	}
	if len(g.Values) != len(s.y) {
		return fmt.Errorf("grid has %d rows, store has %d", len(g.Values), len(s.y))
	}
	for j, row := range g.Values {
		if len(row) != len(s.x) {
			return fmt.Errorf("row %d has %d cells, store has %d", j, len(row), len(s.x))
		}
	}
	return nil
}

// readFloatAttr reads a numeric attribute stored as double or float.
func readFloatAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	return 0, false
}

func readUint16Attr(v netcdf.Var, name string, want int) ([]uint16, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || int(n) != want {
		return nil, false
	}
	buf := make([]uint16, want)
	if err := a.ReadUint16s(buf); err != nil {
		return nil, false
	}
	return buf, true
}

func readTextAttr(v netcdf.Var, name string) (string, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return strings.TrimRight(string(buf), "\x00"), true
}
