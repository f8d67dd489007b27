// Package gridnc stores per-year gridded analyses in NetCDF-4 files as
// quantized uint16 arrays indexed by (time, lat, lon).
package gridnc

import (
	"fmt"
	"path/filepath"
	"time"

	"go.ngs.io/climate-grid/internal/domain"
)

// Cadence selects the time axis of a store.
type Cadence int

const (
	// Daily stores one record per calendar day.
	Daily Cadence = iota
	// Hourly stores 24 records per day, hour 0 UTC first.
	Hourly
	// Climatology stores one record per day of a fixed 365-day year.
	Climatology
)

// String returns the name used in file names and flags.
func (c Cadence) String() string {
	switch c {
	case Daily:
		return "daily"
	case Hourly:
		return "hourly"
	case Climatology:
		return "climatology"
	default:
		return fmt.Sprintf("cadence(%d)", int(c))
	}
}

// ParseCadence parses the flag form of a cadence.
func ParseCadence(s string) (Cadence, error) {
	switch s {
	case "daily":
		return Daily, nil
	case "hourly":
		return Hourly, nil
	case "climatology", "dailyc":
		return Climatology, nil
	}
	return 0, fmt.Errorf("unknown cadence %q (use daily, hourly or climatology)", s)
}

// RecordsPerDay returns the number of time steps per calendar day.
func (c Cadence) RecordsPerDay() int {
	if c == Hourly {
		return 24
	}
	return 1
}

// FileName returns the store file name for a year. Climatology has a single
// file regardless of year.
func (c Cadence) FileName(year int) string {
	switch c {
	case Hourly:
		return fmt.Sprintf("iemre_%d_hourly.nc", year)
	case Climatology:
		return "iemre_dailyc.nc"
	default:
		return fmt.Sprintf("iemre_%d_daily.nc", year)
	}
}

// Path joins a data directory with the store file name.
func Path(dir string, c Cadence, year int) string {
	return filepath.Join(dir, c.FileName(year))
}

// DaysInYear is leap-year aware.
func DaysInYear(year int) int {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return int(start.AddDate(1, 0, 0).Sub(start).Hours() / 24)
}

// NumTimes returns the length of the time axis for a year.
func (c Cadence) NumTimes(year int) int {
	if c == Climatology {
		return 365
	}
	return DaysInYear(year) * c.RecordsPerDay()
}

// DefaultFill is the fill sentinel for uint16 variables.
const DefaultFill uint16 = 65535

// VarSpec describes one quantized variable. Physical values are
// raw*Scale + Offset; raw values outside [ValidMin, ValidMax] never occur
// except for Fill.
type VarSpec struct {
	Name     string
	LongName string
	Units    domain.Unit
	Scale    float64
	Offset   float64
	Fill     uint16
	ValidMin uint16
	ValidMax uint16
}

func spec(name, long string, units domain.Unit, scale, offset float64) VarSpec {
	return VarSpec{
		Name:     name,
		LongName: long,
		Units:    units,
		Scale:    scale,
		Offset:   offset,
		Fill:     DefaultFill,
		ValidMin: 0,
		ValidMax: DefaultFill - 1,
	}
}

// Validate checks the spec is usable for quantization.
func (v VarSpec) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("variable name is required")
	}
	if v.Scale <= 0 {
		return fmt.Errorf("%s: scale must be positive", v.Name)
	}
	if v.ValidMin > v.ValidMax {
		return fmt.Errorf("%s: valid range [%d, %d] is empty", v.Name, v.ValidMin, v.ValidMax)
	}
	if v.Fill >= v.ValidMin && v.Fill <= v.ValidMax {
		return fmt.Errorf("%s: fill value %d inside valid range", v.Name, v.Fill)
	}
	return nil
}

// PhysicalRange returns the smallest and largest representable values.
func (v VarSpec) PhysicalRange() (lo, hi float64) {
	return float64(v.ValidMin)*v.Scale + v.Offset, float64(v.ValidMax)*v.Scale + v.Offset
}

// DailyVars are the variables of the daily analysis. Temperatures in K,
// water in mm. The plain names cover the 00Z-00Z window.
var DailyVars = []VarSpec{
	spec("high_tmpk", "2m Air Temperature 24 Hour High (00-00 UTC)", domain.Kelvin, 0.01, 0),
	spec("low_tmpk", "2m Air Temperature 24 Hour Low (00-00 UTC)", domain.Kelvin, 0.01, 0),
	spec("high_tmpk_12z", "2m Air Temperature 24 Hour High (12-12 UTC)", domain.Kelvin, 0.01, 0),
	spec("low_tmpk_12z", "2m Air Temperature 24 Hour Low (12-12 UTC)", domain.Kelvin, 0.01, 0),
	spec("p01d", "Precipitation (00-00 UTC)", domain.Millimeter, 0.01, 0),
	spec("p01d_12z", "Precipitation (12-12 UTC)", domain.Millimeter, 0.01, 0),
	spec("snow_12z", "Snowfall (12-12 UTC)", domain.Millimeter, 0.1, 0),
	spec("snowd_12z", "Snow Depth at 12 UTC", domain.Millimeter, 0.1, 0),
}

// skyCover is stored as whole percent, valid 0 to 100.
var skyCover = func() VarSpec {
	s := spec("skyc", "ASOS Sky Coverage", domain.Unit("%"), 1, 0)
	s.ValidMax = 100
	return s
}()

// HourlyVars are the variables of the hourly analysis. Wind components
// carry an offset so that negative (westerly, northerly) values fit the
// unsigned encoding.
var HourlyVars = []VarSpec{
	skyCover,
	spec("tmpk", "2m Air Temperature", domain.Kelvin, 0.01, 0),
	spec("dwpk", "2m Air Dew Point Temperature", domain.Kelvin, 0.01, 0),
	spec("uwnd", "U component of the wind", domain.Unit("m s-1"), 0.002, -65.534),
	spec("vwnd", "V component of the wind", domain.Unit("m s-1"), 0.002, -65.534),
	spec("p01m", "Precipitation accumulation for the hour", domain.Millimeter, 0.01, 0),
}

// ClimateVars are the variables of the daily climatology.
var ClimateVars = []VarSpec{
	spec("tmax", "Daily Maximum Temperature", domain.Celsius, 0.01, -100),
	spec("tmin", "Daily Minimum Temperature", domain.Celsius, 0.01, -100),
	spec("ppt", "Daily Precipitation", domain.Millimeter, 0.01, 0),
}

// VarsFor returns the default variable table of a cadence.
func VarsFor(c Cadence) []VarSpec {
	switch c {
	case Hourly:
		return HourlyVars
	case Climatology:
		return ClimateVars
	default:
		return DailyVars
	}
}
