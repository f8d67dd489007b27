package gridnc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantizeRoundTripWithinOneUnit(t *testing.T) {
	for _, s := range append(append(append([]VarSpec{}, DailyVars...), ClimateVars...), HourlyVars...) {
		lo, hi := s.PhysicalRange()
		step := (hi - lo) / 997
		for v := lo; v <= hi; v += step {
			raw, clamped := Quantize(v, s)
			if clamped {
				t.Fatalf("%s: %v clamped inside valid range", s.Name, v)
			}
			got := Dequantize(raw, s)
			if math.Abs(got-v) > s.Scale {
				t.Fatalf("%s: round trip %v -> %d -> %v exceeds one unit", s.Name, v, raw, got)
			}
		}
	}
}

func TestQuantizeScenarioPrecip(t *testing.T) {
	s := spec("p01d", "", "inch", 0.01, 0)
	raw, clamped := Quantize(1.27, s)
	assert.False(t, clamped)
	assert.Equal(t, uint16(127), raw)
	assert.InDelta(t, 1.27, Dequantize(127, s), 1e-12)
}

func TestQuantizeClampsNeverWraps(t *testing.T) {
	s := DailyVars[0] // high_tmpk, K, scale 0.01

	raw, clamped := Quantize(-5, s)
	assert.True(t, clamped)
	assert.Equal(t, s.ValidMin, raw)

	raw, clamped = Quantize(1000, s)
	assert.True(t, clamped)
	assert.Equal(t, s.ValidMax, raw)
	assert.NotEqual(t, s.Fill, raw)
}

func TestHourlyEncoding(t *testing.T) {
	byName := make(map[string]VarSpec)
	for _, s := range HourlyVars {
		require.NoError(t, s.Validate())
		byName[s.Name] = s
	}

	sky, ok := byName["skyc"]
	require.True(t, ok, "sky coverage is part of the hourly store")
	lo, hi := sky.PhysicalRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 100.0, hi)
	raw, clamped := Quantize(120, sky)
	assert.True(t, clamped)
	assert.Equal(t, uint16(100), raw)

	for _, name := range []string{"uwnd", "vwnd"} {
		s := byName[name]
		raw, clamped := Quantize(-12.345, s)
		assert.False(t, clamped, "%s must hold negative components", name)
		assert.InDelta(t, -12.345, Dequantize(raw, s), s.Scale)
	}
}

func TestFillIsMissingNotZero(t *testing.T) {
	s := DailyVars[4]
	raw, clamped := Quantize(math.NaN(), s)
	assert.False(t, clamped)
	assert.Equal(t, s.Fill, raw)
	assert.True(t, math.IsNaN(Dequantize(s.Fill, s)))
	assert.Equal(t, 0.0, Dequantize(0, s))
}

func TestVarSpecValidate(t *testing.T) {
	for _, s := range DailyVars {
		assert.NoError(t, s.Validate(), s.Name)
	}
	bad := spec("x", "", "K", 0, 0)
	assert.Error(t, bad.Validate())
	bad = spec("x", "", "K", 1, 0)
	bad.ValidMax = bad.Fill
	assert.Error(t, bad.Validate())
}

func TestTimeIndex(t *testing.T) {
	d := func(y int, m time.Month, day, h int) time.Time { return time.Date(y, m, day, h, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		c    Cadence
		t    time.Time
		want int
	}{
		{"daily jan 1", Daily, d(2024, 1, 1, 0), 0},
		{"daily jul 4 leap", Daily, d(2024, 7, 4, 0), 185},
		{"daily jul 4 non-leap", Daily, d(2023, 7, 4, 0), 184},
		{"daily dec 31 leap", Daily, d(2024, 12, 31, 0), 365},
		{"hourly", Hourly, d(2024, 1, 2, 6), 30},
		{"hourly last", Hourly, d(2023, 12, 31, 23), 365*24 - 1},
		{"climatology feb 28", Climatology, d(2024, 2, 28, 0), 58},
		{"climatology feb 29 maps to mar 1", Climatology, d(2024, 2, 29, 0), 59},
		{"climatology mar 1 leap", Climatology, d(2024, 3, 1, 0), 59},
		{"climatology mar 1 non-leap", Climatology, d(2023, 3, 1, 0), 59},
		{"climatology dec 31 leap", Climatology, d(2024, 12, 31, 0), 364},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeIndex(tt.c, tt.t))
		})
	}
}

func TestNumTimes(t *testing.T) {
	assert.Equal(t, 366, Daily.NumTimes(2024))
	assert.Equal(t, 365, Daily.NumTimes(2023))
	assert.Equal(t, 365, Daily.NumTimes(1900))
	assert.Equal(t, 366, Daily.NumTimes(2000))
	assert.Equal(t, 366*24, Hourly.NumTimes(2024))
	assert.Equal(t, 365, Climatology.NumTimes(2024))
}

func TestClimatologyDate(t *testing.T) {
	got := ClimatologyDate(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
	other := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, other, ClimatologyDate(other))
}

func TestCadenceNames(t *testing.T) {
	assert.Equal(t, "iemre_2024_daily.nc", Daily.FileName(2024))
	assert.Equal(t, "iemre_2024_hourly.nc", Hourly.FileName(2024))
	assert.Equal(t, "iemre_dailyc.nc", Climatology.FileName(2024))

	c, err := ParseCadence("hourly")
	assert.NoError(t, err)
	assert.Equal(t, Hourly, c)
	_, err = ParseCadence("weekly")
	assert.Error(t, err)
}
