package domain

import (
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		v        float64
		from, to Unit
		want     float64
	}{
		{273.15, Kelvin, Celsius, 0},
		{273.15, Kelvin, Fahrenheit, 32},
		{305.93, Kelvin, Fahrenheit, 91.004},
		{212, Fahrenheit, Celsius, 100},
		{-40, Celsius, Fahrenheit, -40},
		{25.4, Millimeter, Inch, 1},
		{1.27, Inch, Millimeter, 32.258},
		{5, Inch, Inch, 5},
	}

	for _, tt := range tests {
		got, err := Convert(tt.v, tt.from, tt.to)
		if err != nil {
			t.Fatalf("Convert(%v, %s, %s): %v", tt.v, tt.from, tt.to, err)
		}
		if math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.v, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestConvertRejectsMixedKinds(t *testing.T) {
	if _, err := Convert(1, Kelvin, Millimeter); err == nil {
		t.Error("expected error converting temperature to length")
	}
	if _, err := Convert(1, Unit("furlong"), Inch); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestConvertSliceKeepsNaN(t *testing.T) {
	values := [][]float64{{25.4, math.NaN()}, {0, 50.8}}
	if err := ConvertSlice(values, Millimeter, Inch); err != nil {
		t.Fatalf("ConvertSlice: %v", err)
	}
	if values[0][0] != 1 || !math.IsNaN(values[0][1]) || values[1][0] != 0 || values[1][1] != 2 {
		t.Errorf("unexpected values %v", values)
	}
}
