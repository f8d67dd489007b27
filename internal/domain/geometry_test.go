package domain

import (
	"errors"
	"math"
	"testing"
)

func TestIEMREDimensions(t *testing.T) {
	g := IEMRE()
	if g.NX != 192 || g.NY != 104 {
		t.Fatalf("expected 192x104 grid, got %dx%d", g.NX, g.NY)
	}
	if math.Abs(g.East()-IEMREEast) > 1e-9 || math.Abs(g.North()-IEMRENorth) > 1e-9 {
		t.Errorf("unexpected extent: east=%v north=%v", g.East(), g.North())
	}
}

func TestCellOf(t *testing.T) {
	g := IEMRE()

	tests := []struct {
		name     string
		lat, lon float64
		wantI    int
		wantJ    int
	}{
		{"ames", 41.99, -93.62, 83, 47},
		{"southwest corner", 36.0, -104.0, 0, 0},
		{"northeast edge clamps", 49.0, -80.0, 191, 103},
		{"just outside west within tolerance", 40.0, -104.1, 0, 32},
		{"just outside north within tolerance", 49.1, -90.0, 112, 103},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, j, err := g.CellOf(tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("CellOf(%v, %v): %v", tt.lat, tt.lon, err)
			}
			if i != tt.wantI || j != tt.wantJ {
				t.Errorf("CellOf(%v, %v) = (%d, %d), want (%d, %d)", tt.lat, tt.lon, i, j, tt.wantI, tt.wantJ)
			}
		})
	}
}

func TestCellOfOutOfDomain(t *testing.T) {
	g := IEMRE()
	for _, c := range [][2]float64{{30.0, -93.0}, {42.0, -110.0}, {55.0, -90.0}, {math.NaN(), -93.0}} {
		_, _, err := g.CellOf(c[0], c[1])
		if err == nil {
			t.Fatalf("CellOf(%v, %v): expected error", c[0], c[1])
		}
		var ood *OutOfDomainError
		if !errors.As(err, &ood) {
			t.Errorf("expected OutOfDomainError, got %T", err)
		}
		if !errors.Is(err, ErrOutOfDomain) {
			t.Errorf("expected errors.Is(err, ErrOutOfDomain)")
		}
	}
}

func TestCellCenterInvertsCellOf(t *testing.T) {
	g := IEMRE()
	for _, ij := range [][2]int{{0, 0}, {83, 47}, {191, 103}, {100, 20}} {
		lat, lon, err := g.CellCenter(ij[0], ij[1])
		if err != nil {
			t.Fatalf("CellCenter: %v", err)
		}
		i, j, err := g.CellOf(lat, lon)
		if err != nil {
			t.Fatalf("CellOf: %v", err)
		}
		if i != ij[0] || j != ij[1] {
			t.Errorf("round trip (%d, %d) -> (%v, %v) -> (%d, %d)", ij[0], ij[1], lat, lon, i, j)
		}
	}

	if _, _, err := g.CellCenter(192, 0); err == nil {
		t.Errorf("expected error for column outside grid")
	}
}

func TestAxesAreCellCenters(t *testing.T) {
	g := IEMRE()
	xs, ys := g.XAxis(), g.YAxis()
	if len(xs) != g.NX || len(ys) != g.NY {
		t.Fatalf("axis lengths %d/%d", len(xs), len(ys))
	}
	if math.Abs(xs[0]-(-103.9375)) > 1e-9 || math.Abs(ys[0]-36.0625) > 1e-9 {
		t.Errorf("first centers = (%v, %v)", xs[0], ys[0])
	}
}

func TestNewGeometryValidation(t *testing.T) {
	if _, err := NewGeometry(0, 0, 0, 1, 10, 10, 0); err == nil {
		t.Error("expected error for zero dx")
	}
	if _, err := NewGeometry(0, 0, 1, 1, 0, 10, 0); err == nil {
		t.Error("expected error for zero nx")
	}
	if _, err := NewGeometry(0, 0, 1, 1, 10, 10, -1); err == nil {
		t.Error("expected error for negative tolerance")
	}
	g, err := NewGeometry(-10, 0, 1, 1, 10, 10, 0)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	if _, _, err := g.CellOf(5, -10.5); err == nil {
		t.Error("expected zero tolerance to reject coordinates west of the grid")
	}
}
