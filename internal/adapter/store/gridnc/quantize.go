package gridnc

import "math"

// Quantize converts a physical value to its stored representation, rounding
// to the nearest unit of Scale. NaN becomes Fill. Values beyond the valid
// range are clamped to the nearest boundary and clamped is set.
func Quantize(v float64, s VarSpec) (raw uint16, clamped bool) {
	if math.IsNaN(v) {
		return s.Fill, false
	}
	r := math.Round((v - s.Offset) / s.Scale)
	if r < float64(s.ValidMin) {
		return s.ValidMin, true
	}
	if r > float64(s.ValidMax) {
		return s.ValidMax, true
	}
	return uint16(r), false
}

// Dequantize converts a stored value back to physical units. Fill reads as
// NaN.
func Dequantize(raw uint16, s VarSpec) float64 {
	if raw == s.Fill {
		return math.NaN()
	}
	return float64(raw)*s.Scale + s.Offset
}

// ClampReport counts the values of one slice write that had to be clamped.
type ClampReport struct {
	Variable string
	Below    int
	Above    int
}

// Clamped returns the total number of clamped cells.
func (r ClampReport) Clamped() int { return r.Below + r.Above }
