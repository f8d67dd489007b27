package domain

import "math"

// TraceValue is stored for precipitation that fell but did not reach the
// 0.01 inch measurable threshold.
const TraceValue = 0.0001

// Plausibility bounds for daily estimates (F and inch).
const (
	MinTemperatureF = -80.0
	MaxTemperatureF = 140.0
	MaxSnowIn       = 100.0
	MaxSnowDepthIn  = 140.0
	TraceThreshold  = 0.01
)

// CheckTemperature validates a high or low temperature (F) and rounds it to
// a whole degree. Bounds are exclusive.
func CheckTemperature(field string, v float64) (float64, error) {
	if math.IsNaN(v) || v <= MinTemperatureF || v >= MaxTemperatureF {
		return 0, &RangeViolation{Field: field, Value: v, Min: MinTemperatureF, Max: MaxTemperatureF}
	}
	return math.Round(v), nil
}

// CheckPrecip validates a daily precipitation total (inch). Amounts below
// the measurable threshold become TraceValue.
func CheckPrecip(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, &RangeViolation{Field: "precip", Value: v, Min: 0, Max: math.Inf(1)}
	}
	if v > 0 && v < TraceThreshold {
		return TraceValue, nil
	}
	return roundTo(v, 2), nil
}

// CheckSnow validates a snowfall total (inch), [0, 100).
func CheckSnow(v float64) (float64, error) {
	return checkHalfOpen("snow", v, MaxSnowIn)
}

// CheckSnowDepth validates a snow depth (inch), [0, 140).
func CheckSnowDepth(v float64) (float64, error) {
	return checkHalfOpen("snowd", v, MaxSnowDepthIn)
}

func checkHalfOpen(field string, v, max float64) (float64, error) {
	if math.IsNaN(v) || v < 0 || v >= max {
		return 0, &RangeViolation{Field: field, Value: v, Min: 0, Max: max}
	}
	return roundTo(v, 1), nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
