package domain

import (
	"fmt"
	"math"
)

// Unit names a physical unit as recorded in grid store metadata.
type Unit string

// Units understood by Convert. Values match the NetCDF "units" attribute.
const (
	Kelvin     Unit = "K"
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
	Millimeter Unit = "mm"
	Inch       Unit = "inch"
)

// Kind distinguishes temperature units from length units.
func (u Unit) Kind() string {
	switch u {
	case Kelvin, Celsius, Fahrenheit:
		return "temperature"
	case Millimeter, Inch:
		return "length"
	default:
		return ""
	}
}

// Convert converts v from one unit to another of the same kind. NaN passes
// through unchanged.
func Convert(v float64, from, to Unit) (float64, error) {
	if from == to {
		return v, nil
	}
	if from.Kind() == "" || from.Kind() != to.Kind() {
		return math.NaN(), fmt.Errorf("cannot convert %q to %q", from, to)
	}
	if from.Kind() == "length" {
		if from == Inch {
			return v * 25.4, nil
		}
		return v / 25.4, nil
	}

	var k float64
	switch from {
	case Kelvin:
		k = v
	case Celsius:
		k = v + 273.15
	case Fahrenheit:
		k = (v-32)*5/9 + 273.15
	}
	switch to {
	case Celsius:
		return k - 273.15, nil
	case Fahrenheit:
		return (k-273.15)*9/5 + 32, nil
	default:
		return k, nil
	}
}

// ConvertSlice converts every value of a 2-D grid in place.
func ConvertSlice(values [][]float64, from, to Unit) error {
	if from == to {
		return nil
	}
	for _, row := range values {
		for i, v := range row {
			c, err := Convert(v, from, to)
			if err != nil {
				return err
			}
			row[i] = c
		}
	}
	return nil
}
