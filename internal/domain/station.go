package domain

import (
	"strings"
	"time"
)

// Station is a climate site as read from the station registry.
type Station struct {
	ID      string  `db:"id"`
	Name    string  `db:"name"`
	Network string  `db:"network"`
	State   string  `db:"state"`
	Lat     float64 `db:"lat"`
	Lon     float64 `db:"lon"`

	// Observation-day convention: the hour at which the station's daily
	// temperature and precipitation windows end. Nil when unknown.
	Temp24Hour   *int `db:"temp24_hour"`
	Precip24Hour *int `db:"precip24_hour"`
}

// IsAggregateSite reports whether id names a computed statewide or
// climate-district average (e.g. IA0000, IAC005) rather than a real site.
func IsAggregateSite(id string) bool {
	if len(id) < 3 {
		return false
	}
	return id[2] == 'C' || id[2:] == "0000"
}

// MidnightWindow reports whether an observation hour means the daily window
// ends at 00Z (hours 0, 22 and 23) rather than 12Z.
func MidnightWindow(hour *int) bool {
	if hour == nil {
		return false
	}
	switch *hour {
	case 0, 22, 23:
		return true
	}
	return false
}

// ClimateNetwork returns the registry network name for a state.
func ClimateNetwork(state string) string {
	return strings.ToUpper(state) + "CLIMATE"
}

// ASOSNetwork returns the reference network name for a state.
func ASOSNetwork(state string) string {
	return strings.ToUpper(state) + "_ASOS"
}

// DailyEstimate holds the five value fields of a daily record. A nil field
// is missing and is written as NULL.
type DailyEstimate struct {
	High   *float64
	Low    *float64
	Precip *float64
	Snow   *float64
	Snowd  *float64
}

// Empty reports whether every field is missing.
func (e DailyEstimate) Empty() bool {
	return e.High == nil && e.Low == nil && e.Precip == nil && e.Snow == nil && e.Snowd == nil
}

// DailyRecord is a destination row keyed by (station, day).
type DailyRecord struct {
	Station   string    `db:"station"`
	Day       time.Time `db:"day"`
	High      *float64  `db:"high"`
	Low       *float64  `db:"low"`
	Precip    *float64  `db:"precip"`
	Snow      *float64  `db:"snow"`
	Snowd     *float64  `db:"snowd"`
	Estimated *bool     `db:"estimated"`
}

// HasObservedData reports whether the row already carries quality
// controlled values that an estimate must not replace.
func (r DailyRecord) HasObservedData() bool {
	if r.Estimated != nil && *r.Estimated {
		return false
	}
	return r.High != nil || r.Low != nil || r.Precip != nil || r.Snow != nil || r.Snowd != nil
}

// SDay formats the "MMDD" day-of-year key stored with every record.
func SDay(day time.Time) string {
	return day.Format("0102")
}
