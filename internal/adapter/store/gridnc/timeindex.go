package gridnc

import "time"

// TimeIndex returns the record of t on the cadence's time axis:
// days since Jan 1 times records per day, plus the UTC hour for hourly
// stores. The climatology axis has no Feb 29; that day shares Mar 1's
// record and later days shift back by one in leap years.
func TimeIndex(c Cadence, t time.Time) int {
	switch c {
	case Hourly:
		u := t.UTC()
		return (u.YearDay()-1)*24 + u.Hour()
	case Climatology:
		day := t.YearDay() - 1
		if isLeap(t.Year()) && t.YearDay() > 60 {
			day--
		}
		return day
	default:
		return t.YearDay() - 1
	}
}

// ClimatologyDate maps a calendar day onto the date used to look up
// climatology rows: Feb 29 becomes Mar 1.
func ClimatologyDate(t time.Time) time.Time {
	if t.Month() == time.February && t.Day() == 29 {
		return time.Date(t.Year(), time.March, 1, 0, 0, 0, 0, t.Location())
	}
	return t
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
