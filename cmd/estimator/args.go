package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/climate-grid/internal/domain"
)

// parseDates resolves the dates to estimate from the -date flag or three
// positional arguments (year month day). No input returns nil, meaning the
// default of today and yesterday.
func parseDates(dateFlag string, args []string) ([]time.Time, error) {
	if dateFlag != "" && len(args) > 0 {
		return nil, fmt.Errorf("use either -date or year month day, not both")
	}
	if dateFlag != "" {
		d, err := time.Parse(time.DateOnly, dateFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", dateFlag)
		}
		return []time.Time{d}, nil
	}

	switch len(args) {
	case 0:
		return nil, nil
	case 3:
	default:
		return nil, fmt.Errorf("expected year month day, got %d arguments", len(args))
	}

	var parts [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid date component %q", a)
		}
		parts[i] = n
	}
	d := time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
	if d.Year() != parts[0] || int(d.Month()) != parts[1] || d.Day() != parts[2] {
		return nil, fmt.Errorf("invalid date %d-%d-%d", parts[0], parts[1], parts[2])
	}
	return []time.Time{d}, nil
}

// parseStates validates a comma separated state list. Empty means every
// estimation region.
func parseStates(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		st := strings.ToUpper(strings.TrimSpace(part))
		if !domain.ValidState(st) || domain.ExcludedStates[st] {
			return nil, fmt.Errorf("invalid state %q", part)
		}
		out = append(out, st)
	}
	return out, nil
}
