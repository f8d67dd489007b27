package domain

// States lists the two-letter codes of every state with a climate network.
var States = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// ExcludedStates are outside every analysis grid.
var ExcludedStates = map[string]bool{"AK": true, "HI": true}

// EstimationRegions returns the states processed by a backfill run.
func EstimationRegions() []string {
	out := make([]string, 0, len(States))
	for _, st := range States {
		if !ExcludedStates[st] {
			out = append(out, st)
		}
	}
	return out
}

// ValidState reports whether st is a known two-letter state code.
func ValidState(st string) bool {
	for _, s := range States {
		if s == st {
			return true
		}
	}
	return false
}
