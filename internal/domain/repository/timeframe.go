package repository

// Interval is a bar resolution understood by the market data source.
type Interval string

const (
	IntervalDaily   Interval = "1d"
	IntervalWeekly  Interval = "1wk"
	IntervalMonthly Interval = "1mo"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	default:
		return false
	}
}

// NormalizeInterval converts raw string to a valid interval (or daily).
func NormalizeInterval(s string) Interval {
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return IntervalDaily
}

// Timeframe labels used in confirmed periods and metrics.
func (iv Interval) Timeframe() string {
	switch iv {
	case IntervalWeekly:
		return "Weekly"
	case IntervalMonthly:
		return "Monthly"
	default:
		return "Daily"
	}
}

var validRanges = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// IsValidRange reports whether rng is a history range the source accepts.
func IsValidRange(rng string) bool { return validRanges[rng] }
