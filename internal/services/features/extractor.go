package features

import (
	"sort"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/pkg/util"
)

// NormalizeQuotes turns raw quotes into bars ordered by time. Missing fields
// become 0 and for repeated timestamps the first record in input order wins.
func NormalizeQuotes(quotes []models.Quote) []models.Bar {
	if len(quotes) == 0 {
		return []models.Bar{}
	}
	sorted := make([]models.Quote, len(quotes))
	copy(sorted, quotes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	bars := make([]models.Bar, 0, len(sorted))
	for i, q := range sorted {
		if i > 0 && q.Date == sorted[i-1].Date {
			continue
		}
		bars = append(bars, models.Bar{
			Time:   util.FromUnix(q.Date),
			Open:   floatOrZero(q.Open),
			High:   floatOrZero(q.High),
			Low:    floatOrZero(q.Low),
			Close:  floatOrZero(q.Close),
			Volume: float64(intOrZero(q.Volume)),
		})
	}
	return bars
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// Closes extracts close prices.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func Highs(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func Lows(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

func Volumes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// AverageDollarVolume is the mean of close*volume over the trailing window
// (fewer bars when the history is shorter). Returns 0 for no bars.
func AverageDollarVolume(bars []models.Bar, window int) float64 {
	if len(bars) == 0 || window <= 0 {
		return 0
	}
	start := len(bars) - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, b := range bars[start:] {
		sum += b.Close * b.Volume
	}
	return sum / float64(len(bars)-start)
}

// AverageVolume is the mean volume of the window bars ending at end (inclusive).
func AverageVolume(bars []models.Bar, end, window int) float64 {
	if end < 0 || end >= len(bars) || window <= 0 {
		return 0
	}
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, b := range bars[start : end+1] {
		sum += b.Volume
	}
	return sum / float64(end-start+1)
}
