package opportunity

import (
	"math"

	"MarketAnalyst/internal/domain/models"
)

const (
	PeriodDaily  = "Daily"
	PeriodWeekly = "Weekly"

	reasonHistogram = "decreasing selling pressure on the MACD histogram"
	reasonNoSignal  = "no signal"
)

// Confirm scores a ticker by combining the latest daily and weekly scanner
// signals with the shape of the daily MACD histogram.
func (e *Engine) Confirm(ticker string, daily, weekly []models.Bar) models.ConfirmationScore {
	p := e.confirm
	res := models.ConfirmationScore{Ticker: ticker, Direction: models.DirectionNone, Periods: []string{}}

	var chosen *models.Signal
	if s, ok := latest(e.Scan(ticker, daily)); ok {
		chosen = &s
		res.Score += p.Daily
		res.Periods = append(res.Periods, PeriodDaily)
	}
	if w, ok := latest(e.Scan(ticker, weekly)); ok {
		switch {
		case chosen != nil && w.Direction == chosen.Direction:
			res.Score += p.WeeklyAligned
			res.Periods = append(res.Periods, PeriodWeekly)
		case chosen == nil:
			chosen = &w
			res.Score += p.WeeklyOnly
			res.Periods = append(res.Periods, PeriodWeekly)
		}
	}

	if e.histogramImproving(daily) {
		res.HistogramImproving = true
		res.Score += p.HistogramBonus
	}
	res.Score = round2(clamp(res.Score, 0, 100))

	switch {
	case chosen != nil:
		res.Direction = chosen.Direction
		res.Reason = chosen.Reason
		res.LastPrice = chosen.Price
		res.LastOscillator = chosen.Oscillator
		res.SignalTime = chosen.Time
	case res.HistogramImproving:
		res.Reason = reasonHistogram
	default:
		res.Reason = reasonNoSignal
	}
	return res
}

// histogramImproving is true when the last three histogram bars are all
// negative and shrinking in magnitude.
func (e *Engine) histogramImproving(bars []models.Bar) bool {
	n := len(bars)
	if n < 4 {
		return false
	}
	_, _, hist := e.ind.MACD(bars, e.confirm.MACD)
	a, okA := hist.At(n - 3)
	b, okB := hist.At(n - 2)
	c, okC := hist.At(n - 1)
	if !okA || !okB || !okC {
		return false
	}
	return a < 0 && b < 0 && c < 0 && math.Abs(a) > math.Abs(b) && math.Abs(b) > math.Abs(c)
}

// latest returns the signal with the greatest time; the first one wins ties.
func latest(signals []models.Signal) (models.Signal, bool) {
	if len(signals) == 0 {
		return models.Signal{}, false
	}
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Time.After(best.Time) {
			best = s
		}
	}
	return best, true
}
