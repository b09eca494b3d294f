package opportunity

import (
	"fmt"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/services/features"
)

// Evaluate decides whether a ticker is liquid and volatile enough to watch
// and scores it in [0,1]. A failing result always has score 0.
func (e *Engine) Evaluate(bars []models.Bar) models.EligibilityResult {
	p := e.watchlist
	n := len(bars)
	if n < p.MinBars {
		return models.EligibilityResult{Reason: fmt.Sprintf("insufficient history: %d bars, need %d", n, p.MinBars)}
	}

	lastClose := bars[n-1].Close
	if lastClose < p.MinPrice {
		return models.EligibilityResult{Reason: fmt.Sprintf("price %.2f below minimum %.2f", lastClose, p.MinPrice)}
	}

	avg := features.AverageDollarVolume(bars, p.VolumeWindow)
	if avg < p.MinAvgDollarVolume {
		return models.EligibilityResult{
			Reason:          fmt.Sprintf("average dollar volume %.0f below minimum %.0f", avg, p.MinAvgDollarVolume),
			AvgDollarVolume: avg,
		}
	}

	atr, ok := e.ind.ATR(bars, p.ATRPeriod).Last()
	if !ok {
		return models.EligibilityResult{Reason: "ATR unavailable", AvgDollarVolume: avg}
	}

	atrPct := atr / lastClose
	score := Normalize(avg, p.DollarVolumeLow, p.DollarVolumeHigh)*p.LiquidityWeight +
		Normalize(atrPct, p.ATRPercentLow, p.ATRPercentHigh)*p.VolatilityWeight
	return models.EligibilityResult{
		Passes:          true,
		Score:           clamp(score, 0, 1),
		Reason:          "eligible",
		AvgDollarVolume: avg,
		ATRPercent:      atrPct,
	}
}

// Normalize maps v linearly from [lo,hi] onto [0,1], clamping outside the
// range. A degenerate range is a step at hi.
func Normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		if v >= hi {
			return 1
		}
		return 0
	}
	return clamp((v-lo)/(hi-lo), 0, 1)
}
