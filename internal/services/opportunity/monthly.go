package opportunity

import (
	"fmt"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/services/features"
)

// ScanMonthly looks for long-term trend starts on monthly bars: a fast EMA
// crossing over the slow one, price above both, RSI crossing its midline and
// volume above its trailing average. Only Call signals are produced.
func (e *Engine) ScanMonthly(ticker string, bars []models.Bar) []models.Signal {
	p := e.monthly
	n := len(bars)
	if n < p.SlowEMA+p.ExtraBars {
		return []models.Signal{}
	}

	fast := e.ind.EMA(bars, p.FastEMA)
	slow := e.ind.EMA(bars, p.SlowEMA)
	rsi := e.ind.RSI(bars, p.RSIPeriod)

	out := []models.Signal{}
	for i := 1; i < n; i++ {
		if !fast.Available(i) || !slow.Available(i) || !rsi.Available(i) ||
			!fast.Available(i-1) || !slow.Available(i-1) || !rsi.Available(i-1) {
			continue
		}
		c := bars[i].Close
		bullishCross := fast[i-1] < slow[i-1] && fast[i] > slow[i]
		aboveBoth := c > fast[i] && c > slow[i]
		rsiCross := rsi[i-1] < p.RSILevel && rsi[i] > p.RSILevel && rsi[i] < p.RSICeiling
		avgVol := features.AverageVolume(bars, i, p.VolumeWindow)
		volumeUp := avgVol > 0 && bars[i].Volume > avgVol

		if bullishCross && aboveBoth && rsiCross && volumeUp {
			out = append(out, models.Signal{
				Ticker:     ticker,
				Time:       bars[i].Time,
				Price:      c,
				Oscillator: rsi[i],
				Direction:  models.DirectionCall,
				Reason: fmt.Sprintf("monthly EMA%d crossed above EMA%d, price above both, RSI crossed %.0f (%.2f) and volume above the %d-bar average",
					p.FastEMA, p.SlowEMA, p.RSILevel, rsi[i], p.VolumeWindow),
			})
		}
	}
	return out
}
