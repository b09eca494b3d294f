package opportunity

import (
	"time"

	"MarketAnalyst/internal/domain/models"
)

// StochCrossUpDate scans from the newest bar backwards for the last time
// StochRSI %K crossed over %D while still below the filter level.
func (e *Engine) StochCrossUpDate(bars []models.Bar) (time.Time, bool) {
	if len(bars) < 2 {
		return time.Time{}, false
	}
	level := e.cross.Level
	k, d := e.ind.StochRSI(bars, e.cross.Oscillator)
	for i := len(bars) - 1; i >= 1; i-- {
		if !k.Available(i) || !d.Available(i) || !k.Available(i-1) || !d.Available(i-1) {
			continue
		}
		if k[i] < level && k[i] >= d[i] && d[i-1] > k[i-1] {
			return bars[i].Time, true
		}
	}
	return time.Time{}, false
}

// SetupResult is the newest bar where StochRSI crossed up through the
// filter level while the MACD histogram rose for three bars.
type SetupResult struct {
	Time         time.Time
	VolumeRising bool // informational only
}

// SetupDate scans from the newest bar backwards for the last setup.
func (e *Engine) SetupDate(bars []models.Bar) (SetupResult, bool) {
	n := len(bars)
	if n < 3 {
		return SetupResult{}, false
	}
	level := e.cross.Level
	k, d := e.ind.StochRSI(bars, e.cross.Oscillator)
	_, _, hist := e.ind.MACD(bars, e.cross.MACD)

	for i := n - 1; i >= 2; i-- {
		if !k.Available(i) || !d.Available(i) || !k.Available(i-1) || !d.Available(i-1) {
			continue
		}
		if !(k[i-1] < level && k[i] >= level) {
			continue
		}
		if !hist.Available(i-2) || !hist.Available(i-1) || !hist.Available(i) {
			continue
		}
		if !(hist[i-2] < hist[i-1] && hist[i-1] < hist[i]) {
			continue
		}
		return SetupResult{
			Time:         bars[i].Time,
			VolumeRising: bars[i-2].Volume < bars[i-1].Volume && bars[i-1].Volume < bars[i].Volume,
		}, true
	}
	return SetupResult{}, false
}
