package opportunity

import (
	"fmt"

	"MarketAnalyst/internal/domain/models"
)

// LocateExit finds the first bar after entry where the slow StochRSI drops
// back under the exit level. The exit is always Put-typed, whatever the
// entry direction was.
func (e *Engine) LocateExit(ticker string, bars []models.Bar, entry int) models.Signal {
	if !validEntry(bars, entry) {
		return lastBarSignal(ticker, bars, "invalid entry index")
	}
	k, d := e.ind.StochRSI(bars, e.exit.Oscillator)
	return e.locateExit(ticker, bars, k, d, entry)
}

// validEntry reports whether an exit can exist after entry.
func validEntry(bars []models.Bar, entry int) bool {
	return entry >= 0 && entry < len(bars)-1
}

func (e *Engine) locateExit(ticker string, bars []models.Bar, k, d models.Series, entry int) models.Signal {
	n := len(bars)
	if !validEntry(bars, entry) {
		return lastBarSignal(ticker, bars, "invalid entry index")
	}
	level := e.exit.Level
	for i := entry + 1; i < n; i++ {
		if !k.Available(i) || !k.Available(i-1) {
			continue
		}
		if k[i-1] >= level && k[i] < level {
			return models.Signal{
				Ticker:           ticker,
				Time:             bars[i].Time,
				Price:            bars[i].Close,
				Oscillator:       k[i],
				OscillatorSignal: d.ValueOr(i, 0),
				Direction:        models.DirectionPut,
				Reason:           fmt.Sprintf("StochRSI crossed below %.0f (%.2f -> %.2f)", level, k[i-1], k[i]),
			}
		}
	}
	s := lastBarSignal(ticker, bars, "held to last bar")
	s.Oscillator = k.ValueOr(n-1, 0)
	s.OscillatorSignal = d.ValueOr(n-1, 0)
	return s
}
