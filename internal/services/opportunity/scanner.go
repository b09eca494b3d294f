package opportunity

import (
	"fmt"
	"math"

	"MarketAnalyst/internal/domain/models"
)

// Scan walks the whole history and returns every Call/Put entry in
// ascending time order, each with its exit attached. Histories shorter than
// the configured minimum yield no signals.
func (e *Engine) Scan(ticker string, bars []models.Bar) []models.Signal {
	p := e.scanner
	n := len(bars)
	if n < p.MinBars {
		return []models.Signal{}
	}

	k, d := e.ind.StochRSI(bars, p.Oscillator)
	macd, signal, _ := e.ind.MACD(bars, p.MACD)
	exitK, exitD := e.ind.StochRSI(bars, e.exit.Oscillator)

	out := []models.Signal{}
	for i := 1; i < n; i++ {
		ready := true
		for _, s := range []models.Series{k, macd, signal} {
			if !s.Available(i) || !s.Available(i-1) {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		prevK, curK := k[i-1], k[i]
		prevM, curM := macd[i-1], macd[i]
		prevS, curS := signal[i-1], signal[i]

		var dir models.Direction
		var reason string
		switch {
		case prevK < p.CallLevel && curK >= p.CallLevel && curM < 0 && curM > prevM:
			dir = models.DirectionCall
			reason = fmt.Sprintf("StochRSI crossed above %.0f (%.2f -> %.2f) with MACD below zero and rising (%.4f -> %.4f)",
				p.CallLevel, prevK, curK, prevM, curM)
		case prevK > p.PutLevel && curK <= p.PutLevel &&
			prevM >= prevS && curM < curS && math.Abs(curM-curS) >= p.MinPutSpread && curM > 0:
			dir = models.DirectionPut
			reason = fmt.Sprintf("StochRSI crossed below %.0f (%.2f -> %.2f) with MACD crossing under its signal above zero (%.4f < %.4f)",
				p.PutLevel, prevK, curK, curM, curS)
		default:
			continue
		}

		exit := e.locateExit(ticker, bars, exitK, exitD, i)
		out = append(out, models.Signal{
			Ticker:           ticker,
			Time:             bars[i].Time,
			Price:            bars[i].Close,
			Oscillator:       curK,
			OscillatorSignal: d.ValueOr(i, 0),
			Direction:        dir,
			Reason:           reason,
			Exit:             &exit,
		})
	}
	return out
}
