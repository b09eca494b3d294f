package opportunity

import (
	"fmt"
	"strings"

	"MarketAnalyst/internal/domain/models"
)

const (
	reasonInsufficientHistory = "insufficient history"
	reasonIndicatorsPending   = "indicators not yet available"
)

// Detect evaluates the second-to-last bar (the last one may still be
// forming) for a short/long EMA cross confirmed by StochRSI leaving an
// extreme zone. It always returns exactly one signal.
func (e *Engine) Detect(ticker string, bars []models.Bar) models.Signal {
	p := e.detector
	n := len(bars)
	if n < p.LongEMA+1 {
		return lastBarSignal(ticker, bars, reasonInsufficientHistory)
	}

	cur, prev := n-2, n-3
	short := e.ind.EMA(bars, p.ShortEMA)
	long := e.ind.EMA(bars, p.LongEMA)
	k, d := e.ind.StochRSI(bars, p.Oscillator)

	sig := models.Signal{
		Ticker:           ticker,
		Time:             bars[cur].Time,
		Price:            bars[cur].Close,
		Oscillator:       k.ValueOr(cur, 0),
		OscillatorSignal: d.ValueOr(cur, 0),
		Direction:        models.DirectionNone,
	}
	for _, s := range []models.Series{short, long, k} {
		if !s.Available(cur) || !s.Available(prev) {
			sig.Reason = reasonIndicatorsPending
			return sig
		}
	}

	bullish := short[prev] < long[prev] && short[cur] > long[cur]
	bearish := short[prev] > long[prev] && short[cur] < long[cur]
	fromOversold := k[prev] < p.Oversold && k[cur] >= p.Oversold
	fromOverbought := k[prev] > p.Overbought && k[cur] <= p.Overbought

	var matched []string
	if bullish {
		matched = append(matched, fmt.Sprintf("EMA%d crossed above EMA%d", p.ShortEMA, p.LongEMA))
	}
	if bearish {
		matched = append(matched, fmt.Sprintf("EMA%d crossed below EMA%d", p.ShortEMA, p.LongEMA))
	}
	if fromOversold {
		matched = append(matched, fmt.Sprintf("StochRSI left oversold (%.2f -> %.2f)", k[prev], k[cur]))
	}
	if fromOverbought {
		matched = append(matched, fmt.Sprintf("StochRSI left overbought (%.2f -> %.2f)", k[prev], k[cur]))
	}

	switch {
	case bullish && fromOversold:
		sig.Direction = models.DirectionCall
		sig.Reason = strings.Join(matched, " and ")
	case bearish && fromOverbought:
		sig.Direction = models.DirectionPut
		sig.Reason = strings.Join(matched, " and ")
	case len(matched) == 0:
		sig.Reason = "no setup"
	default:
		sig.Reason = "no setup: only " + strings.Join(matched, " and ")
	}
	return sig
}
