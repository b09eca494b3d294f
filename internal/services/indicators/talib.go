// Package indicators computes technical indicator series on top of go-talib.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/service"
	"MarketAnalyst/internal/services/features"
)

// TalibProvider implements service.IndicatorProvider. talib fills warm-up
// positions with zeros; they are masked to NaN here so callers can tell them
// apart from real values.
type TalibProvider struct{}

var _ service.IndicatorProvider = TalibProvider{}

func NewTalibProvider() TalibProvider { return TalibProvider{} }

func (TalibProvider) EMA(bars []models.Bar, period int) models.Series {
	n := len(bars)
	if period < 1 || n < period {
		return models.UnavailableSeries(n)
	}
	return mask(talib.Ema(features.Closes(bars), period), period-1)
}

func (TalibProvider) RSI(bars []models.Bar, period int) models.Series {
	n := len(bars)
	if period < 2 || n <= period {
		return models.UnavailableSeries(n)
	}
	return mask(talib.Rsi(features.Closes(bars), period), period)
}

func (TalibProvider) MACD(bars []models.Bar, p models.MACDParams) (line, signal, hist models.Series) {
	n := len(bars)
	lookback := p.Slow - 1 + p.Signal - 1
	if p.Fast < 1 || p.Slow <= p.Fast || p.Signal < 1 || n <= lookback {
		return models.UnavailableSeries(n), models.UnavailableSeries(n), models.UnavailableSeries(n)
	}
	m, s, h := talib.Macd(features.Closes(bars), p.Fast, p.Slow, p.Signal)
	return mask(m, lookback), mask(s, lookback), mask(h, lookback)
}

func (TalibProvider) ATR(bars []models.Bar, period int) models.Series {
	n := len(bars)
	if period < 1 || n <= period {
		return models.UnavailableSeries(n)
	}
	return mask(talib.Atr(features.Highs(bars), features.Lows(bars), features.Closes(bars), period), period)
}

// StochRSI applies the stochastic formula to RSI values, smooths it into %K
// and averages %K into %D. Each stage runs on the trimmed output of the
// previous one and the result is shifted back onto bar indices.
func (p TalibProvider) StochRSI(bars []models.Bar, sp models.StochRSIParams) (k, d models.Series) {
	n := len(bars)
	k, d = models.UnavailableSeries(n), models.UnavailableSeries(n)
	if sp.RSIPeriod < 2 || sp.StochPeriod < 1 || sp.SmoothPeriod < 1 || sp.SignalPeriod < 1 {
		return k, d
	}

	rsi := p.RSI(bars, sp.RSIPeriod)
	offset := sp.RSIPeriod
	if n-offset < sp.StochPeriod {
		return k, d
	}
	rsiVals := []float64(rsi[offset:])

	raw := stochastic(rsiVals, sp.StochPeriod)
	offset += sp.StochPeriod - 1
	raw = raw[sp.StochPeriod-1:]
	if len(raw) < sp.SmoothPeriod {
		return k, d
	}

	smoothK := smooth(raw, sp.SmoothPeriod)
	offset += sp.SmoothPeriod - 1
	smoothK = smoothK[sp.SmoothPeriod-1:]
	copy(k[offset:], smoothK)

	if len(smoothK) < sp.SignalPeriod {
		return k, d
	}
	signal := smooth(smoothK, sp.SignalPeriod)
	offset += sp.SignalPeriod - 1
	copy(d[offset:], signal[sp.SignalPeriod-1:])
	return k, d
}

// stochastic returns 100*(v-min)/(max-min) over a rolling window, 0 on a
// flat window. Positions before period-1 are left at 0.
func stochastic(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	var hi, lo []float64
	if period > 1 {
		hi, lo = talib.Max(vals, period), talib.Min(vals, period)
	} else {
		hi, lo = vals, vals
	}
	for i := period - 1; i < len(vals); i++ {
		if rng := hi[i] - lo[i]; rng > 0 {
			out[i] = 100 * (vals[i] - lo[i]) / rng
		}
	}
	return out
}

func smooth(vals []float64, period int) []float64 {
	if period <= 1 {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}
	return talib.Sma(vals, period)
}

// mask converts talib output to a Series with the first lookback positions
// unavailable. Non-finite values are also marked unavailable.
func mask(vals []float64, lookback int) models.Series {
	out := make(models.Series, len(vals))
	for i, v := range vals {
		if i < lookback || math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = models.Unavailable
			continue
		}
		out[i] = v
	}
	return out
}
