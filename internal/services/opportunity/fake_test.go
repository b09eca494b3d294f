package opportunity

import (
	"time"

	"MarketAnalyst/internal/domain/models"
)

// seriesSet holds canned indicator output for one history length.
type seriesSet struct {
	ema                map[int]models.Series
	rsi                map[int]models.Series
	k, d               map[models.StochRSIParams]models.Series
	macd, signal, hist models.Series
	atr                models.Series
}

func newSet() *seriesSet {
	return &seriesSet{
		ema: map[int]models.Series{},
		rsi: map[int]models.Series{},
		k:   map[models.StochRSIParams]models.Series{},
		d:   map[models.StochRSIParams]models.Series{},
	}
}

// fakeProvider returns canned series keyed by the number of bars, so daily
// and weekly histories of different lengths can be told apart.
type fakeProvider struct {
	byLen map[int]*seriesSet
}

func newFake() *fakeProvider { return &fakeProvider{byLen: map[int]*seriesSet{}} }

func (f *fakeProvider) set(n int) *seriesSet {
	s, ok := f.byLen[n]
	if !ok {
		s = newSet()
		f.byLen[n] = s
	}
	return s
}

func orUnavailable(s models.Series, n int) models.Series {
	if s == nil {
		return models.UnavailableSeries(n)
	}
	return s
}

func (f *fakeProvider) EMA(bars []models.Bar, period int) models.Series {
	return orUnavailable(f.set(len(bars)).ema[period], len(bars))
}

func (f *fakeProvider) RSI(bars []models.Bar, period int) models.Series {
	return orUnavailable(f.set(len(bars)).rsi[period], len(bars))
}

func (f *fakeProvider) StochRSI(bars []models.Bar, p models.StochRSIParams) (models.Series, models.Series) {
	s := f.set(len(bars))
	return orUnavailable(s.k[p], len(bars)), orUnavailable(s.d[p], len(bars))
}

func (f *fakeProvider) MACD(bars []models.Bar, _ models.MACDParams) (models.Series, models.Series, models.Series) {
	s := f.set(len(bars))
	n := len(bars)
	return orUnavailable(s.macd, n), orUnavailable(s.signal, n), orUnavailable(s.hist, n)
}

func (f *fakeProvider) ATR(bars []models.Bar, _ int) models.Series {
	return orUnavailable(f.set(len(bars)).atr, len(bars))
}

var (
	fastStoch = DefaultScannerParams().Oscillator
	exitStoch = DefaultExitParams().Oscillator
)

var t0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func makeBars(n int, close, volume float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Time:   t0.AddDate(0, 0, i),
			Open:   close,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: volume,
		}
	}
	return bars
}

// filled returns a fully available series of v with overrides applied.
func filled(n int, v float64, overrides map[int]float64) models.Series {
	s := make(models.Series, n)
	for i := range s {
		s[i] = v
	}
	for i, ov := range overrides {
		s[i] = ov
	}
	return s
}
