package models

import (
	"math"
	"time"
)

// Quote is one raw history record as returned by a market data source.
// Any numeric field may be missing.
type Quote struct {
	Date          int64    `json:"date"` // unix seconds, UTC
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Close         *float64 `json:"close"`
	Volume        *int64   `json:"volume"`
	AdjustedClose *float64 `json:"adjustedClose"`
}

// QuoteHistory is a ticker's raw history for one range/interval request.
type QuoteHistory struct {
	Ticker      string  `json:"ticker"`
	Range       string  `json:"range"`
	Interval    string  `json:"interval"`
	MarketPrice float64 `json:"market_price"`
	Quotes      []Quote `json:"quotes"`
}

// Bar is a normalized OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an indicator series aligned index-for-index with a bar slice.
// NaN marks positions where the indicator is not yet available.
type Series []float64

// Unavailable is the marker stored at warm-up positions.
var Unavailable = math.NaN()

// Available reports whether index i is in range and holds a finite value.
func (s Series) Available(i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	v := s[i]
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// At returns the value at i and whether it is available.
func (s Series) At(i int) (float64, bool) {
	if !s.Available(i) {
		return 0, false
	}
	return s[i], true
}

// ValueOr returns the value at i or def when unavailable.
func (s Series) ValueOr(i int, def float64) float64 {
	if v, ok := s.At(i); ok {
		return v
	}
	return def
}

// Last returns the final value and whether it is available.
func (s Series) Last() (float64, bool) {
	return s.At(len(s) - 1)
}

// UnavailableSeries returns a series of n unavailable positions.
func UnavailableSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = Unavailable
	}
	return s
}
