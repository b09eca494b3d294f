// Package opportunity turns normalized bars into trading opportunity signals.
// Everything here is pure: no I/O, no logging, no shared mutable state, so an
// Engine may be used from any number of goroutines.
package opportunity

import (
	"math"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/service"
)

// DetectorParams configures the single-bar detector.
type DetectorParams struct {
	ShortEMA   int
	LongEMA    int
	Oscillator models.StochRSIParams
	Oversold   float64
	Overbought float64
}

// DefaultDetectorParams returns EMA 12/26 with StochRSI 14/14/3/3 and 30/70 bands.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		ShortEMA:   12,
		LongEMA:    26,
		Oscillator: models.StochRSIParams{RSIPeriod: 14, StochPeriod: 14, SignalPeriod: 3, SmoothPeriod: 3},
		Oversold:   30,
		Overbought: 70,
	}
}

// ScannerParams configures the history scanner.
type ScannerParams struct {
	MinBars      int
	Oscillator   models.StochRSIParams
	MACD         models.MACDParams
	CallLevel    float64
	PutLevel     float64
	MinPutSpread float64 // minimum |macd-signal| on a bearish cross
}

// DefaultScannerParams returns StochRSI 14/14/3/3 with MACD 12/26/9 and 20/80 levels.
func DefaultScannerParams() ScannerParams {
	return ScannerParams{
		MinBars:      60,
		Oscillator:   models.StochRSIParams{RSIPeriod: 14, StochPeriod: 14, SignalPeriod: 3, SmoothPeriod: 3},
		MACD:         models.MACDParams{Fast: 12, Slow: 26, Signal: 9},
		CallLevel:    20,
		PutLevel:     80,
		MinPutSpread: 0.09,
	}
}

// ExitParams configures the exit locator.
type ExitParams struct {
	Oscillator models.StochRSIParams
	Level      float64
}

// DefaultExitParams returns StochRSI 14/14/9/9 crossing below 80.
func DefaultExitParams() ExitParams {
	return ExitParams{
		Oscillator: models.StochRSIParams{RSIPeriod: 14, StochPeriod: 14, SignalPeriod: 9, SmoothPeriod: 9},
		Level:      80,
	}
}

// WatchlistParams configures the eligibility gate and its score.
type WatchlistParams struct {
	MinBars            int
	MinPrice           float64
	MinAvgDollarVolume float64
	VolumeWindow       int
	ATRPeriod          int
	DollarVolumeLow    float64
	DollarVolumeHigh   float64
	ATRPercentLow      float64
	ATRPercentHigh     float64
	LiquidityWeight    float64
	VolatilityWeight   float64
}

// DefaultWatchlistParams returns the 250-bar liquidity and volatility gate.
func DefaultWatchlistParams() WatchlistParams {
	return WatchlistParams{
		MinBars:            250,
		MinPrice:           5,
		MinAvgDollarVolume: 5_000_000,
		VolumeWindow:       20,
		ATRPeriod:          14,
		DollarVolumeLow:    10_000_000,
		DollarVolumeHigh:   50_000_000,
		ATRPercentLow:      0.01,
		ATRPercentHigh:     0.08,
		LiquidityWeight:    0.6,
		VolatilityWeight:   0.4,
	}
}

// ConfirmationParams weights the multi-timeframe score.
type ConfirmationParams struct {
	Daily          float64
	WeeklyAligned  float64
	WeeklyOnly     float64
	HistogramBonus float64
	MACD           models.MACDParams
}

// DefaultConfirmationParams returns the 50/40/30 weights plus a 10 point histogram bonus.
func DefaultConfirmationParams() ConfirmationParams {
	return ConfirmationParams{
		Daily:          50,
		WeeklyAligned:  40,
		WeeklyOnly:     30,
		HistogramBonus: 10,
		MACD:           models.MACDParams{Fast: 12, Slow: 26, Signal: 9},
	}
}

// MonthlyParams configures the monthly trend scanner.
type MonthlyParams struct {
	FastEMA      int
	SlowEMA      int
	RSIPeriod    int
	RSILevel     float64
	RSICeiling   float64
	VolumeWindow int
	ExtraBars    int // bars required beyond SlowEMA
}

// DefaultMonthlyParams returns EMA 9/21 with RSI 14 crossing 50.
func DefaultMonthlyParams() MonthlyParams {
	return MonthlyParams{
		FastEMA:      9,
		SlowEMA:      21,
		RSIPeriod:    14,
		RSILevel:     50,
		RSICeiling:   70,
		VolumeWindow: 12,
		ExtraBars:    5,
	}
}

// CrossFilterParams configures the StochRSI cross-date filters.
type CrossFilterParams struct {
	Oscillator models.StochRSIParams
	MACD       models.MACDParams
	Level      float64
}

// DefaultCrossFilterParams returns StochRSI 14/14/3/3 and MACD 12/26/9 around level 20.
func DefaultCrossFilterParams() CrossFilterParams {
	return CrossFilterParams{
		Oscillator: models.StochRSIParams{RSIPeriod: 14, StochPeriod: 14, SignalPeriod: 3, SmoothPeriod: 3},
		MACD:       models.MACDParams{Fast: 12, Slow: 26, Signal: 9},
		Level:      20,
	}
}

// Option overrides one parameter set of an Engine.
type Option func(*Engine)

// WithDetectorParams sets the single-bar detector parameters.
func WithDetectorParams(p DetectorParams) Option { return func(e *Engine) { e.detector = p } }

// WithScannerParams sets the history scanner parameters.
func WithScannerParams(p ScannerParams) Option { return func(e *Engine) { e.scanner = p } }

// WithExitParams sets the exit locator parameters.
func WithExitParams(p ExitParams) Option { return func(e *Engine) { e.exit = p } }

// WithWatchlistParams sets the eligibility gate parameters.
func WithWatchlistParams(p WatchlistParams) Option { return func(e *Engine) { e.watchlist = p } }

// WithConfirmationParams sets the confirmation score weights.
func WithConfirmationParams(p ConfirmationParams) Option { return func(e *Engine) { e.confirm = p } }

// WithMonthlyParams sets the monthly scanner parameters.
func WithMonthlyParams(p MonthlyParams) Option { return func(e *Engine) { e.monthly = p } }

// WithCrossFilterParams sets the cross-date filter parameters.
func WithCrossFilterParams(p CrossFilterParams) Option { return func(e *Engine) { e.cross = p } }

// Engine bundles the detectors with their parameters and the indicator provider.
type Engine struct {
	ind       service.IndicatorProvider
	detector  DetectorParams
	scanner   ScannerParams
	exit      ExitParams
	watchlist WatchlistParams
	confirm   ConfirmationParams
	monthly   MonthlyParams
	cross     CrossFilterParams
}

// NewEngine builds an Engine on ind with default parameters, then applies opts.
func NewEngine(ind service.IndicatorProvider, opts ...Option) *Engine {
	e := &Engine{
		ind:       ind,
		detector:  DefaultDetectorParams(),
		scanner:   DefaultScannerParams(),
		exit:      DefaultExitParams(),
		watchlist: DefaultWatchlistParams(),
		confirm:   DefaultConfirmationParams(),
		monthly:   DefaultMonthlyParams(),
		cross:     DefaultCrossFilterParams(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lastBarSignal is the None result anchored on the final bar (zero values
// when there are no bars).
func lastBarSignal(ticker string, bars []models.Bar, reason string) models.Signal {
	s := models.Signal{Ticker: ticker, Direction: models.DirectionNone, Reason: reason}
	if n := len(bars); n > 0 {
		s.Time = bars[n-1].Time
		s.Price = bars[n-1].Close
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
