package models

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the side of an opportunity.
type Direction string

const (
	DirectionNone Direction = "None"
	DirectionCall Direction = "Call"
	DirectionPut  Direction = "Put"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionNone, DirectionCall, DirectionPut:
		return true
	default:
		return false
	}
}

func (d Direction) String() string { return string(d) }

// ParseDirection accepts any casing of Call/Put/None.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call":
		return DirectionCall, nil
	case "put":
		return DirectionPut, nil
	case "none", "":
		return DirectionNone, nil
	}
	return DirectionNone, fmt.Errorf("unknown direction %q", s)
}

// Signal is a snapshot of one bar's evaluation. Exit is only set on entries
// produced by the history scanner and always lies after the entry.
type Signal struct {
	Ticker           string    `json:"ticker"`
	Time             time.Time `json:"time"`
	Price            float64   `json:"price"`
	Oscillator       float64   `json:"oscillator"`
	OscillatorSignal float64   `json:"oscillator_signal"`
	Direction        Direction `json:"direction"`
	Reason           string    `json:"reason"`
	Exit             *Signal   `json:"exit,omitempty"`
}

// IsEntry reports whether the signal carries a tradable direction.
func (s Signal) IsEntry() bool {
	return s.Direction == DirectionCall || s.Direction == DirectionPut
}

// EligibilityResult is the outcome of the liquidity/volatility watchlist gate.
type EligibilityResult struct {
	Passes          bool    `json:"passes"`
	Score           float64 `json:"score"`
	Reason          string  `json:"reason"`
	AvgDollarVolume float64 `json:"avg_dollar_volume"`
	ATRPercent      float64 `json:"atr_percent"`
}

// ConfirmationScore is the multi-timeframe score for a ticker.
type ConfirmationScore struct {
	Ticker             string    `json:"ticker"`
	Score              float64   `json:"score"`
	Direction          Direction `json:"direction"`
	Reason             string    `json:"reason"`
	Periods            []string  `json:"periods"`
	LastPrice          float64   `json:"last_price"`
	LastOscillator     float64   `json:"last_oscillator"`
	SignalTime         time.Time `json:"signal_time"`
	HistogramImproving bool      `json:"histogram_improving"`
}

// StochRSIParams configures a stochastic RSI computation.
type StochRSIParams struct {
	RSIPeriod    int `json:"rsi_period"`
	StochPeriod  int `json:"stoch_period"`
	SignalPeriod int `json:"signal_period"` // %D smoothing of %K
	SmoothPeriod int `json:"smooth_period"` // %K smoothing of the raw stochastic
}

// MACDParams configures a MACD computation.
type MACDParams struct {
	Fast   int `json:"fast"`
	Slow   int `json:"slow"`
	Signal int `json:"signal"`
}
