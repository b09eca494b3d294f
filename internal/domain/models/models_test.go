package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesAvailability(t *testing.T) {
	s := Series{Unavailable, 1.5, math.Inf(1), 3}
	assert.False(t, s.Available(0))
	assert.True(t, s.Available(1))
	assert.False(t, s.Available(2))
	assert.False(t, s.Available(-1))
	assert.False(t, s.Available(4))
	assert.Equal(t, 7.0, s.ValueOr(0, 7))

	v, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = Series{}.Last()
	assert.False(t, ok)
	assert.Len(t, UnavailableSeries(3), 3)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("CALL")
	require.NoError(t, err)
	assert.Equal(t, DirectionCall, d)

	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionNone, d)

	_, err = ParseDirection("long")
	assert.Error(t, err)
	assert.False(t, Direction("long").Valid())
}

func TestTickerFilterMatch(t *testing.T) {
	min, max := 40.0, 80.0
	f := TickerFilter{Code: "PETR", Sector: "Energy", MinScore: &min, MaxScore: &max}

	assert.True(t, f.Match(Ticker{Code: "PETR4", Sector: "Energy", Score: 55}))
	assert.False(t, f.Match(Ticker{Code: "petr4", Sector: "Energy", Score: 55}))
	assert.False(t, f.Match(Ticker{Code: "PETR4", Sector: "Finance", Score: 55}))
	assert.False(t, f.Match(Ticker{Code: "PETR4", Sector: "Energy", Score: 39.99}))
	assert.False(t, f.Match(Ticker{Code: "PETR4", Sector: "Energy", Score: 80.01}))
	assert.True(t, TickerFilter{}.Match(Ticker{Code: "X"}))
}

func TestNewOpportunityAnalysis(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sigTime := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	a := NewOpportunityAnalysis("id-1", ConfirmationScore{
		Ticker:     "VALE3",
		Score:      90,
		Direction:  DirectionCall,
		Reason:     "r",
		Periods:    []string{"Daily", "Weekly"},
		LastPrice:  61.2,
		SignalTime: sigTime,
	}, now)

	assert.Equal(t, "Daily;Weekly", a.PeriodsConfirmed)
	assert.Equal(t, sigTime, a.Date)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, DirectionCall, a.Type)

	empty := NewOpportunityAnalysis("id-2", ConfirmationScore{Ticker: "X", Direction: DirectionNone}, now)
	assert.Equal(t, now, empty.Date)
	assert.Equal(t, "", empty.PeriodsConfirmed)
}

func TestTickerListRequestFilter(t *testing.T) {
	f := TickerListRequest{Code: "VA", MinScore: "10.5", MaxScore: ""}.Filter()
	require.NotNil(t, f.MinScore)
	assert.Equal(t, 10.5, *f.MinScore)
	assert.Nil(t, f.MaxScore)
}
