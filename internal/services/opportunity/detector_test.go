package opportunity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
)

func detectorFixture(n int, shortPrev, shortCur, kPrev, kCur float64) (*Engine, []models.Bar) {
	f := newFake()
	s := f.set(n)
	s.ema[12] = filled(n, 10, map[int]float64{n - 3: shortPrev, n - 2: shortCur})
	s.ema[26] = filled(n, 10, nil)
	s.k[fastStoch] = filled(n, 50, map[int]float64{n - 3: kPrev, n - 2: kCur})
	s.d[fastStoch] = filled(n, 40, nil)
	return NewEngine(f), makeBars(n, 25, 1000)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		bars      int
		shortPrev float64
		shortCur  float64
		kPrev     float64
		kCur      float64
		want      models.Direction
		reason    string
	}{
		{"bullish cross from oversold", 40, 9, 11, 25, 35, models.DirectionCall, "crossed above"},
		{"oversold boundary is inclusive", 40, 9, 11, 29.9, 30, models.DirectionCall, "left oversold"},
		{"30 bars crossing at the boundary bar", 30, 9.9, 10.1, 28, 32, models.DirectionCall, "StochRSI left oversold (28.00 -> 32.00)"},
		{"bearish cross from overbought", 40, 11, 9, 75, 65, models.DirectionPut, "crossed below"},
		{"overbought boundary is inclusive", 40, 11, 9, 70.1, 70, models.DirectionPut, "left overbought"},
		{"cross without oscillator", 40, 9, 11, 50, 55, models.DirectionNone, "only EMA12 crossed above EMA26"},
		{"oscillator without cross", 40, 11, 12, 25, 35, models.DirectionNone, "only StochRSI left oversold"},
		{"bullish cross with overbought exit", 40, 9, 11, 75, 65, models.DirectionNone, "no setup: only"},
		{"nothing", 40, 10.5, 10.6, 50, 51, models.DirectionNone, "no setup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, bars := detectorFixture(tt.bars, tt.shortPrev, tt.shortCur, tt.kPrev, tt.kCur)
			sig := e.Detect("PETR4", bars)
			assert.Equal(t, tt.want, sig.Direction)
			assert.Contains(t, sig.Reason, tt.reason)
			assert.Equal(t, bars[tt.bars-2].Time, sig.Time)
			assert.Equal(t, "PETR4", sig.Ticker)
			assert.Nil(t, sig.Exit)
		})
	}
}

func TestDetectSnapshotValues(t *testing.T) {
	e, bars := detectorFixture(40, 9, 11, 25, 35)
	bars[38].Close = 31.5
	sig := e.Detect("VALE3", bars)
	assert.Equal(t, 31.5, sig.Price)
	assert.Equal(t, 35.0, sig.Oscillator)
	assert.Equal(t, 40.0, sig.OscillatorSignal)
}

func TestDetectIgnoresLatestBar(t *testing.T) {
	n := 40
	f := newFake()
	s := f.set(n)
	// cross and oscillator move only on the final bar
	s.ema[12] = filled(n, 9, map[int]float64{n - 1: 11})
	s.ema[26] = filled(n, 10, nil)
	s.k[fastStoch] = filled(n, 25, map[int]float64{n - 1: 35})
	sig := NewEngine(f).Detect("ITUB4", makeBars(n, 20, 1))
	assert.Equal(t, models.DirectionNone, sig.Direction)
}

func TestDetectInsufficientHistory(t *testing.T) {
	e := NewEngine(newFake())

	bars := makeBars(26, 12, 100)
	sig := e.Detect("BBAS3", bars)
	assert.Equal(t, models.DirectionNone, sig.Direction)
	assert.Equal(t, "insufficient history", sig.Reason)
	assert.Equal(t, bars[25].Time, sig.Time)
	assert.Equal(t, 12.0, sig.Price)

	sig = e.Detect("BBAS3", nil)
	assert.Equal(t, models.DirectionNone, sig.Direction)
	assert.True(t, sig.Time.IsZero())
	assert.Equal(t, time.Time{}, sig.Time)
}

func TestDetectIndicatorsNotReady(t *testing.T) {
	n := 27
	f := newFake()
	s := f.set(n)
	s.ema[12] = filled(n, 9, map[int]float64{n - 2: 11})
	s.ema[26] = filled(n, 10, nil)
	// oscillator still warming up at n-3
	k := filled(n, 35, nil)
	k[n-3] = models.Unavailable
	s.k[fastStoch] = k

	sig := NewEngine(f).Detect("WEGE3", makeBars(n, 40, 1))
	require.Equal(t, models.DirectionNone, sig.Direction)
	assert.Equal(t, "indicators not yet available", sig.Reason)
	assert.Equal(t, 35.0, sig.Oscillator)
}

func TestShortHistoryYieldsNoOpportunities(t *testing.T) {
	e := NewEngine(newFake())
	bars := makeBars(30, 20, 1000)

	sig := e.Detect("PETR4", bars)
	assert.Equal(t, models.DirectionNone, sig.Direction)
	assert.Equal(t, reasonIndicatorsPending, sig.Reason)

	assert.Empty(t, e.Scan("PETR4", bars))
	assert.Empty(t, e.ScanMonthly("PETR4", bars))

	exit := e.LocateExit("PETR4", bars, 10)
	assert.Equal(t, models.DirectionNone, exit.Direction)

	elig := e.Evaluate(bars)
	assert.False(t, elig.Passes)
	assert.Zero(t, elig.Score)

	score := e.Confirm("PETR4", bars, bars)
	assert.Equal(t, models.DirectionNone, score.Direction)
	assert.Zero(t, score.Score)
	assert.Empty(t, score.Periods)

	_, ok := e.StochCrossUpDate(bars)
	assert.False(t, ok)
	_, ok = e.SetupDate(bars)
	assert.False(t, ok)
}
