package opportunity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/services/indicators"
)

func waveBars(n int, period float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 30 + 8*math.Sin(float64(i)/period) + 0.02*float64(i)
		bars[i] = models.Bar{
			Time:   t0.AddDate(0, 0, i),
			Open:   c - 0.3,
			High:   c + 0.6,
			Low:    c - 0.6,
			Close:  c,
			Volume: 400_000 + 1000*float64(i%7),
		}
	}
	return bars
}

func TestEngineWithTalibInvariants(t *testing.T) {
	e := NewEngine(indicators.NewTalibProvider())
	daily := waveBars(400, 6)
	weekly := waveBars(150, 4)

	sig := e.Detect("PETR4", daily)
	assert.True(t, sig.Direction.Valid())
	assert.NotEmpty(t, sig.Reason)
	assert.Equal(t, daily[len(daily)-2].Time, sig.Time)

	signals := e.Scan("PETR4", daily)
	for i, s := range signals {
		assert.True(t, s.IsEntry())
		require.NotNil(t, s.Exit)
		if s.Exit.Direction == models.DirectionPut {
			assert.True(t, s.Exit.Time.After(s.Time))
		}
		assert.False(t, math.IsNaN(s.Oscillator))
		if i > 0 {
			assert.True(t, s.Time.After(signals[i-1].Time))
		}
	}

	elig := e.Evaluate(daily)
	assert.GreaterOrEqual(t, elig.Score, 0.0)
	assert.LessOrEqual(t, elig.Score, 1.0)

	score := e.Confirm("PETR4", daily, weekly)
	assert.GreaterOrEqual(t, score.Score, 0.0)
	assert.LessOrEqual(t, score.Score, 100.0)
	assert.Equal(t, score.Score, math.Round(score.Score*100)/100)
	if score.Direction == models.DirectionNone {
		assert.Empty(t, score.Periods)
	} else {
		assert.NotEmpty(t, score.Periods)
	}
}

func TestEngineIsPure(t *testing.T) {
	e := NewEngine(indicators.NewTalibProvider())
	bars := waveBars(200, 5)
	snapshot := make([]models.Bar, len(bars))
	copy(snapshot, bars)

	first := e.Scan("VALE3", bars)
	second := e.Scan("VALE3", bars)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, bars)
}

func TestEngineOptions(t *testing.T) {
	p := DefaultScannerParams()
	p.MinBars = 10
	e := NewEngine(newFake(), WithScannerParams(p))
	assert.Empty(t, e.Scan("X", makeBars(10, 1, 1)))
	assert.Equal(t, 10, e.scanner.MinBars)
	assert.Equal(t, DefaultExitParams(), e.exit)
}
