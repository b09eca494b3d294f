package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"MarketAnalyst/internal/domain/models"
)

func TestLocateExitInvalidEntry(t *testing.T) {
	n := 30
	f := newFake()
	f.set(n).k[exitStoch] = filled(n, 50, nil)
	e := NewEngine(f)
	bars := makeBars(n, 10, 1)

	for _, entry := range []int{-1, n - 1, n} {
		sig := e.LocateExit("PETR4", bars, entry)
		assert.Equal(t, models.DirectionNone, sig.Direction)
		assert.Equal(t, "invalid entry index", sig.Reason)
		assert.Equal(t, bars[n-1].Time, sig.Time)
	}

	sig := e.LocateExit("PETR4", nil, 0)
	assert.Equal(t, "invalid entry index", sig.Reason)
	assert.True(t, sig.Time.IsZero())
}

func TestLocateExitFindsCross(t *testing.T) {
	n := 30
	f := newFake()
	k := filled(n, 90, map[int]float64{12: 81, 13: 79.5})
	k[5] = models.Unavailable
	f.set(n).k[exitStoch] = k
	bars := makeBars(n, 10, 1)
	bars[13].Close = 12.5

	sig := NewEngine(f).LocateExit("PETR4", bars, 4)
	assert.Equal(t, models.DirectionPut, sig.Direction)
	assert.Equal(t, bars[13].Time, sig.Time)
	assert.Equal(t, 12.5, sig.Price)
	assert.Equal(t, 79.5, sig.Oscillator)
	assert.Contains(t, sig.Reason, "81.00 -> 79.50")
}

func TestLocateExitCrossAtEntryIsIgnored(t *testing.T) {
	n := 30
	f := newFake()
	// the drop happens on the entry bar itself, nothing afterwards
	f.set(n).k[exitStoch] = filled(n, 60, map[int]float64{9: 85})
	bars := makeBars(n, 10, 1)

	sig := NewEngine(f).LocateExit("PETR4", bars, 10)
	assert.Equal(t, models.DirectionNone, sig.Direction)
	assert.Equal(t, "held to last bar", sig.Reason)
	assert.Equal(t, bars[n-1].Time, sig.Time)
	assert.Equal(t, 60.0, sig.Oscillator)
}

func TestLocateExitHeldWhenUnavailable(t *testing.T) {
	n := 20
	bars := makeBars(n, 10, 1)
	sig := NewEngine(newFake()).LocateExit("PETR4", bars, 0)
	assert.Equal(t, models.DirectionNone, sig.Direction)
	assert.Equal(t, "held to last bar", sig.Reason)
	assert.Equal(t, 0.0, sig.Oscillator)
}
