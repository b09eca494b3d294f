package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
)

func monthlyFixture(n, at int) (*fakeProvider, []models.Bar) {
	f := newFake()
	s := f.set(n)
	s.ema[9] = filled(n, 9, map[int]float64{at: 11})
	s.ema[21] = filled(n, 10, nil)
	s.rsi[14] = filled(n, 45, map[int]float64{at: 55})
	bars := makeBars(n, 12, 100)
	bars[at].Volume = 200
	return f, bars
}

func TestScanMonthly(t *testing.T) {
	f, bars := monthlyFixture(30, 28)
	got := NewEngine(f).ScanMonthly("WEGE3", bars)
	require.Len(t, got, 1)
	assert.Equal(t, models.DirectionCall, got[0].Direction)
	assert.Equal(t, bars[28].Time, got[0].Time)
	assert.Equal(t, 55.0, got[0].Oscillator)
}

func TestScanMonthlyRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *seriesSet, bars []models.Bar)
	}{
		{"price below fast EMA", func(s *seriesSet, bars []models.Bar) { bars[28].Close = 10.5 }},
		{"rsi overheated", func(s *seriesSet, bars []models.Bar) { s.rsi[14][28] = 72 }},
		{"rsi already above", func(s *seriesSet, bars []models.Bar) { s.rsi[14][27] = 51 }},
		{"volume at average", func(s *seriesSet, bars []models.Bar) { bars[28].Volume = 100 }},
		{"rsi warming up", func(s *seriesSet, bars []models.Bar) { s.rsi[14][27] = models.Unavailable }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, bars := monthlyFixture(30, 28)
			tt.mutate(f.set(30), bars)
			assert.Empty(t, NewEngine(f).ScanMonthly("WEGE3", bars))
		})
	}
}

func TestScanMonthlyTooShort(t *testing.T) {
	f, bars := monthlyFixture(25, 20)
	got := NewEngine(f).ScanMonthly("WEGE3", bars)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
