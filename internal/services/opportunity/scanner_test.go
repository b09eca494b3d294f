package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
)

func scannerFixture(n int) (*fakeProvider, *seriesSet) {
	f := newFake()
	s := f.set(n)
	s.k[fastStoch] = filled(n, 50, nil)
	s.d[fastStoch] = filled(n, 45, nil)
	s.macd = filled(n, 0.2, nil)
	s.signal = filled(n, 0.1, nil)
	s.k[exitStoch] = filled(n, 50, nil)
	s.d[exitStoch] = filled(n, 50, nil)
	return f, s
}

func TestScanTooShort(t *testing.T) {
	f, _ := scannerFixture(59)
	got := NewEngine(f).Scan("PETR4", makeBars(59, 10, 1))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScanCallWithExit(t *testing.T) {
	n := 80
	f, s := scannerFixture(n)
	s.k[fastStoch][49], s.k[fastStoch][50] = 15, 25
	s.macd[49], s.macd[50] = -0.5, -0.3
	s.k[exitStoch][54], s.k[exitStoch][55] = 85, 75

	bars := makeBars(n, 10, 1)
	got := NewEngine(f).Scan("PETR4", bars)
	require.Len(t, got, 1)

	sig := got[0]
	assert.Equal(t, models.DirectionCall, sig.Direction)
	assert.Equal(t, bars[50].Time, sig.Time)
	assert.Equal(t, 25.0, sig.Oscillator)
	assert.Equal(t, 45.0, sig.OscillatorSignal)
	require.NotNil(t, sig.Exit)
	assert.Equal(t, models.DirectionPut, sig.Exit.Direction)
	assert.Equal(t, bars[55].Time, sig.Exit.Time)
	assert.True(t, sig.Exit.Time.After(sig.Time))
}

func TestScanCallNeedsRisingNegativeMACD(t *testing.T) {
	n := 80
	f, s := scannerFixture(n)
	s.k[fastStoch][49], s.k[fastStoch][50] = 15, 25
	s.macd[49], s.macd[50] = -0.3, -0.5 // falling
	assert.Empty(t, NewEngine(f).Scan("PETR4", makeBars(n, 10, 1)))

	s.macd[49], s.macd[50] = 0.1, 0.3 // rising but positive
	assert.Empty(t, NewEngine(f).Scan("PETR4", makeBars(n, 10, 1)))
}

func TestScanPutSpreadThreshold(t *testing.T) {
	tests := []struct {
		name    string
		curSig  float64
		wantPut bool
	}{
		{"wide spread", 0.6, true},
		{"narrow spread", 0.55, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 70
			f, s := scannerFixture(n)
			s.k[fastStoch][60], s.k[fastStoch][61] = 85, 75
			s.macd[60], s.signal[60] = 1.0, 0.9
			s.macd[61], s.signal[61] = 0.5, tt.curSig

			got := NewEngine(f).Scan("VALE3", makeBars(n, 10, 1))
			if !tt.wantPut {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, models.DirectionPut, got[0].Direction)
			require.NotNil(t, got[0].Exit)
			assert.Equal(t, models.DirectionNone, got[0].Exit.Direction)
			assert.Equal(t, "held to last bar", got[0].Exit.Reason)
		})
	}
}

func TestScanPutNeedsPositiveMACD(t *testing.T) {
	n := 70
	f, s := scannerFixture(n)
	s.k[fastStoch][60], s.k[fastStoch][61] = 85, 75
	s.macd[60], s.signal[60] = -0.1, -0.2
	s.macd[61], s.signal[61] = -0.4, -0.2
	assert.Empty(t, NewEngine(f).Scan("VALE3", makeBars(n, 10, 1)))
}

func TestScanSkipsUnavailable(t *testing.T) {
	n := 80
	f, s := scannerFixture(n)
	s.k[fastStoch][49], s.k[fastStoch][50] = 15, 25
	s.macd[49], s.macd[50] = -0.5, -0.3
	s.signal[49] = models.Unavailable
	assert.Empty(t, NewEngine(f).Scan("PETR4", makeBars(n, 10, 1)))
}

func TestScanOrderedAscending(t *testing.T) {
	n := 100
	f, s := scannerFixture(n)
	for _, i := range []int{40, 70} {
		s.k[fastStoch][i-1], s.k[fastStoch][i] = 10, 20
		s.macd[i-1], s.macd[i] = -0.4, -0.2
	}
	got := NewEngine(f).Scan("ABEV3", makeBars(n, 10, 1))
	require.Len(t, got, 2)
	assert.True(t, got[0].Time.Before(got[1].Time))
}

func TestScanEntryOnLastBarHasNoExit(t *testing.T) {
	n := 80
	f, s := scannerFixture(n)
	s.k[fastStoch][n-2], s.k[fastStoch][n-1] = 15, 25
	s.macd[n-2], s.macd[n-1] = -0.5, -0.3

	bars := makeBars(n, 10, 1)
	e := NewEngine(f)
	got := e.Scan("PETR4", bars)
	require.Len(t, got, 1)
	assert.Equal(t, bars[n-1].Time, got[0].Time)
	require.NotNil(t, got[0].Exit)
	assert.Equal(t, models.DirectionNone, got[0].Exit.Direction)
	assert.Equal(t, "invalid entry index", got[0].Exit.Reason)
	assert.Equal(t, e.LocateExit("PETR4", bars, n-1), *got[0].Exit)
}
