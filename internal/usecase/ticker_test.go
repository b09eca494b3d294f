package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/services/indicators"
	"MarketAnalyst/internal/services/opportunity"
	"MarketAnalyst/pkg/logger"
)

func newTickers(src *fakeSource, store *memStore) *TickerUseCase {
	u := NewTickerUseCase(src, store, opportunity.NewEngine(indicators.NewTalibProvider()), nil, logger.Nop(), 2, "")
	u.now = func() time.Time { return day0 }
	return u
}

func TestSyncWatchlist(t *testing.T) {
	src, store := newFakeSource(), newMemStore()
	src.universe = []models.Ticker{
		{Code: "wege3", Name: "WEG", Sector: "Industrials"},
		{Code: "MGLU3", Name: "Magazine Luiza", Sector: "Retail"},
		{Code: "OIBR3", Name: "Oi", Sector: "Telecom"},
		{Code: " "},
	}
	src.histories["WEGE3"] = liquidQuotes(300)
	src.histories["MGLU3"] = liquidQuotes(100) // too short
	src.failing["OIBR3"] = errors.New("timeout")

	report, err := newTickers(src, store).SyncWatchlist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Listed)
	assert.Equal(t, 1, report.Eligible)
	assert.Equal(t, 1, report.Skipped)
	assert.Contains(t, report.Errors, "OIBR3")

	w, err := store.GetTicker(context.Background(), "WEGE3")
	require.NoError(t, err)
	assert.Equal(t, "WEG", w.Name)
	assert.Greater(t, w.Score, 0.0)
	assert.LessOrEqual(t, w.Score, 100.0)
	assert.Equal(t, day0, w.RegisteredAt)
	assert.Contains(t, src.calls, "WEGE3/2y/1d")
}

func TestListReturnsSectors(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertTicker(ctx, models.Ticker{Code: "WEGE3", Sector: "Industrials", Score: 70}))
	require.NoError(t, store.UpsertTicker(ctx, models.Ticker{Code: "ITUB4", Sector: "Finance", Score: 40}))

	minScore := 50.0
	rows, sectors, err := newTickers(newFakeSource(), store).List(ctx, models.TickerFilter{MinScore: &minScore})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "WEGE3", rows[0].Code)
	assert.Equal(t, []string{"Finance", "Industrials"}, sectors)
}
