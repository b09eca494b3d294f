package brapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/pkg/cache"
	"MarketAnalyst/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyBody = `{
  "results": [{
    "symbol": "PETR4",
    "regularMarketPrice": 38.5,
    "historicalDataPrice": [
      {"date": 1717372800, "open": 37.1, "high": 38.9, "low": 36.8, "close": 38.2, "volume": 51234000, "adjustedClose": 38.2},
      {"date": 1717459200, "open": 38.2, "high": null, "low": 37.9, "close": 38.5, "volume": null}
    ]
  }]
}`

func TestHistoryDecodesQuotes(t *testing.T) {
	var gotAuth, gotRange, gotToken, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRange = r.URL.Query().Get("range") + "/" + r.URL.Query().Get("interval")
		gotToken = r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, logger.Nop(), WithToken("tok"))
	h, err := c.History(context.Background(), "PETR4", "2y", "1d")
	require.NoError(t, err)

	assert.Equal(t, "/api/quote/PETR4", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "2y/1d", gotRange)
	assert.Equal(t, "tok", gotToken)

	assert.Equal(t, "PETR4", h.Ticker)
	assert.Equal(t, 38.5, h.MarketPrice)
	require.Len(t, h.Quotes, 2)
	assert.Equal(t, int64(1717372800), h.Quotes[0].Date)
	require.NotNil(t, h.Quotes[0].Volume)
	assert.Equal(t, int64(51234000), *h.Quotes[0].Volume)
	assert.Nil(t, h.Quotes[1].High)
	assert.Nil(t, h.Quotes[1].Volume)
}

func TestHistoryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/quote/EMPTY3" {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		http.Error(w, `{"error":true,"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.History(context.Background(), "NOPE3", "1y", "1d")
	assert.ErrorIs(t, err, repository.ErrQuoteNotFound)

	_, err = c.History(context.Background(), "EMPTY3", "1y", "1d")
	assert.ErrorIs(t, err, repository.ErrQuoteNotFound)
}

func TestHistoryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).History(context.Background(), "X", "1y", "1d")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrQuoteNotFound)
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quote/list", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"stocks":[
			{"stock":"VALE3","name":"Vale","sector":"Non-Energy Minerals","logo":"https://x/vale.svg"},
			{"stock":"","name":"broken"}
		]}`))
	}))
	defer srv.Close()

	tickers, err := NewClient(srv.URL, time.Second, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, models.Ticker{Code: "VALE3", Name: "Vale", Sector: "Non-Energy Minerals", Logo: "https://x/vale.svg"}, tickers[0])
}

type countingSource struct {
	calls int32
}

func (s *countingSource) History(_ context.Context, ticker, rng, interval string) (models.QuoteHistory, error) {
	atomic.AddInt32(&s.calls, 1)
	if ticker == "NOPE3" {
		return models.QuoteHistory{}, repository.ErrQuoteNotFound
	}
	return models.QuoteHistory{Ticker: ticker, Range: rng, Interval: interval}, nil
}

func (s *countingSource) List(context.Context) ([]models.Ticker, error) {
	return []models.Ticker{{Code: "A"}}, nil
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	next := &countingSource{}
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	src := NewCachedSource(next, mc, time.Minute, nil)

	for i := 0; i < 3; i++ {
		h, err := src.History(ctx, "ITUB4", "5y", "1wk")
		require.NoError(t, err)
		assert.Equal(t, "1wk", h.Interval)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&next.calls))

	_, err := src.History(ctx, "ITUB4", "2y", "1d")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&next.calls), "range and interval are part of the key")

	_, err = src.History(ctx, "NOPE3", "2y", "1d")
	assert.ErrorIs(t, err, repository.ErrQuoteNotFound)
	_, err = src.History(ctx, "NOPE3", "2y", "1d")
	assert.ErrorIs(t, err, repository.ErrQuoteNotFound)
	assert.Equal(t, int32(4), atomic.LoadInt32(&next.calls), "errors are not cached")

	list, err := src.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
