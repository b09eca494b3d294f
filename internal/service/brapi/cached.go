package brapi

import (
	"context"
	"errors"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/pkg/cache"
	"MarketAnalyst/pkg/logger"
)

// CachedSource memoizes histories for ttl. Ticker listings always go to the
// underlying source.
type CachedSource struct {
	next  repository.QuoteSource
	cache cache.Service
	ttl   time.Duration
	l     *logger.Logger
}

func NewCachedSource(next repository.QuoteSource, c cache.Service, ttl time.Duration, l *logger.Logger) *CachedSource {
	if l == nil {
		l = logger.Nop()
	}
	return &CachedSource{next: next, cache: c, ttl: ttl, l: l}
}

func quoteKey(ticker, rng, interval string) string {
	return cache.Key("quotes", ticker, rng, interval)
}

func (s *CachedSource) History(ctx context.Context, ticker, rng, interval string) (models.QuoteHistory, error) {
	key := quoteKey(ticker, rng, interval)

	var h models.QuoteHistory
	err := s.cache.Get(ctx, key, &h)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("quote cache read", logger.String("key", key), logger.Error(err))
	}

	h, err = s.next.History(ctx, ticker, rng, interval)
	if err != nil {
		return models.QuoteHistory{}, err
	}
	if err := s.cache.Set(ctx, key, h, s.ttl); err != nil {
		s.l.Warn("quote cache write", logger.String("key", key), logger.Error(err))
	}
	return h, nil
}

func (s *CachedSource) List(ctx context.Context) ([]models.Ticker, error) {
	return s.next.List(ctx)
}
