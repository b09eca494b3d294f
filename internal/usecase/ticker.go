package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/services/features"
	"MarketAnalyst/internal/services/opportunity"
	"MarketAnalyst/pkg/logger"
	"MarketAnalyst/pkg/util"

	"golang.org/x/sync/errgroup"
)

// TickerUseCase maintains the watchlist.
type TickerUseCase struct {
	source   repository.QuoteSource
	store    repository.TickerStore
	engine   *opportunity.Engine
	metrics  repository.Metrics
	l        *logger.Logger
	workers  int
	rng      string
	interval string
	now      func() time.Time
}

func NewTickerUseCase(
	source repository.QuoteSource,
	store repository.TickerStore,
	engine *opportunity.Engine,
	metrics repository.Metrics,
	l *logger.Logger,
	workers int,
	watchlistRange string,
) *TickerUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if workers <= 0 {
		workers = 4
	}
	if watchlistRange == "" {
		watchlistRange = "2y"
	}
	return &TickerUseCase{
		source:   source,
		store:    store,
		engine:   engine,
		metrics:  metrics,
		l:        l,
		workers:  workers,
		rng:      watchlistRange,
		interval: string(repository.IntervalDaily),
		now:      time.Now,
	}
}

// List returns the filtered watchlist with the full sector list.
func (u *TickerUseCase) List(ctx context.Context, filter models.TickerFilter) ([]models.Ticker, []string, error) {
	tickers, err := u.store.ListTickers(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list tickers: %w", err)
	}
	sectors, err := u.store.Sectors(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list sectors: %w", err)
	}
	return tickers, sectors, nil
}

func (u *TickerUseCase) Get(ctx context.Context, code string) (models.Ticker, error) {
	return u.store.GetTicker(ctx, util.NormalizeTicker(code))
}

// SyncWatchlist walks the source universe and registers every ticker that
// passes the eligibility gate. The stored score is the eligibility score
// on a 0-100 scale.
func (u *TickerUseCase) SyncWatchlist(ctx context.Context) (models.SyncReport, error) {
	start := time.Now()
	universe, err := u.source.List(ctx)
	if err != nil {
		u.metrics.RecordError("source")
		return models.SyncReport{}, fmt.Errorf("list universe: %w", err)
	}

	report := models.SyncReport{Listed: len(universe), Errors: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for _, t := range universe {
		t := t
		t.Code = util.NormalizeTicker(t.Code)
		if t.Code == "" {
			continue
		}
		g.Go(func() error {
			ok, err := u.evaluate(gctx, t)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Errors[t.Code] = err.Error()
				u.metrics.RecordError("watchlist")
			case ok:
				report.Eligible++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	u.metrics.RecordLatency("watchlist", time.Since(start).Seconds())
	u.l.Info("watchlist synced",
		logger.Int("listed", report.Listed),
		logger.Int("eligible", report.Eligible),
		logger.Int("skipped", report.Skipped),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("duration_ms", time.Since(start)))
	return report, nil
}

func (u *TickerUseCase) evaluate(ctx context.Context, t models.Ticker) (bool, error) {
	h, err := u.source.History(ctx, t.Code, u.rng, u.interval)
	if errors.Is(err, repository.ErrQuoteNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	res := u.engine.Evaluate(features.NormalizeQuotes(h.Quotes))
	if !res.Passes {
		u.l.Debug("ticker not eligible", logger.String("ticker", t.Code), logger.String("reason", res.Reason))
		return false, nil
	}

	now := u.now().UTC()
	t.Score = math.Round(res.Score*100*100) / 100
	t.RegisteredAt = now
	t.UpdatedAt = now
	if err := u.store.UpsertTicker(ctx, t); err != nil {
		return false, fmt.Errorf("upsert %s: %w", t.Code, err)
	}
	return true, nil
}
