package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/services/features"
	"MarketAnalyst/internal/services/opportunity"
	"MarketAnalyst/pkg/logger"
	"MarketAnalyst/pkg/util"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyTicker  = errors.New("ticker is required")
	ErrBatchRunning = errors.New("a batch analysis is already running")
)

const batchLockKey = "analysis:batch"

type AnalysisConfig struct {
	Workers        int
	Timeout        time.Duration // per ticker
	LockTTL        time.Duration
	DailyRange     string
	DailyInterval  string
	WeeklyRange    string
	WeeklyInterval string
	MonthlyRange   string
	Universe       []string // used when the watchlist is empty
}

// AnalysisUseCase fetches histories, runs the engine and persists and fans out
// the resulting confirmation scores.
type AnalysisUseCase struct {
	source      repository.QuoteSource
	tickers     repository.TickerStore
	analyses    repository.AnalysisStore
	engine      *opportunity.Engine
	publisher   repository.ScorePublisher
	broadcaster repository.ScoreBroadcaster
	locker      repository.Locker
	metrics     repository.Metrics
	l           *logger.Logger
	cfg         AnalysisConfig

	newID func() string
	now   func() time.Time
}

type AnalysisOption func(*AnalysisUseCase)

func WithPublisher(p repository.ScorePublisher) AnalysisOption {
	return func(u *AnalysisUseCase) { u.publisher = p }
}

func WithBroadcaster(b repository.ScoreBroadcaster) AnalysisOption {
	return func(u *AnalysisUseCase) { u.broadcaster = b }
}

func WithLocker(l repository.Locker) AnalysisOption {
	return func(u *AnalysisUseCase) { u.locker = l }
}

func WithMetrics(m repository.Metrics) AnalysisOption {
	return func(u *AnalysisUseCase) {
		if m != nil {
			u.metrics = m
		}
	}
}

func NewAnalysisUseCase(
	source repository.QuoteSource,
	store repository.Store,
	engine *opportunity.Engine,
	l *logger.Logger,
	cfg AnalysisConfig,
	opts ...AnalysisOption,
) *AnalysisUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	u := &AnalysisUseCase{
		source:   source,
		tickers:  store,
		analyses: store,
		engine:   engine,
		metrics:  noopMetrics{},
		l:        l,
		cfg:      cfg,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ProcessTicker scores one ticker on daily and weekly bars and stores the
// result as the ticker's current analysis. A ticker the source does not know
// is scored on empty histories.
func (u *AnalysisUseCase) ProcessTicker(ctx context.Context, code string) (models.ConfirmationScore, error) {
	code = util.NormalizeTicker(code)
	if code == "" {
		return models.ConfirmationScore{}, ErrEmptyTicker
	}
	start := time.Now()

	daily, err := u.bars(ctx, code, u.cfg.DailyRange, u.cfg.DailyInterval)
	if err != nil {
		return models.ConfirmationScore{}, err
	}
	weekly, err := u.bars(ctx, code, u.cfg.WeeklyRange, u.cfg.WeeklyInterval)
	if err != nil {
		return models.ConfirmationScore{}, err
	}

	score := u.engine.Confirm(code, daily, weekly)
	u.recordScore(score)

	a := models.NewOpportunityAnalysis(u.newID(), score, u.now())
	if err := u.analyses.ReplaceAnalysis(ctx, a); err != nil {
		u.metrics.RecordError("store")
		return models.ConfirmationScore{}, fmt.Errorf("store analysis %s: %w", code, err)
	}

	if u.publisher != nil {
		if err := u.publisher.PublishScore(ctx, score); err != nil {
			u.metrics.RecordError("publish")
			u.l.Warn("publish score", logger.String("ticker", code), logger.Error(err))
		}
	}
	if u.broadcaster != nil {
		u.broadcaster.Broadcast(score)
	}

	u.metrics.RecordLatency("ticker", time.Since(start).Seconds())
	u.l.Info("ticker analysed",
		logger.String("ticker", code),
		logger.Float64("score", score.Score),
		logger.String("direction", score.Direction.String()),
		logger.Strings("periods", score.Periods),
		logger.Int("daily_bars", len(daily)),
		logger.Int("weekly_bars", len(weekly)))
	return score, nil
}

func (u *AnalysisUseCase) recordScore(s models.ConfirmationScore) {
	if len(s.Periods) == 0 {
		u.metrics.RecordAnalysis("none", s.Direction)
	}
	for _, p := range s.Periods {
		u.metrics.RecordAnalysis(p, s.Direction)
	}
	u.metrics.RecordScore(s.Ticker, s.Score)
}

// ProcessAll analyses the whole watchlist with bounded concurrency. One
// ticker failing never stops the others.
func (u *AnalysisUseCase) ProcessAll(ctx context.Context) (models.BatchReport, error) {
	if u.locker != nil {
		ok, err := u.locker.TryLock(ctx, batchLockKey, u.cfg.LockTTL)
		if err != nil {
			return models.BatchReport{}, fmt.Errorf("acquire batch lock: %w", err)
		}
		if !ok {
			return models.BatchReport{}, ErrBatchRunning
		}
		defer func() {
			if err := u.locker.Unlock(context.Background(), batchLockKey); err != nil {
				u.l.Warn("release batch lock", logger.Error(err))
			}
		}()
	}

	start := time.Now()
	codes, err := u.universe(ctx)
	if err != nil {
		return models.BatchReport{}, err
	}

	report := models.BatchReport{Total: len(codes), Errors: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Workers)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			tctx, cancel := u.tickerContext(gctx)
			defer cancel()

			_, err := u.ProcessTicker(tctx, code)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors[code] = err.Error()
				u.metrics.RecordError("ticker")
				u.l.Warn("ticker analysis failed", logger.String("ticker", code), logger.Error(err))
				return nil
			}
			report.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	u.metrics.RecordLatency("batch", report.Duration.Seconds())
	u.l.Info("batch analysis finished",
		logger.Int("total", report.Total),
		logger.Int("succeeded", report.Succeeded),
		logger.Int("failed", report.Failed),
		logger.Duration("duration_ms", report.Duration))
	return report, nil
}

func (u *AnalysisUseCase) tickerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, u.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// universe lists watchlisted codes in code order, falling back to the
// configured universe when nothing is registered yet.
func (u *AnalysisUseCase) universe(ctx context.Context) ([]string, error) {
	tickers, err := u.tickers.ListTickers(ctx, models.TickerFilter{})
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	seen := map[string]bool{}
	codes := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if !seen[t.Code] {
			seen[t.Code] = true
			codes = append(codes, t.Code)
		}
	}
	if len(codes) == 0 {
		for _, c := range u.cfg.Universe {
			if c = util.NormalizeTicker(c); c != "" && !seen[c] {
				seen[c] = true
				codes = append(codes, c)
			}
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Report runs every analysis the engine offers on one history.
func (u *AnalysisUseCase) Report(ctx context.Context, code, rng, interval string) (models.TickerReport, error) {
	code = util.NormalizeTicker(code)
	if code == "" {
		return models.TickerReport{}, ErrEmptyTicker
	}
	h, err := u.source.History(ctx, code, rng, interval)
	if err != nil {
		return models.TickerReport{}, err
	}
	bars := features.NormalizeQuotes(h.Quotes)

	monthly, err := u.bars(ctx, code, u.cfg.MonthlyRange, string(repository.IntervalMonthly))
	if err != nil {
		return models.TickerReport{}, err
	}

	r := models.TickerReport{
		Ticker:      code,
		Range:       rng,
		Interval:    interval,
		Bars:        len(bars),
		Latest:      u.engine.Detect(code, bars),
		History:     u.engine.Scan(code, bars),
		Monthly:     u.engine.ScanMonthly(code, monthly),
		Eligibility: u.engine.Evaluate(bars),
	}
	if t, ok := u.engine.StochCrossUpDate(bars); ok {
		r.CrossUpDate = &t
	}
	if s, ok := u.engine.SetupDate(bars); ok {
		r.SetupDate = &s.Time
	}

	u.metrics.RecordAnalysis(repository.NormalizeInterval(interval).Timeframe(), r.Latest.Direction)
	u.metrics.RecordSignals("history", len(r.History))
	u.metrics.RecordSignals("monthly", len(r.Monthly))
	return r, nil
}

// Opportunities lists current analyses, best score first.
func (u *AnalysisUseCase) Opportunities(ctx context.Context) ([]models.OpportunityAnalysis, error) {
	return u.analyses.ListAnalyses(ctx)
}

func (u *AnalysisUseCase) Opportunity(ctx context.Context, code string) (models.OpportunityAnalysis, error) {
	return u.analyses.GetAnalysis(ctx, util.NormalizeTicker(code))
}

// bars fetches and normalizes a history; an unknown ticker yields no bars.
func (u *AnalysisUseCase) bars(ctx context.Context, code, rng, interval string) ([]models.Bar, error) {
	h, err := u.source.History(ctx, code, rng, interval)
	if errors.Is(err, repository.ErrQuoteNotFound) {
		return []models.Bar{}, nil
	}
	if err != nil {
		u.metrics.RecordError("source")
		return nil, fmt.Errorf("history %s %s/%s: %w", code, rng, interval, err)
	}
	return features.NormalizeQuotes(h.Quotes), nil
}

type noopMetrics struct{}

func (noopMetrics) RecordAnalysis(string, models.Direction) {}
func (noopMetrics) RecordSignals(string, int)               {}
func (noopMetrics) RecordScore(string, float64)             {}
func (noopMetrics) RecordError(string)                      {}
func (noopMetrics) RecordLatency(string, float64)           {}
