package repository

import (
	"context"
	"errors"
	"time"

	"MarketAnalyst/internal/domain/models"
)

var (
	// ErrQuoteNotFound is returned when a source has no history for a ticker.
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrNotFound is returned by stores for unknown keys.
	ErrNotFound = errors.New("not found")
)

// QuoteSource fetches raw price history and the tradable universe.
type QuoteSource interface {
	History(ctx context.Context, ticker, rng, interval string) (models.QuoteHistory, error)
	List(ctx context.Context) ([]models.Ticker, error)
}

// TickerStore persists the watchlist.
type TickerStore interface {
	UpsertTicker(ctx context.Context, t models.Ticker) error
	GetTicker(ctx context.Context, code string) (models.Ticker, error)
	ListTickers(ctx context.Context, filter models.TickerFilter) ([]models.Ticker, error)
	Sectors(ctx context.Context) ([]string, error)
}

// AnalysisStore keeps the current analysis per ticker. ReplaceAnalysis drops
// whatever was stored for the ticker before inserting.
type AnalysisStore interface {
	ReplaceAnalysis(ctx context.Context, a models.OpportunityAnalysis) error
	GetAnalysis(ctx context.Context, ticker string) (models.OpportunityAnalysis, error)
	ListAnalyses(ctx context.Context) ([]models.OpportunityAnalysis, error)
}

// Store is the full persistence surface plus lifecycle.
type Store interface {
	TickerStore
	AnalysisStore
	Init(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// ScorePublisher fans confirmation scores out to downstream consumers.
type ScorePublisher interface {
	PublishScore(ctx context.Context, s models.ConfirmationScore) error
	Close() error
}

// ScoreBroadcaster pushes scores to live subscribers.
type ScoreBroadcaster interface {
	Broadcast(s models.ConfirmationScore)
}

type Metrics interface {
	RecordAnalysis(timeframe string, direction models.Direction)
	RecordSignals(kind string, n int)
	RecordScore(ticker string, score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// Locker guards batch runs across instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
