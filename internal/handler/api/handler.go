package api

import (
	"context"
	"errors"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/usecase"
	xhttp "MarketAnalyst/pkg/http"
)

// TickerService is the watchlist surface the handlers need.
type TickerService interface {
	List(ctx context.Context, filter models.TickerFilter) ([]models.Ticker, []string, error)
	SyncWatchlist(ctx context.Context) (models.SyncReport, error)
}

// AnalysisService is the analysis surface the handlers need.
type AnalysisService interface {
	ProcessTicker(ctx context.Context, code string) (models.ConfirmationScore, error)
	Report(ctx context.Context, code, rng, interval string) (models.TickerReport, error)
	Opportunities(ctx context.Context) ([]models.OpportunityAnalysis, error)
	Opportunity(ctx context.Context, code string) (models.OpportunityAnalysis, error)
}

// BatchDispatcher hands batch runs to the job queue.
type BatchDispatcher interface {
	DispatchBatch(ctx context.Context) (string, error)
}

// toAppError maps use case errors onto HTTP errors.
func toAppError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return xhttp.NotFoundError("not found").WithError(err)
	case errors.Is(err, repository.ErrQuoteNotFound):
		return xhttp.NotFoundError("no price history for ticker").WithError(err)
	case errors.Is(err, usecase.ErrEmptyTicker):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, usecase.ErrBatchRunning):
		return xhttp.ConflictError(err.Error())
	}
	return err
}
