package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/pkg/logger"
	"MarketAnalyst/pkg/queue"
	"MarketAnalyst/pkg/util"
)

const (
	JobAnalysisBatch  = "analysis.batch"
	JobAnalysisTicker = "analysis.ticker"
	JobWatchlistSync  = "watchlist.sync"
)

// Dispatcher turns API calls and the schedule into queued jobs so the
// heavy analysis runs on queue workers.
type Dispatcher struct {
	queue    queue.Publisher
	analysis *AnalysisUseCase
	tickers  *TickerUseCase
	l        *logger.Logger
}

func NewDispatcher(q queue.Publisher, analysis *AnalysisUseCase, tickers *TickerUseCase, l *logger.Logger) *Dispatcher {
	return &Dispatcher{queue: q, analysis: analysis, tickers: tickers, l: l}
}

// SetPublisher binds the queue once it exists; the queue itself needs Jobs().
func (d *Dispatcher) SetPublisher(q queue.Publisher) { d.queue = q }

func (d *Dispatcher) DispatchBatch(ctx context.Context) (string, error) {
	return d.publish(ctx, JobAnalysisBatch, struct{}{})
}

func (d *Dispatcher) DispatchTicker(ctx context.Context, code string) (string, error) {
	code = util.NormalizeTicker(code)
	if code == "" {
		return "", ErrEmptyTicker
	}
	return d.publish(ctx, JobAnalysisTicker, models.AnalysisRequest{Ticker: code})
}

func (d *Dispatcher) DispatchWatchlistSync(ctx context.Context) (string, error) {
	return d.publish(ctx, JobWatchlistSync, struct{}{})
}

func (d *Dispatcher) publish(ctx context.Context, msgType string, payload interface{}) (string, error) {
	if d.queue == nil {
		return "", errors.New("job queue not configured")
	}
	id, err := d.queue.Publish(ctx, msgType, payload)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", msgType, err)
	}
	d.l.Debug("job enqueued", logger.String("type", msgType), logger.String("job_id", id))
	return id, nil
}

// Jobs are the queue handlers backing the dispatch calls.
func (d *Dispatcher) Jobs() []queue.Job {
	return []queue.Job{
		queue.JobFunc{MsgType: JobAnalysisBatch, Fn: func(ctx context.Context, _ json.RawMessage) error {
			_, err := d.analysis.ProcessAll(ctx)
			if errors.Is(err, ErrBatchRunning) {
				d.l.Info("batch already running, skipping")
				return nil
			}
			return err
		}},
		queue.JobFunc{MsgType: JobAnalysisTicker, Fn: func(ctx context.Context, payload json.RawMessage) error {
			req, err := queue.Decode[models.AnalysisRequest](payload)
			if err != nil {
				return err
			}
			_, err = d.analysis.ProcessTicker(ctx, req.Ticker)
			return err
		}},
		queue.JobFunc{MsgType: JobWatchlistSync, Fn: func(ctx context.Context, _ json.RawMessage) error {
			_, err := d.tickers.SyncWatchlist(ctx)
			return err
		}},
	}
}

// RunSchedule enqueues a batch every interval until ctx is done. A zero
// interval disables the schedule.
func (d *Dispatcher) RunSchedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchBatch(ctx); err != nil {
				d.l.Warn("scheduled batch", logger.Error(err))
			}
		}
	}
}
