package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketAnalyst/internal/domain/models"
	domrepo "MarketAnalyst/internal/domain/repository"
)

// ScorePipeline sits between the analysis use case and a ScorePublisher. It
// validates scores and buffers them while the downstream is unavailable,
// flushing in the background with capped exponential backoff.
//
// The buffer holds at most one score per ticker. A newer score replaces the
// pending one, and while a ticker has a pending score its later scores go
// through the buffer too, so the downstream never sees them out of order.
type ScorePipeline struct {
	next    domrepo.ScorePublisher
	metrics domrepo.Metrics
	bufSize int
	wake    chan struct{}
	stopCh  chan struct{}
	done    chan struct{}

	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	pending map[string]pendingScore
	order   []string // tickers in the order they were first buffered
	seq     uint64
	started bool
	closed  bool
}

type pendingScore struct {
	score models.ConfirmationScore
	seq   uint64
}

// PipelineOption configures a ScorePipeline.
type PipelineOption func(*ScorePipeline)

// WithBufferSize sets how many tickers may have a score held while the
// downstream fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *ScorePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBackoff bounds the wait between failed flush attempts.
func WithBackoff(min, max time.Duration) PipelineOption {
	return func(p *ScorePipeline) {
		if min > 0 {
			p.minBackoff = min
		}
		if max >= p.minBackoff {
			p.maxBackoff = max
		}
	}
}

// NewScorePipeline wraps next. Call Start to enable the background flush.
func NewScorePipeline(next domrepo.ScorePublisher, metrics domrepo.Metrics, opts ...PipelineOption) *ScorePipeline {
	p := &ScorePipeline{
		next:       next,
		metrics:    metrics,
		bufSize:    1000,
		wake:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		minBackoff: 50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
		pending:    map[string]pendingScore{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the background flush of buffered scores. It is a no-op
// once the pipeline is running or closed.
func (p *ScorePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go p.flush(ctx)
}

func (p *ScorePipeline) flush(ctx context.Context) {
	defer close(p.done)
	backoff := p.minBackoff
	for {
		head, ok := p.head()
		if !ok {
			select {
			case <-p.stopCh:
				return
			case <-p.wake:
				continue
			}
		}
		if err := p.next.PublishScore(ctx, head.score); err != nil {
			p.metrics.RecordError("pipeline_flush")
			if backoff < p.maxBackoff {
				backoff *= 2
				if backoff > p.maxBackoff {
					backoff = p.maxBackoff
				}
			}
			select {
			case <-p.stopCh:
				return
			case <-time.After(backoff):
			}
			continue
		}
		p.ack(head)
		backoff = p.minBackoff
	}
}

// head returns the oldest buffered ticker's latest score.
func (p *ScorePipeline) head() (pendingScore, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return pendingScore{}, false
	}
	return p.pending[p.order[0]], true
}

// ack drops a flushed score unless a newer one replaced it meanwhile.
func (p *ScorePipeline) ack(done pendingScore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ticker := done.score.Ticker
	cur, ok := p.pending[ticker]
	if !ok || cur.seq != done.seq {
		return
	}
	delete(p.pending, ticker)
	for i, t := range p.order {
		if t == ticker {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// enqueue buffers s. With replaceOnly set it only succeeds when s's ticker
// already has a pending score.
func (p *ScorePipeline) enqueue(s models.ConfirmationScore, replaceOnly bool) (buffered, full bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.pending[s.Ticker]
	switch {
	case replaceOnly && !exists:
		return false, false
	case !exists && len(p.pending) >= p.bufSize:
		return false, true
	}
	p.seq++
	p.pending[s.Ticker] = pendingScore{score: s, seq: p.seq}
	if !exists {
		p.order = append(p.order, s.Ticker)
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true, false
}

// PublishScore forwards s, buffering it when the downstream fails or an
// older score for the same ticker is still waiting. Only an invalid score
// or a full buffer is reported as an error.
func (p *ScorePipeline) PublishScore(ctx context.Context, s models.ConfirmationScore) error {
	if err := validateScore(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if buffered, _ := p.enqueue(s, true); buffered {
		p.metrics.RecordError("pipeline_superseded")
		return nil
	}
	start := time.Now()
	if err := p.next.PublishScore(ctx, s); err != nil {
		if _, full := p.enqueue(s, false); full {
			p.metrics.RecordError("pipeline_buffer_full")
			return fmt.Errorf("score pipeline downstream: %w", err)
		}
		p.metrics.RecordError("pipeline_buffered")
		return nil
	}
	p.metrics.RecordLatency("publish", time.Since(start).Seconds())
	return nil
}

// Buffered returns how many tickers have a score waiting for the downstream.
func (p *ScorePipeline) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close stops flushing and closes the downstream. Scores still buffered
// are lost. Later calls return nil.
func (p *ScorePipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if started {
		<-p.done
	}
	return p.next.Close()
}

func validateScore(s models.ConfirmationScore) error {
	if s.Ticker == "" {
		return fmt.Errorf("score without ticker")
	}
	if !s.Direction.Valid() {
		return fmt.Errorf("invalid direction %q", s.Direction)
	}
	if s.Score < 0 || s.Score > 100 {
		return fmt.Errorf("score %.2f out of range", s.Score)
	}
	return nil
}
