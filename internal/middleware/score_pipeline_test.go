package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
)

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []models.ConfirmationScore
	closed    bool
	closes    int
}

func (f *flakyPublisher) PublishScore(_ context.Context, s models.ConfirmationScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, s)
	return nil
}

func (f *flakyPublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closes++
	return nil
}

func (f *flakyPublisher) tickers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.published))
	for _, s := range f.published {
		out = append(out, s.Ticker)
	}
	return out
}

func (f *flakyPublisher) scores(ticker string) []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []float64
	for _, s := range f.published {
		if s.Ticker == ticker {
			out = append(out, s.Score)
		}
	}
	return out
}

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *nopMetrics) RecordAnalysis(string, models.Direction) {}
func (m *nopMetrics) RecordSignals(string, int)               {}
func (m *nopMetrics) RecordScore(string, float64)             {}
func (m *nopMetrics) RecordLatency(string, float64)           {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func score(ticker string) models.ConfirmationScore {
	return scoreOf(ticker, 50)
}

func scoreOf(ticker string, v float64) models.ConfirmationScore {
	return models.ConfirmationScore{Ticker: ticker, Score: v, Direction: models.DirectionCall}
}

func TestScorePipelineForwards(t *testing.T) {
	next := &flakyPublisher{}
	p := NewScorePipeline(next, &nopMetrics{})
	require.NoError(t, p.PublishScore(context.Background(), score("PETR4")))
	assert.Equal(t, []string{"PETR4"}, next.tickers())
}

func TestScorePipelineRejectsInvalid(t *testing.T) {
	m := &nopMetrics{}
	p := NewScorePipeline(&flakyPublisher{}, m)
	assert.Error(t, p.PublishScore(context.Background(), models.ConfirmationScore{Direction: models.DirectionNone}))
	assert.Error(t, p.PublishScore(context.Background(), models.ConfirmationScore{Ticker: "X", Direction: "Sideways"}))
	assert.Error(t, p.PublishScore(context.Background(), models.ConfirmationScore{Ticker: "X", Direction: models.DirectionPut, Score: 120}))
	assert.Equal(t, 3, m.errors["pipeline_validate"])
}

func TestScorePipelineBuffersAndFlushes(t *testing.T) {
	next := &flakyPublisher{failures: 2}
	p := NewScorePipeline(next, &nopMetrics{}, WithBackoff(time.Millisecond, 5*time.Millisecond))

	require.NoError(t, p.PublishScore(context.Background(), score("VALE3")))
	assert.Equal(t, 1, p.Buffered())

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return len(next.tickers()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, p.Buffered())

	require.NoError(t, p.Close())
	assert.True(t, next.closed)
}

func TestScorePipelineFullBuffer(t *testing.T) {
	next := &flakyPublisher{failures: 10}
	p := NewScorePipeline(next, &nopMetrics{}, WithBufferSize(1))

	require.NoError(t, p.PublishScore(context.Background(), score("A")))
	assert.Error(t, p.PublishScore(context.Background(), score("B")))
	require.NoError(t, p.Close())
}

func TestScorePipelineKeepsLatestScorePerTicker(t *testing.T) {
	next := &flakyPublisher{failures: 1}
	p := NewScorePipeline(next, &nopMetrics{}, WithBackoff(time.Millisecond, 5*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, p.PublishScore(ctx, scoreOf("PETR4", 50)))
	require.NoError(t, p.PublishScore(ctx, scoreOf("PETR4", 90)))
	assert.Equal(t, 1, p.Buffered())
	assert.Empty(t, next.scores("PETR4"))

	p.Start(ctx)
	assert.Eventually(t, func() bool { return p.Buffered() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []float64{90}, next.scores("PETR4"))
	require.NoError(t, p.Close())
}

func TestScorePipelineOtherTickersBypassBuffer(t *testing.T) {
	next := &flakyPublisher{failures: 1}
	p := NewScorePipeline(next, &nopMetrics{}, WithBackoff(time.Millisecond, 5*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, p.PublishScore(ctx, score("PETR4")))
	require.NoError(t, p.PublishScore(ctx, score("VALE3")))
	assert.Equal(t, []string{"VALE3"}, next.tickers())

	p.Start(ctx)
	assert.Eventually(t, func() bool { return len(next.tickers()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"VALE3", "PETR4"}, next.tickers())
	require.NoError(t, p.Close())
}

func TestScorePipelineCloseIsIdempotent(t *testing.T) {
	next := &flakyPublisher{}
	p := NewScorePipeline(next, &nopMetrics{})

	p.Start(context.Background())
	require.NoError(t, p.Close())
	assert.NotPanics(t, func() {
		p.Start(context.Background())
		require.NoError(t, p.Close())
	})
	assert.Equal(t, 1, next.closes)
}
