package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
)

type fakeSource struct {
	mu        sync.Mutex
	histories map[string][]models.Quote // keyed by ticker
	failing   map[string]error
	universe  []models.Ticker
	calls     []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{histories: map[string][]models.Quote{}, failing: map[string]error{}}
}

func (s *fakeSource) History(_ context.Context, ticker, rng, interval string) (models.QuoteHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ticker+"/"+rng+"/"+interval)
	if err := s.failing[ticker]; err != nil {
		return models.QuoteHistory{}, err
	}
	q, ok := s.histories[ticker]
	if !ok {
		return models.QuoteHistory{}, fmt.Errorf("%s: %w", ticker, repository.ErrQuoteNotFound)
	}
	return models.QuoteHistory{Ticker: ticker, Range: rng, Interval: interval, Quotes: q}, nil
}

func (s *fakeSource) List(context.Context) ([]models.Ticker, error) { return s.universe, nil }

type memStore struct {
	mu       sync.Mutex
	tickers  map[string]models.Ticker
	analyses map[string]models.OpportunityAnalysis
	failOn   string
}

func newMemStore() *memStore {
	return &memStore{tickers: map[string]models.Ticker{}, analyses: map[string]models.OpportunityAnalysis{}}
}

func (m *memStore) UpsertTicker(_ context.Context, t models.Ticker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.tickers[t.Code]; ok {
		t.RegisteredAt = prev.RegisteredAt
	}
	m.tickers[t.Code] = t
	return nil
}

func (m *memStore) GetTicker(_ context.Context, code string) (models.Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickers[code]
	if !ok {
		return models.Ticker{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTickers(_ context.Context, f models.TickerFilter) ([]models.Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Ticker{}
	for _, t := range m.tickers {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) Sectors(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, t := range m.tickers {
		if t.Sector != "" && !seen[t.Sector] {
			seen[t.Sector] = true
			out = append(out, t.Sector)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ReplaceAnalysis(_ context.Context, a models.OpportunityAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && strings.EqualFold(m.failOn, a.Ticker) {
		return fmt.Errorf("disk full")
	}
	m.analyses[a.Ticker] = a
	return nil
}

func (m *memStore) GetAnalysis(_ context.Context, ticker string) (models.OpportunityAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[ticker]
	if !ok {
		return models.OpportunityAnalysis{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListAnalyses(context.Context) ([]models.OpportunityAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.OpportunityAnalysis, 0, len(m.analyses))
	for _, a := range m.analyses {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (m *memStore) Init(context.Context) error   { return nil }
func (m *memStore) Health(context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	scores []models.ConfirmationScore
	err    error
}

func (p *recordingPublisher) PublishScore(_ context.Context, s models.ConfirmationScore) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores = append(p.scores, s)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingBroadcaster struct {
	mu     sync.Mutex
	scores []models.ConfirmationScore
}

func (b *recordingBroadcaster) Broadcast(s models.ConfirmationScore) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores = append(b.scores, s)
}

type fakeLocker struct {
	held     bool
	unlocked int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Unlock(context.Context, string) error {
	l.held = false
	l.unlocked++
	return nil
}

type countingMetrics struct {
	noopMetrics
	mu     sync.Mutex
	errors map[string]int
	ops    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: map[string]int{}, ops: map[string]int{}}
}

func (c *countingMetrics) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[kind]++
}

func (c *countingMetrics) RecordLatency(op string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops[op]++
}

var day0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

// liquidQuotes builds n daily quotes that clear the eligibility gate.
func liquidQuotes(n int) []models.Quote {
	out := make([]models.Quote, n)
	for i := range out {
		c := 40 + 4*float64(i%10)/10
		o, h, l := c-0.5, c+1.2, c-1.2
		v := int64(2_000_000)
		out[i] = models.Quote{Date: day0.AddDate(0, 0, i).Unix(), Open: &o, High: &h, Low: &l, Close: &c, Volume: &v}
	}
	return out
}

type countingPublisher struct {
	mu sync.Mutex
	n  int
}

func (p *countingPublisher) Publish(context.Context, string, interface{}) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return fmt.Sprintf("job-%d", p.n), nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
