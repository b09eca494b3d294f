package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/usecase"
	xhttp "MarketAnalyst/pkg/http"
	xlogger "MarketAnalyst/pkg/logger"
)

type stubTickers struct {
	filter models.TickerFilter
	rows   []models.Ticker
	err    error
}

func (s *stubTickers) List(_ context.Context, f models.TickerFilter) ([]models.Ticker, []string, error) {
	s.filter = f
	return s.rows, []string{"Energy"}, s.err
}

func (s *stubTickers) SyncWatchlist(context.Context) (models.SyncReport, error) {
	return models.SyncReport{Listed: 3, Eligible: 1}, s.err
}

type stubAnalysis struct {
	reportArgs []string
	stored     map[string]models.OpportunityAnalysis
	err        error
}

func (s *stubAnalysis) ProcessTicker(_ context.Context, code string) (models.ConfirmationScore, error) {
	if code == "" {
		return models.ConfirmationScore{}, usecase.ErrEmptyTicker
	}
	return models.ConfirmationScore{Ticker: code, Score: 50, Direction: models.DirectionCall}, s.err
}

func (s *stubAnalysis) Report(_ context.Context, code, rng, interval string) (models.TickerReport, error) {
	s.reportArgs = []string{code, rng, interval}
	if s.err != nil {
		return models.TickerReport{}, s.err
	}
	return models.TickerReport{Ticker: code, Range: rng, Interval: interval}, nil
}

func (s *stubAnalysis) Opportunities(context.Context) ([]models.OpportunityAnalysis, error) {
	out := []models.OpportunityAnalysis{}
	for _, a := range s.stored {
		out = append(out, a)
	}
	return out, s.err
}

func (s *stubAnalysis) Opportunity(_ context.Context, code string) (models.OpportunityAnalysis, error) {
	a, ok := s.stored[code]
	if !ok {
		return a, fmt.Errorf("get %s: %w", code, repository.ErrNotFound)
	}
	return a, nil
}

type stubDispatcher struct{ err error }

func (d stubDispatcher) DispatchBatch(context.Context) (string, error) { return "01JOB", d.err }

type stubPinger struct{ err error }

func (p stubPinger) Health(context.Context) error { return p.err }

func newEcho(handlers ...xhttp.Handler) *echo.Echo {
	e := echo.New()
	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string) (int, xhttp.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func TestTickerList(t *testing.T) {
	tickers := &stubTickers{rows: []models.Ticker{{Code: "PETR4", Score: 72.5}}}
	e := newEcho(NewTickerHandler(xlogger.Nop(), tickers, &stubAnalysis{}))

	code, body := do(t, e, http.MethodGet, "/api/tickers?code=PE&min_score=50")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PE", tickers.filter.Code)
	require.NotNil(t, tickers.filter.MinScore)
	assert.Equal(t, 50.0, *tickers.filter.MinScore)
	assert.Nil(t, tickers.filter.MaxScore)

	data := body.Data.(map[string]interface{})
	assert.Len(t, data["rows"], 1)
	assert.Equal(t, []interface{}{"Energy"}, data["sectors"])
}

func TestTickerListValidation(t *testing.T) {
	e := newEcho(NewTickerHandler(xlogger.Nop(), &stubTickers{}, &stubAnalysis{}))
	code, _ := do(t, e, http.MethodGet, "/api/tickers?min_score=lots")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTickerReportDefaults(t *testing.T) {
	analysis := &stubAnalysis{}
	e := newEcho(NewTickerHandler(xlogger.Nop(), &stubTickers{}, analysis))

	code, _ := do(t, e, http.MethodGet, "/api/tickers/WEGE3/report")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"WEGE3", "6mo", "1d"}, analysis.reportArgs)

	code, _ = do(t, e, http.MethodGet, "/api/tickers/WEGE3/report?interval=5m")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTickerReportUnknownTicker(t *testing.T) {
	analysis := &stubAnalysis{err: fmt.Errorf("history: %w", repository.ErrQuoteNotFound)}
	e := newEcho(NewTickerHandler(xlogger.Nop(), &stubTickers{}, analysis))

	code, _ := do(t, e, http.MethodGet, "/api/tickers/NOPE3/report?range=1y")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTickerSync(t *testing.T) {
	e := newEcho(NewTickerHandler(xlogger.Nop(), &stubTickers{}, &stubAnalysis{}))
	code, body := do(t, e, http.MethodPost, "/api/tickers/sync")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, body.Data.(map[string]interface{})["listed"])
}

func TestOpportunities(t *testing.T) {
	analysis := &stubAnalysis{stored: map[string]models.OpportunityAnalysis{
		"PETR4": {ID: "a", Ticker: "PETR4", Score: 90, Type: models.DirectionCall},
	}}
	e := newEcho(NewOpportunityHandler(xlogger.Nop(), analysis, stubDispatcher{}))

	code, body := do(t, e, http.MethodGet, "/api/opportunities")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body.Data.(map[string]interface{})["total"])

	code, body = do(t, e, http.MethodGet, "/api/opportunities/PETR4")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Call", body.Data.(map[string]interface{})["type"])

	code, _ = do(t, e, http.MethodGet, "/api/opportunities/VALE3")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProcessEndpoints(t *testing.T) {
	e := newEcho(NewOpportunityHandler(xlogger.Nop(), &stubAnalysis{}, stubDispatcher{}))

	code, body := do(t, e, http.MethodPost, "/api/analyses/process")
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "01JOB", body.Data.(map[string]interface{})["job_id"])

	code, body = do(t, e, http.MethodPost, "/api/analyses/ITUB4")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ITUB4", body.Data.(map[string]interface{})["ticker"])
}

func TestProcessErrors(t *testing.T) {
	e := newEcho(NewOpportunityHandler(xlogger.Nop(), &stubAnalysis{err: errors.New("boom")},
		stubDispatcher{err: fmt.Errorf("run: %w", usecase.ErrBatchRunning)}))

	code, _ := do(t, e, http.MethodPost, "/api/analyses/process")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, e, http.MethodPost, "/api/analyses/ITUB4")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestHealth(t *testing.T) {
	code, _ := do(t, newEcho(NewHealthHandler(xlogger.Nop(), stubPinger{})), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, newEcho(NewHealthHandler(xlogger.Nop(), stubPinger{err: errors.New("down")})), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
