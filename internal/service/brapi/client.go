package brapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketAnalyst/internal/domain/models"
	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/service/ratelimit"
	pkghttp "MarketAnalyst/pkg/http"
	"MarketAnalyst/pkg/logger"
)

// Client talks to the brapi.dev quote API.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	token   string
	limiter *ratelimit.Limiter
	l       *logger.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithHTTPClient(hc *pkghttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, timeout time.Duration, l *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		l:       l,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = pkghttp.NewClient(pkghttp.WithTimeout(timeout))
	}
	if c.l == nil {
		c.l = logger.Nop()
	}
	return c
}

type quoteResponse struct {
	Results []quoteResult `json:"results"`
}

type quoteResult struct {
	Symbol              string         `json:"symbol"`
	RegularMarketPrice  float64        `json:"regularMarketPrice"`
	HistoricalDataPrice []models.Quote `json:"historicalDataPrice"`
}

type listResponse struct {
	Stocks []struct {
		Stock  string `json:"stock"`
		Name   string `json:"name"`
		Sector string `json:"sector"`
		Logo   string `json:"logo"`
	} `json:"stocks"`
}

// History fetches one ticker's candles. A missing ticker yields
// repository.ErrQuoteNotFound.
func (c *Client) History(ctx context.Context, ticker, rng, interval string) (models.QuoteHistory, error) {
	var resp quoteResponse
	err := c.get(ctx, "/api/quote/"+url.PathEscape(ticker), map[string][]string{
		"range":    {rng},
		"interval": {interval},
	}, &resp)
	if err != nil {
		var se *pkghttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return models.QuoteHistory{}, fmt.Errorf("%s: %w", ticker, repository.ErrQuoteNotFound)
		}
		return models.QuoteHistory{}, fmt.Errorf("brapi history %s: %w", ticker, err)
	}
	if len(resp.Results) == 0 {
		return models.QuoteHistory{}, fmt.Errorf("%s: %w", ticker, repository.ErrQuoteNotFound)
	}

	r := resp.Results[0]
	symbol := r.Symbol
	if symbol == "" {
		symbol = ticker
	}
	return models.QuoteHistory{
		Ticker:      symbol,
		Range:       rng,
		Interval:    interval,
		MarketPrice: r.RegularMarketPrice,
		Quotes:      r.HistoricalDataPrice,
	}, nil
}

// List returns the tradable universe.
func (c *Client) List(ctx context.Context) ([]models.Ticker, error) {
	var resp listResponse
	if err := c.get(ctx, "/api/quote/list", nil, &resp); err != nil {
		return nil, fmt.Errorf("brapi list: %w", err)
	}
	out := make([]models.Ticker, 0, len(resp.Stocks))
	for _, s := range resp.Stocks {
		if s.Stock == "" {
			continue
		}
		out = append(out, models.Ticker{Code: s.Stock, Name: s.Name, Sector: s.Sector, Logo: s.Logo})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "brapi"); err != nil {
			return err
		}
	}
	if query == nil {
		query = map[string][]string{}
	}
	headers := map[string]string{}
	if c.token != "" {
		query["token"] = []string{c.token}
		headers["Authorization"] = "Bearer " + c.token
	}

	start := time.Now()
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     headers,
		QueryParams: query,
	}, dest)
	c.l.Debug("brapi request",
		logger.String("path", path),
		logger.Duration("duration_ms", time.Since(start)),
		logger.Bool("ok", err == nil))
	return err
}
