package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketAnalyst/internal/domain/models"
	domrepo "MarketAnalyst/internal/domain/repository"
	pkgch "MarketAnalyst/pkg/clickhouse"
	applogger "MarketAnalyst/pkg/logger"
)

// CHStore keeps tickers and analyses in ReplacingMergeTree tables keyed by
// ticker code. Writes are plain inserts with a newer version and every read
// uses FINAL, so the latest row per key wins.
type CHStore struct {
	client *pkgch.Client
	db     *sql.DB
	dbName string
	l      *applogger.Logger
	now    func() time.Time
}

func NewCHStore(ch *pkgch.Client, l *applogger.Logger) *CHStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHStore{client: ch, db: ch.DB(), dbName: ch.Database(), l: l, now: time.Now}
}

func chSchema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.tickers (
			code          String,
			name          String,
			sector        LowCardinality(String),
			logo          String,
			score         Float64,
			registered_at DateTime('UTC'),
			updated_at    DateTime('UTC'),
			version       UInt64
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY code`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.opportunity_analyses (
			id                String,
			ticker            String,
			date              DateTime('UTC'),
			score             Float64,
			type              LowCardinality(String),
			reason            String,
			last_price        Float64,
			last_oscillator   Float64,
			periods_confirmed String,
			created_at        DateTime('UTC'),
			version           UInt64
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY ticker`, db),
	}
}

func (s *CHStore) Init(ctx context.Context) error {
	return s.client.Migrate(ctx, chSchema(s.dbName)...)
}

func (s *CHStore) Health(ctx context.Context) error { return s.client.Health(ctx) }

func (s *CHStore) Close() error { return s.client.Close() }

func (s *CHStore) UpsertTicker(ctx context.Context, t models.Ticker) error {
	now := s.now().UTC()
	if prev, err := s.GetTicker(ctx, t.Code); err == nil {
		t.RegisteredAt = prev.RegisteredAt
	} else if !errors.Is(err, domrepo.ErrNotFound) {
		return err
	}
	if t.RegisteredAt.IsZero() {
		t.RegisteredAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	q := fmt.Sprintf(`INSERT INTO %s.tickers
		(code, name, sector, logo, score, registered_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.dbName)
	_, err := s.db.ExecContext(ctx, q, t.Code, t.Name, t.Sector, t.Logo, t.Score,
		t.RegisteredAt.UTC(), t.UpdatedAt.UTC(), uint64(now.UnixNano()))
	if err != nil {
		s.l.Error("clickhouse upsert ticker", applogger.String("ticker", t.Code), applogger.Error(err))
		return fmt.Errorf("upsert ticker %s: %w", t.Code, err)
	}
	return nil
}

func (s *CHStore) GetTicker(ctx context.Context, code string) (models.Ticker, error) {
	q, args := chTickerQuery(s.dbName, models.TickerFilter{})
	q = strings.Replace(q, " ORDER BY", " WHERE code = ? ORDER BY", 1)
	rows, err := s.db.QueryContext(ctx, q, append(args, code)...)
	if err != nil {
		return models.Ticker{}, fmt.Errorf("get ticker %s: %w", code, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Ticker{}, err
		}
		return models.Ticker{}, fmt.Errorf("ticker %s: %w", code, domrepo.ErrNotFound)
	}
	return scanCHTicker(rows)
}

func (s *CHStore) ListTickers(ctx context.Context, f models.TickerFilter) ([]models.Ticker, error) {
	start := time.Now()
	q, args := chTickerQuery(s.dbName, f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse list tickers", applogger.Error(err))
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	out := []models.Ticker{}
	for rows.Next() {
		t, err := scanCHTicker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickers rows: %w", err)
	}
	s.l.Debug("clickhouse list tickers",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

// chTickerQuery builds the filtered listing. The code filter is a
// case-sensitive substring match.
func chTickerQuery(db string, f models.TickerFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if f.Code != "" {
		where = append(where, "position(code, ?) > 0")
		args = append(args, f.Code)
	}
	if f.Sector != "" {
		where = append(where, "sector = ?")
		args = append(args, f.Sector)
	}
	if f.MinScore != nil {
		where = append(where, "score >= ?")
		args = append(args, *f.MinScore)
	}
	if f.MaxScore != nil {
		where = append(where, "score <= ?")
		args = append(args, *f.MaxScore)
	}
	q := fmt.Sprintf(`SELECT code, name, sector, logo, score, registered_at, updated_at FROM %s.tickers FINAL`, db)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY score DESC, code ASC", args
}

func (s *CHStore) Sectors(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`SELECT DISTINCT sector FROM %s.tickers FINAL WHERE sector != '' ORDER BY sector`, s.dbName)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sectors: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var sector string
		if err := rows.Scan(&sector); err != nil {
			return nil, err
		}
		out = append(out, sector)
	}
	return out, rows.Err()
}

func (s *CHStore) ReplaceAnalysis(ctx context.Context, a models.OpportunityAnalysis) error {
	q := fmt.Sprintf(`INSERT INTO %s.opportunity_analyses
		(id, ticker, date, score, type, reason, last_price, last_oscillator, periods_confirmed, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.dbName)
	_, err := s.db.ExecContext(ctx, q, a.ID, a.Ticker, a.Date.UTC(), a.Score, string(a.Type), a.Reason,
		a.LastPrice, a.LastOscillator, a.PeriodsConfirmed, a.CreatedAt.UTC(), uint64(s.now().UnixNano()))
	if err != nil {
		s.l.Error("clickhouse replace analysis", applogger.String("ticker", a.Ticker), applogger.Error(err))
		return fmt.Errorf("replace analysis %s: %w", a.Ticker, err)
	}
	return nil
}

func (s *CHStore) GetAnalysis(ctx context.Context, ticker string) (models.OpportunityAnalysis, error) {
	q := fmt.Sprintf(chAnalysisSelect+` WHERE ticker = ?`, s.dbName)
	rows, err := s.db.QueryContext(ctx, q, ticker)
	if err != nil {
		return models.OpportunityAnalysis{}, fmt.Errorf("get analysis %s: %w", ticker, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.OpportunityAnalysis{}, err
		}
		return models.OpportunityAnalysis{}, fmt.Errorf("analysis %s: %w", ticker, domrepo.ErrNotFound)
	}
	return scanCHAnalysis(rows)
}

func (s *CHStore) ListAnalyses(ctx context.Context) ([]models.OpportunityAnalysis, error) {
	q := fmt.Sprintf(chAnalysisSelect+` ORDER BY score DESC, ticker ASC`, s.dbName)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()
	out := []models.OpportunityAnalysis{}
	for rows.Next() {
		a, err := scanCHAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const chAnalysisSelect = `SELECT id, ticker, date, score, type, reason, last_price, last_oscillator, periods_confirmed, created_at
	FROM %s.opportunity_analyses FINAL`

func scanCHTicker(sc scanner) (models.Ticker, error) {
	var t models.Ticker
	if err := sc.Scan(&t.Code, &t.Name, &t.Sector, &t.Logo, &t.Score, &t.RegisteredAt, &t.UpdatedAt); err != nil {
		return models.Ticker{}, fmt.Errorf("scan ticker: %w", err)
	}
	t.RegisteredAt = t.RegisteredAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func scanCHAnalysis(sc scanner) (models.OpportunityAnalysis, error) {
	var (
		a   models.OpportunityAnalysis
		typ string
	)
	err := sc.Scan(&a.ID, &a.Ticker, &a.Date, &a.Score, &typ, &a.Reason,
		&a.LastPrice, &a.LastOscillator, &a.PeriodsConfirmed, &a.CreatedAt)
	if err != nil {
		return models.OpportunityAnalysis{}, fmt.Errorf("scan analysis: %w", err)
	}
	a.Type = models.Direction(typ)
	a.Date = a.Date.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
