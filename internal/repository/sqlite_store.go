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
	applogger "MarketAnalyst/pkg/logger"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tickers (
	code          TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	sector        TEXT NOT NULL DEFAULT '',
	logo          TEXT NOT NULL DEFAULT '',
	score         REAL NOT NULL DEFAULT 0,
	registered_at INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickers_sector ON tickers(sector);

CREATE TABLE IF NOT EXISTS opportunity_analyses (
	id                TEXT PRIMARY KEY,
	ticker            TEXT NOT NULL UNIQUE,
	date              INTEGER NOT NULL,
	score             REAL NOT NULL,
	type              TEXT NOT NULL,
	reason            TEXT NOT NULL,
	last_price        REAL NOT NULL,
	last_oscillator   REAL NOT NULL,
	periods_confirmed TEXT NOT NULL,
	created_at        INTEGER NOT NULL
);
`

// SQLiteStore is the single-node Store. Timestamps are unix seconds in UTC.
type SQLiteStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewSQLiteStore opens path; use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string, l *applogger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// one writer, and ":memory:" databases are per-connection
	db.SetMaxOpenConns(1)
	if l == nil {
		l = applogger.Nop()
	}
	return &SQLiteStore{db: db, l: l}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		return fmt.Errorf("sqlite pragmas: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) UpsertTicker(ctx context.Context, t models.Ticker) error {
	now := time.Now().UTC()
	if t.RegisteredAt.IsZero() {
		t.RegisteredAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickers (code, name, sector, logo, score, registered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			logo = excluded.logo,
			score = excluded.score,
			updated_at = excluded.updated_at`,
		t.Code, t.Name, t.Sector, t.Logo, t.Score, t.RegisteredAt.Unix(), t.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert ticker %s: %w", t.Code, err)
	}
	return nil
}

func (s *SQLiteStore) GetTicker(ctx context.Context, code string) (models.Ticker, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, name, sector, logo, score, registered_at, updated_at
		FROM tickers WHERE code = ?`, code)
	t, err := scanTicker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ticker{}, fmt.Errorf("ticker %s: %w", code, domrepo.ErrNotFound)
	}
	return t, err
}

func (s *SQLiteStore) ListTickers(ctx context.Context, f models.TickerFilter) ([]models.Ticker, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Code != "" {
		where = append(where, "instr(code, ?) > 0")
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
	q := `SELECT code, name, sector, logo, score, registered_at, updated_at FROM tickers`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY score DESC, code ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("sqlite list tickers", applogger.Error(err))
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	out := []models.Ticker{}
	for rows.Next() {
		t, err := scanTicker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Sectors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT sector FROM tickers WHERE sector <> '' ORDER BY sector`)
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

// ReplaceAnalysis deletes the ticker's previous analysis and inserts a in one
// transaction.
func (s *SQLiteStore) ReplaceAnalysis(ctx context.Context, a models.OpportunityAnalysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM opportunity_analyses WHERE ticker = ?`, a.Ticker); err != nil {
		return fmt.Errorf("delete analysis %s: %w", a.Ticker, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO opportunity_analyses
		(id, ticker, date, score, type, reason, last_price, last_oscillator, periods_confirmed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Ticker, a.Date.Unix(), a.Score, string(a.Type), a.Reason,
		a.LastPrice, a.LastOscillator, a.PeriodsConfirmed, a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", a.Ticker, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, ticker string) (models.OpportunityAnalysis, error) {
	row := s.db.QueryRowContext(ctx, analysisSelect+` WHERE ticker = ?`, ticker)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OpportunityAnalysis{}, fmt.Errorf("analysis %s: %w", ticker, domrepo.ErrNotFound)
	}
	return a, err
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context) ([]models.OpportunityAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, analysisSelect+` ORDER BY score DESC, ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()
	out := []models.OpportunityAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const analysisSelect = `
	SELECT id, ticker, date, score, type, reason, last_price, last_oscillator, periods_confirmed, created_at
	FROM opportunity_analyses`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTicker(sc scanner) (models.Ticker, error) {
	var (
		t                   models.Ticker
		registered, updated int64
	)
	if err := sc.Scan(&t.Code, &t.Name, &t.Sector, &t.Logo, &t.Score, &registered, &updated); err != nil {
		return models.Ticker{}, err
	}
	t.RegisteredAt = time.Unix(registered, 0).UTC()
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	return t, nil
}

func scanAnalysis(sc scanner) (models.OpportunityAnalysis, error) {
	var (
		a             models.OpportunityAnalysis
		typ           string
		date, created int64
	)
	err := sc.Scan(&a.ID, &a.Ticker, &date, &a.Score, &typ, &a.Reason,
		&a.LastPrice, &a.LastOscillator, &a.PeriodsConfirmed, &created)
	if err != nil {
		return models.OpportunityAnalysis{}, err
	}
	a.Type = models.Direction(typ)
	a.Date = time.Unix(date, 0).UTC()
	a.CreatedAt = time.Unix(created, 0).UTC()
	return a, nil
}
