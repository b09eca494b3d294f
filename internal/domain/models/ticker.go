package models

import (
	"strings"
	"time"
)

// Ticker is a watchlisted instrument.
type Ticker struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Sector       string    `json:"sector"`
	Logo         string    `json:"logo"`
	Score        float64   `json:"score"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TickerFilter narrows a ticker listing. Code matches as a case-sensitive
// substring, Sector exactly; nil bounds are ignored.
type TickerFilter struct {
	Code     string
	Sector   string
	MinScore *float64
	MaxScore *float64
}

// Match applies the filter to a single ticker.
func (f TickerFilter) Match(t Ticker) bool {
	if f.Code != "" && !strings.Contains(t.Code, f.Code) {
		return false
	}
	if f.Sector != "" && t.Sector != f.Sector {
		return false
	}
	if f.MinScore != nil && t.Score < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && t.Score > *f.MaxScore {
		return false
	}
	return true
}

// OpportunityAnalysis is the persisted, current confirmation result of a ticker.
type OpportunityAnalysis struct {
	ID               string    `json:"id"`
	Ticker           string    `json:"ticker"`
	Date             time.Time `json:"date"`
	Score            float64   `json:"score"`
	Type             Direction `json:"type"`
	Reason           string    `json:"reason"`
	LastPrice        float64   `json:"last_price"`
	LastOscillator   float64   `json:"last_oscillator"`
	PeriodsConfirmed string    `json:"periods_confirmed"`
	CreatedAt        time.Time `json:"created_at"`
}

// PeriodsSeparator joins confirmed periods in OpportunityAnalysis.
const PeriodsSeparator = ";"

// NewOpportunityAnalysis converts a score into its persisted form.
func NewOpportunityAnalysis(id string, s ConfirmationScore, now time.Time) OpportunityAnalysis {
	date := s.SignalTime
	if date.IsZero() {
		date = now
	}
	return OpportunityAnalysis{
		ID:               id,
		Ticker:           s.Ticker,
		Date:             date.UTC(),
		Score:            s.Score,
		Type:             s.Direction,
		Reason:           s.Reason,
		LastPrice:        s.LastPrice,
		LastOscillator:   s.LastOscillator,
		PeriodsConfirmed: strings.Join(s.Periods, PeriodsSeparator),
		CreatedAt:        now.UTC(),
	}
}

// TickerReport gathers every analysis the engine can run on one history.
type TickerReport struct {
	Ticker      string            `json:"ticker"`
	Range       string            `json:"range"`
	Interval    string            `json:"interval"`
	Bars        int               `json:"bars"`
	Latest      Signal            `json:"latest"`
	History     []Signal          `json:"history"`
	Monthly     []Signal          `json:"monthly"`
	CrossUpDate *time.Time        `json:"cross_up_date,omitempty"`
	SetupDate   *time.Time        `json:"setup_date,omitempty"`
	Eligibility EligibilityResult `json:"eligibility"`
}

// BatchReport summarizes a batch analysis run.
type BatchReport struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// SyncReport summarizes a watchlist synchronization.
type SyncReport struct {
	Listed   int               `json:"listed"`
	Eligible int               `json:"eligible"`
	Skipped  int               `json:"skipped"`
	Errors   map[string]string `json:"errors,omitempty"`
}
