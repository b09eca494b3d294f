package models

import "strconv"

// Requests for the HTTP endpoints. Kept in domain so handlers and tests share them.

type TickerListRequest struct {
	Code     string `query:"code" json:"code" validate:"omitempty,max=16"`
	Sector   string `query:"sector" json:"sector" validate:"omitempty,max=128"`
	MinScore string `query:"min_score" json:"min_score" validate:"omitempty,numeric"`
	MaxScore string `query:"max_score" json:"max_score" validate:"omitempty,numeric"`
}

// Filter converts the validated request into a store filter.
func (r TickerListRequest) Filter() TickerFilter {
	return TickerFilter{Code: r.Code, Sector: r.Sector, MinScore: parseBound(r.MinScore), MaxScore: parseBound(r.MaxScore)}
}

func parseBound(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

type ReportRequest struct {
	Code     string `param:"code" json:"code" validate:"required,max=16"`
	Range    string `query:"range" json:"range" default:"6mo" validate:"oneof=1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1d 1wk 1mo"`
}

type TickerCodeRequest struct {
	Code string `param:"code" json:"code" validate:"required,max=16"`
}

type AnalysisRequest struct {
	Ticker string `json:"ticker" validate:"required,max=16"`
}
