package cmd

import (
	"fmt"
	"io"
	"strings"

	"MarketAnalyst/internal/domain/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const dateLayout = "2006-01-02"

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func renderReport(out io.Writer, r models.TickerReport) {
	latest := newTable(out, fmt.Sprintf("%s latest signal (%s / %s, %d bars)", r.Ticker, r.Range, r.Interval, r.Bars))
	latest.AppendHeader(table.Row{"Date", "Price", "StochRSI %K", "Type", "Reason"})
	latest.AppendRow(table.Row{
		r.Latest.Time.Format(dateLayout),
		fmt.Sprintf("%.2f", r.Latest.Price),
		fmt.Sprintf("%.2f", r.Latest.Oscillator),
		r.Latest.Direction,
		r.Latest.Reason,
	})
	latest.Render()

	history := newTable(out, "History")
	history.AppendHeader(table.Row{"Entry", "Type", "Price", "%K", "Exit", "Exit price", "Exit reason"})
	for _, s := range r.History {
		row := table.Row{s.Time.Format(dateLayout), s.Direction, fmt.Sprintf("%.2f", s.Price), fmt.Sprintf("%.2f", s.Oscillator), "", "", ""}
		if s.Exit != nil {
			row[4] = s.Exit.Time.Format(dateLayout)
			row[5] = fmt.Sprintf("%.2f", s.Exit.Price)
			row[6] = s.Exit.Reason
		}
		history.AppendRow(row)
	}
	history.AppendFooter(table.Row{"Total", len(r.History)})
	history.Render()

	if len(r.Monthly) > 0 {
		monthly := newTable(out, "Monthly")
		monthly.AppendHeader(table.Row{"Date", "Type", "Price", "Reason"})
		for _, s := range r.Monthly {
			monthly.AppendRow(table.Row{s.Time.Format(dateLayout), s.Direction, fmt.Sprintf("%.2f", s.Price), s.Reason})
		}
		monthly.Render()
	}

	var notes []string
	if r.CrossUpDate != nil {
		notes = append(notes, "last %K cross up: "+r.CrossUpDate.Format(dateLayout))
	}
	if r.SetupDate != nil {
		notes = append(notes, "last setup: "+r.SetupDate.Format(dateLayout))
	}
	notes = append(notes, fmt.Sprintf("eligible: %t (%s)", r.Eligibility.Passes, r.Eligibility.Reason))
	fmt.Fprintln(out, strings.Join(notes, " | "))
	fmt.Fprintln(out)
}

func renderEligibility(out io.Writer, rows []eligibilityRow) {
	t := newTable(out, "Watchlist eligibility")
	t.AppendHeader(table.Row{"Ticker", "Eligible", "Score", "Avg $ volume", "ATR %", "Reason"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, r := range rows {
		if r.Err != nil {
			t.AppendRow(table.Row{r.Ticker, "error", "", "", "", r.Err.Error()})
			continue
		}
		res := r.Result
		t.AppendRow(table.Row{
			r.Ticker,
			res.Passes,
			fmt.Sprintf("%.2f", res.Score*100),
			fmt.Sprintf("%.0f", res.AvgDollarVolume),
			fmt.Sprintf("%.2f", res.ATRPercent*100),
			res.Reason,
		})
	}
	t.Render()
}

func renderScores(out io.Writer, rows []scoreRow) {
	t := newTable(out, "Confirmation scores")
	t.AppendHeader(table.Row{"Ticker", "Score", "Type", "Periods", "Signal date", "Reason"})
	for _, r := range rows {
		if r.Err != nil {
			t.AppendRow(table.Row{r.Score.Ticker, "", "error", "", "", r.Err.Error()})
			continue
		}
		s := r.Score
		date := ""
		if !s.SignalTime.IsZero() {
			date = s.SignalTime.Format(dateLayout)
		}
		t.AppendRow(table.Row{s.Ticker, fmt.Sprintf("%.2f", s.Score), s.Direction, strings.Join(s.Periods, ";"), date, s.Reason})
	}
	t.Render()
}
