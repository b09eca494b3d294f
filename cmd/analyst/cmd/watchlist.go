package cmd

import (
	"errors"
	"fmt"

	"MarketAnalyst/internal/domain/models"
	domrepo "MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/services/features"

	"github.com/spf13/cobra"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist [TICKER...]",
	Short: "Check liquidity and volatility eligibility",
	RunE:  runWatchlist,
}

func init() {
	rootCmd.AddCommand(watchlistCmd)
}

type eligibilityRow struct {
	Ticker string
	Result models.EligibilityResult
	Err    error
}

func runWatchlist(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	tickers, err := rt.tickers(args)
	if err != nil {
		return err
	}

	rows := make([]eligibilityRow, 0, len(tickers))
	for _, t := range tickers {
		h, err := rt.source.History(cmd.Context(), t, rt.cfg.Analysis.WatchlistRange, string(domrepo.IntervalDaily))
		switch {
		case errors.Is(err, domrepo.ErrQuoteNotFound):
			rows = append(rows, eligibilityRow{Ticker: t, Result: rt.engine.Evaluate(nil)})
		case err != nil:
			rows = append(rows, eligibilityRow{Ticker: t, Err: fmt.Errorf("history: %w", err)})
		default:
			rows = append(rows, eligibilityRow{Ticker: t, Result: rt.engine.Evaluate(features.NormalizeQuotes(h.Quotes))})
		}
	}
	renderEligibility(cmd.OutOrStdout(), rows)
	return nil
}
