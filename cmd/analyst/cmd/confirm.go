package cmd

import (
	"MarketAnalyst/internal/domain/models"

	"github.com/spf13/cobra"
)

var confirmCmd = &cobra.Command{
	Use:   "confirm [TICKER...]",
	Short: "Score daily/weekly confirmation and store it in the local database",
	RunE:  runConfirm,
}

func init() {
	rootCmd.AddCommand(confirmCmd)
}

type scoreRow struct {
	Score models.ConfirmationScore
	Err   error
}

func runConfirm(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	tickers, err := rt.tickers(args)
	if err != nil {
		return err
	}
	uc, closeStore, err := rt.analysis(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	rows := make([]scoreRow, 0, len(tickers))
	for _, t := range tickers {
		s, err := uc.ProcessTicker(cmd.Context(), t)
		if err != nil {
			s.Ticker = t
		}
		rows = append(rows, scoreRow{Score: s, Err: err})
	}
	renderScores(cmd.OutOrStdout(), rows)
	return nil
}
