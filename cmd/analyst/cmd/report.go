package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reportRange    string
	reportInterval string
)

var reportCmd = &cobra.Command{
	Use:   "report [TICKER...]",
	Short: "Print the latest signal and the signal history for each ticker",
	Long: `Fetch each ticker's history and print the latest single-bar signal,
every historical entry with its exit, and any monthly opportunities.
A failing ticker is reported and the loop moves on.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportRange, "range", "6mo", "history range (1mo 3mo 6mo 1y 2y 5y 10y ytd max)")
	reportCmd.Flags().StringVar(&reportInterval, "interval", "1d", "bar interval (1d 1wk 1mo)")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	for _, t := range tickers {
		r, err := uc.Report(cmd.Context(), t, reportRange, reportInterval)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n\n", t, err)
			continue
		}
		renderReport(out, r)
	}
	return nil
}
