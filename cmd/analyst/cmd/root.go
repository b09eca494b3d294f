package cmd

import (
	"context"
	"fmt"

	"MarketAnalyst/internal/di"
	domrepo "MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/repository"
	"MarketAnalyst/internal/services/opportunity"
	"MarketAnalyst/internal/usecase"
	"MarketAnalyst/pkg/cache"
	"MarketAnalyst/pkg/config"
	"MarketAnalyst/pkg/logger"
	"MarketAnalyst/pkg/util"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "analyst",
	Short: "Scan B3 tickers for StochRSI/MACD option opportunities",
	Long: `analyst runs the opportunity engine against brapi.dev price history
from the terminal. It reads the same configuration file as the service.

Examples:
  analyst report PETR4 VALE3 --range 1y
  analyst watchlist WEGE3 ITUB4
  analyst confirm BBAS3`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
}

// runtime holds what every subcommand needs.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	source domrepo.QuoteSource
	engine *opportunity.Engine
}

func newRuntime() (*runtime, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, err
	}
	l, err := logger.New(&logger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:    cfg,
		log:    l,
		source: di.ProvideQuoteSource(cfg, l, cache.NewMemoryCache()),
		engine: di.ProvideEngine(),
	}, nil
}

// analysis builds an analysis use case over the local SQLite store.
func (r *runtime) analysis(ctx context.Context) (*usecase.AnalysisUseCase, func(), error) {
	store, err := repository.NewSQLiteStore(r.cfg.SQLite.Path, r.log)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	a := r.cfg.Analysis
	uc := usecase.NewAnalysisUseCase(r.source, store, r.engine, r.log, usecase.AnalysisConfig{
		Workers:        a.Workers,
		Timeout:        a.Timeout,
		DailyRange:     a.DailyRange,
		DailyInterval:  a.DailyInterval,
		WeeklyRange:    a.WeeklyRange,
		WeeklyInterval: a.WeeklyInterval,
		MonthlyRange:   a.MonthlyRange,
	})
	return uc, func() { _ = store.Close() }, nil
}

// tickers returns the normalized arguments, or the configured universe.
func (r *runtime) tickers(args []string) ([]string, error) {
	src := args
	if len(src) == 0 {
		src = r.cfg.Analysis.Universe
	}
	out := make([]string, 0, len(src))
	for _, t := range src {
		if t = util.NormalizeTicker(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tickers given and analysis.universe is empty")
	}
	return out, nil
}
