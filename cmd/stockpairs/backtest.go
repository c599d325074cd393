package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mukundan1989/stockpairs/internal/backtest"
	"github.com/mukundan1989/stockpairs/internal/config"
	"github.com/mukundan1989/stockpairs/internal/export"
	"github.com/mukundan1989/stockpairs/internal/model"
	"github.com/mukundan1989/stockpairs/internal/store"
	"github.com/spf13/cobra"
)

func backtestCmd(cfg *config.Config) *cobra.Command {
	var (
		pair      string
		pairsFile string
		startStr  string
		endStr    string
		lookback  int
		entry     float64
		exit      float64
		closeOpen bool
		csvDir    string
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest the ratio z-score strategy on stored pairs",
		Long: "Backtest joins the stored daily closes of two symbols, computes the " +
			"rolling z-score of their price ratio and simulates threshold-based " +
			"entries and exits. Pairs come from --pair or from a YAML --pairs-file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pairs, err := resolvePairs(pair, pairsFile)
			if err != nil {
				return err
			}

			start, end, err := parseDateRange(startStr, endStr)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var exporter *export.Exporter
			if csvDir != "" {
				exporter = export.NewExporter(csvDir)
			}
			tg := newNotifier(cfg)

			results := make([]*backtest.Result, 0, len(pairs))
			for _, p := range pairs {
				params := backtest.Params{
					Lookback:       lookback,
					EntryThreshold: entry,
					ExitThreshold:  exit,
					Start:          start,
					End:            end,
				}
				if p.Lookback != nil {
					params.Lookback = *p.Lookback
				}
				if p.EntryThreshold != nil {
					params.EntryThreshold = *p.EntryThreshold
				}
				if p.ExitThreshold != nil {
					params.ExitThreshold = *p.ExitThreshold
				}
				if closeOpen {
					params.ClosePolicy = backtest.CloseAtEnd
				}

				res, err := runPair(ctx, st, p.SymbolA, p.SymbolB, params)
				if err != nil {
					return fmt.Errorf("backtest %s/%s: %w", p.SymbolA, p.SymbolB, err)
				}
				results = append(results, res)

				fmt.Print(backtest.FormatSummary(res))

				if exporter != nil {
					seriesPath, err := exporter.SeriesFile(res)
					if err != nil {
						return err
					}
					tradesPath, err := exporter.TradesFile(res)
					if err != nil {
						return err
					}
					fmt.Printf("Series CSV:        %s\n", seriesPath)
					fmt.Printf("Trades CSV:        %s\n", tradesPath)
				}

				tg.Send(backtest.FormatSummary(res))
			}

			printBatchSummary(results)
			return nil
		},
	}
	cmd.Flags().StringVar(&pair, "pair", "", `pair to test, written as "AAA/BBB"`)
	cmd.Flags().StringVar(&pairsFile, "pairs-file", "", "YAML file listing pairs to test")
	cmd.Flags().StringVar(&startStr, "start", "", "first date to evaluate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "last date to evaluate (YYYY-MM-DD)")
	cmd.Flags().IntVar(&lookback, "lookback", cfg.Lookback, "rolling window length in rows")
	cmd.Flags().Float64Var(&entry, "entry", cfg.EntryThreshold, "entry z-score threshold")
	cmd.Flags().Float64Var(&exit, "exit", cfg.ExitThreshold, "exit z-score threshold")
	cmd.Flags().BoolVar(&closeOpen, "close-open", false, "force close a trade still open on the last date")
	cmd.Flags().StringVar(&csvDir, "csv-dir", "", "write per-pair series and trade CSV files to this directory")
	return cmd
}

// printBatchSummary renders one line per pair after a multi-pair run.
func printBatchSummary(results []*backtest.Result) {
	if len(results) < 2 {
		return
	}
	fmt.Printf("\n%-12s %7s %12s %10s %10s\n", "PAIR", "TRADES", "TOTAL PNL", "WIN RATE", "SHARPE")
	for _, r := range results {
		fmt.Printf("%-12s %7d %12s %10s %10s\n",
			r.SymbolA+"/"+r.SymbolB, r.Summary.NumTrades,
			r.Summary.TotalPnLPct, r.Summary.WinRate, r.Summary.SharpeRatio)
	}
}

// resolvePairs collects the pairs to test from the --pair flag or a pairs file.
func resolvePairs(pair, pairsFile string) ([]config.Pair, error) {
	switch {
	case pair != "" && pairsFile != "":
		return nil, fmt.Errorf("--pair and --pairs-file are mutually exclusive")
	case pairsFile != "":
		pf, err := config.LoadPairs(pairsFile)
		if err != nil {
			return nil, err
		}
		return pf.Pairs, nil
	case pair != "":
		p, err := parsePair(pair)
		if err != nil {
			return nil, err
		}
		return []config.Pair{p}, nil
	default:
		return nil, fmt.Errorf("either --pair or --pairs-file is required")
	}
}

// parsePair splits an "AAA/BBB" flag value into its two symbols.
func parsePair(s string) (config.Pair, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return config.Pair{}, fmt.Errorf(`invalid pair %q, expected "AAA/BBB"`, s)
	}
	a := strings.ToUpper(strings.TrimSpace(parts[0]))
	b := strings.ToUpper(strings.TrimSpace(parts[1]))
	if a == "" || b == "" {
		return config.Pair{}, fmt.Errorf(`invalid pair %q, expected "AAA/BBB"`, s)
	}
	return config.Pair{SymbolA: a, SymbolB: b}, nil
}

// parseDateRange parses the optional --start and --end flags.
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if startStr != "" {
		start, err = model.ParseDate(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if endStr != "" {
		end, err = model.ParseDate(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end %s is before --start %s", endStr, startStr)
	}
	return start, end, nil
}

// runPair loads both stored series and runs the backtest on them.
func runPair(ctx context.Context, st *store.Store, symbolA, symbolB string, params backtest.Params) (*backtest.Result, error) {
	seriesA, err := st.Series(ctx, symbolA)
	if err != nil {
		return nil, err
	}
	if seriesA.Len() == 0 {
		return nil, fmt.Errorf("no stored bars for %s, run fetch first", symbolA)
	}
	seriesB, err := st.Series(ctx, symbolB)
	if err != nil {
		return nil, err
	}
	if seriesB.Len() == 0 {
		return nil, fmt.Errorf("no stored bars for %s, run fetch first", symbolB)
	}
	return backtest.Run(seriesA, seriesB, params)
}
