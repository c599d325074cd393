package main

import (
	"fmt"
	"time"

	"github.com/mukundan1989/stockpairs/internal/config"
	"github.com/mukundan1989/stockpairs/internal/fetch"
	"github.com/mukundan1989/stockpairs/internal/universe"
	"github.com/spf13/cobra"
)

func fetchCmd(cfg *config.Config) *cobra.Command {
	var (
		universeFile string
		days         int
	)
	cmd := &cobra.Command{
		Use:   "fetch [symbols...]",
		Short: "Fetch daily bars for the symbol universe and store them",
		Long: "Fetch downloads daily OHLCV bars for each requested symbol and replaces " +
			"that symbol's stored history. Symbols come from the arguments, or from the " +
			"universe CSV file when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			symbols := normalizeSymbols(args)
			if len(symbols) == 0 {
				var err error
				symbols, err = universe.Load(universeFile)
				if err != nil {
					return err
				}
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			end := time.Now().UTC().Truncate(24 * time.Hour)
			start := end.AddDate(0, 0, -days)

			svc := fetch.New(newTwelveDataClient(cfg), st)
			outcomes, err := svc.Run(ctx, symbols, start, end)
			if err != nil {
				return err
			}

			printOutcomes(outcomes)

			succeeded, failed := fetch.Summarize(outcomes)
			fmt.Printf("\n%d symbols fetched, %d failed\n", succeeded, failed)

			newNotifier(cfg).Sendf("Fetch complete: %d symbols stored, %d failed", succeeded, failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&universeFile, "universe", cfg.UniverseFile, "CSV file with a Symbol column")
	cmd.Flags().IntVar(&days, "days", cfg.HistoryDays, "calendar days of history to request")
	return cmd
}

// printOutcomes renders the per-symbol fetch results as a fixed-width table.
func printOutcomes(outcomes []fetch.Outcome) {
	fmt.Printf("%-8s %-8s %8s %-12s %-12s %s\n", "SYMBOL", "STATUS", "RECORDS", "FIRST", "LAST", "MESSAGE")
	for _, o := range outcomes {
		fmt.Printf("%-8s %-8s %8d %-12s %-12s %s\n",
			o.Symbol, o.Status, o.Records, o.FirstDate, o.LastDate, o.Message)
	}
}
