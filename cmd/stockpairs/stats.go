package main

import (
	"fmt"

	"github.com/mukundan1989/stockpairs/internal/config"
	"github.com/mukundan1989/stockpairs/internal/store"
	"github.com/spf13/cobra"
)

func statsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [symbols...]",
		Short: "Print min/max/average statistics for stored symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			symbols := normalizeSymbols(args)
			if len(symbols) == 0 {
				symbols, err = st.Symbols(ctx)
				if err != nil {
					return err
				}
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no stored symbols, run fetch first")
			}

			for _, symbol := range symbols {
				stats, err := st.SummaryStats(ctx, symbol)
				if err != nil {
					return err
				}
				if stats == nil {
					fmt.Printf("%s: no stored bars\n", symbol)
					continue
				}
				printStats(stats)
			}
			return nil
		},
	}
}

// printStats renders one symbol's column statistics.
func printStats(s *store.SymbolStats) {
	fmt.Printf("\n%s  %d rows  %s .. %s\n", s.Symbol, s.Rows, s.FirstDate, s.LastDate)
	fmt.Printf("%-8s %16s %16s %16s\n", "COLUMN", "MIN", "MAX", "AVG")
	printStatsRow("open", s.Open)
	printStatsRow("high", s.High)
	printStatsRow("low", s.Low)
	printStatsRow("close", s.Close)
	printStatsRow("volume", s.Volume)
}

func printStatsRow(name string, c store.ColumnStats) {
	fmt.Printf("%-8s %16.2f %16.2f %16.2f\n", name, c.Min, c.Max, c.Avg)
}
