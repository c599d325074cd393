package main

import (
	"fmt"

	"github.com/mukundan1989/stockpairs/internal/config"
	"github.com/spf13/cobra"
)

func symbolsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List stored symbols with row counts and date ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.SymbolSummaries(ctx)
			if err != nil {
				return err
			}
			total, err := st.Count(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%-8s %8s %-12s %-12s\n", "SYMBOL", "ROWS", "FIRST", "LAST")
			for _, info := range infos {
				fmt.Printf("%-8s %8d %-12s %-12s\n", info.Symbol, info.Rows, info.FirstDate, info.LastDate)
			}
			fmt.Printf("\n%d symbols, %d bars stored\n", len(infos), total)
			return nil
		},
	}
}
