package main

import (
	"fmt"

	"github.com/mukundan1989/stockpairs/internal/config"
	"github.com/mukundan1989/stockpairs/internal/export"
	"github.com/spf13/cobra"
)

func exportCmd(cfg *config.Config) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export [symbols...]",
		Short: "Write stored bars to per-symbol CSV files",
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

			exporter := export.NewExporter(dir)
			for _, symbol := range symbols {
				bars, err := st.Bars(ctx, symbol)
				if err != nil {
					return err
				}
				if len(bars) == 0 {
					fmt.Printf("%s: no stored bars\n", symbol)
					continue
				}
				path, err := exporter.BarsFile(symbol, bars)
				if err != nil {
					return err
				}
				fmt.Println(path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", cfg.ExportDir, "directory for CSV output")
	return cmd
}
