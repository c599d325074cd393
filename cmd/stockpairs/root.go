package main

import (
	"context"
	"strings"
	"time"

	"github.com/mukundan1989/stockpairs/internal/api/twelvedata"
	"github.com/mukundan1989/stockpairs/internal/config"
	"github.com/mukundan1989/stockpairs/internal/notify"
	"github.com/mukundan1989/stockpairs/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs the requested subcommand.
func Execute(ctx context.Context, cfg *config.Config) error {
	var logLevel string

	root := &cobra.Command{
		Use:   "stockpairs",
		Short: "Fetch daily stock bars and backtest pairs trading strategies",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				setupLogging(logLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(fetchCmd(cfg))
	root.AddCommand(backtestCmd(cfg))
	root.AddCommand(statsCmd(cfg))
	root.AddCommand(symbolsCmd(cfg))
	root.AddCommand(exportCmd(cfg))

	return root.ExecuteContext(ctx)
}

// Helper functions shared by the subcommands

// openStore connects to the configured bar database.
func openStore(cfg *config.Config) (*store.Store, error) {
	opts := store.Options{Driver: cfg.DBDriver, DSN: cfg.DBPath}
	if cfg.DBDriver == "postgres" {
		params := store.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}
		opts.DSN = params.DSN()
	}
	return store.New(opts)
}

// newTwelveDataClient wires the market data client from configuration.
func newTwelveDataClient(cfg *config.Config) *twelvedata.Client {
	return twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		BaseURL:        cfg.TwelveBaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     cfg.MaxRetries,
	})
}

// newNotifier builds the Telegram notifier, or nil when not configured.
// The returned value is safe to call either way.
func newNotifier(cfg *config.Config) *notify.Telegram {
	if cfg.TelegramBotToken == "" {
		return nil
	}
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("Telegram notifications disabled")
		return nil
	}
	return tg
}

// normalizeSymbols uppercases and trims symbol arguments.
func normalizeSymbols(args []string) []string {
	symbols := make([]string, 0, len(args))
	for _, arg := range args {
		s := strings.ToUpper(strings.TrimSpace(arg))
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
