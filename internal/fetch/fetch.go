package fetch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mukundan1989/stockpairs/internal/model"
)

// BarProvider fetches the daily history of one symbol.
type BarProvider interface {
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
}

// BarStore persists fetched bars.
type BarStore interface {
	ReplaceBars(ctx context.Context, symbol string, bars []model.Bar) error
}

// Download statuses reported per symbol.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Outcome reports how one symbol download went.
type Outcome struct {
	Symbol    string `json:"symbol"`
	Status    string `json:"status"`
	Records   int    `json:"records,omitempty"`
	FirstDate string `json:"first_date,omitempty"`
	LastDate  string `json:"last_date,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Service downloads and stores the history of a symbol universe.
type Service struct {
	provider BarProvider
	store    BarStore
	logger   zerolog.Logger
}

// New creates a fetch service.
func New(provider BarProvider, store BarStore) *Service {
	return &Service{
		provider: provider,
		store:    store,
		logger:   log.With().Str("component", "fetch").Logger(),
	}
}

// Run downloads the [start, end] daily history of every symbol and replaces
// the stored rows of each one that succeeds. A failing symbol is reported in
// its outcome and does not stop the loop; only context cancellation does.
func (s *Service) Run(ctx context.Context, symbols []string, start, end time.Time) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(symbols))
	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		s.logger.Info().
			Str("symbol", symbol).
			Int("current", i+1).
			Int("total", len(symbols)).
			Msg("Downloading symbol")

		outcomes = append(outcomes, s.fetchOne(ctx, symbol, start, end))
	}
	return outcomes, nil
}

// Summarize counts successful and failed outcomes.
func Summarize(outcomes []Outcome) (int, int) {
	var succeeded, failed int
	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// fetchOne downloads and stores a single symbol.
func (s *Service) fetchOne(ctx context.Context, symbol string, start, end time.Time) Outcome {
	bars, err := s.provider.DailyBars(ctx, symbol, start, end)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Download failed")
		return Outcome{Symbol: symbol, Status: StatusFailed, Message: err.Error()}
	}
	if len(bars) == 0 {
		return Outcome{Symbol: symbol, Status: StatusFailed, Message: "no data"}
	}

	if err := s.store.ReplaceBars(ctx, symbol, bars); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Storing bars failed")
		return Outcome{Symbol: symbol, Status: StatusFailed, Message: err.Error()}
	}

	return Outcome{
		Symbol:    symbol,
		Status:    StatusSuccess,
		Records:   len(bars),
		FirstDate: bars[0].Date.Format(model.DateLayout),
		LastDate:  bars[len(bars)-1].Date.Format(model.DateLayout),
	}
}
