package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mukundan1989/stockpairs/internal/backtest"
	"github.com/mukundan1989/stockpairs/internal/model"
)

// WriteBars writes the daily bars of one symbol as CSV.
func WriteBars(w io.Writer, symbol string, bars []model.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"symbol", "date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			symbol,
			b.Date.Format(model.DateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairSeries writes the per-date pair series of a backtest as CSV. The
// z-score cell is empty on dates where it is undefined.
func WritePairSeries(w io.Writer, res *backtest.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"date", "close_a", "close_b", "ratio", "zscore", "position", "daily_pnl", "cumulative_pnl"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range res.Points {
		z := ""
		if p.Z != nil {
			z = formatFloat(*p.Z)
		}
		record := []string{
			p.Date.Format(model.DateLayout),
			formatFloat(p.CloseA),
			formatFloat(p.CloseB),
			formatFloat(p.Ratio),
			z,
			p.Position.String(),
			formatFloat(p.DailyPnL),
			formatFloat(p.CumulativePnL),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrades writes the trade ledger of a backtest as CSV. Exit cells are
// empty for a trade that was never closed.
func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	header := []string{"type", "entry_date", "entry_z", "exit_date", "exit_z", "pnl", "holding_days"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			t.Type.String(),
			t.EntryDate.Format(model.DateLayout),
			formatFloat(t.EntryZ),
			"", "", "", "",
		}
		if t.Completed() {
			record[3] = t.ExitDate.Format(model.DateLayout)
			record[4] = formatFloat(*t.ExitZ)
			record[5] = formatFloat(*t.PnL)
			record[6] = strconv.Itoa(*t.HoldingDays)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes run artifacts into a directory. Files produced by one run
// share its unique id.
type Exporter struct {
	dir    string
	runID  string
	logger zerolog.Logger
}

// NewExporter creates an exporter rooted at dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir:    dir,
		runID:  uuid.New().String(),
		logger: log.With().Str("component", "export").Logger(),
	}
}

// RunID returns the unique id shared by this run's artifacts.
func (e *Exporter) RunID() string {
	return e.runID
}

// BarsFile writes <symbol>_stock_data.csv and returns its path.
func (e *Exporter) BarsFile(symbol string, bars []model.Bar) (string, error) {
	name := fmt.Sprintf("%s_stock_data.csv", symbol)
	return e.writeFile(name, func(w io.Writer) error {
		return WriteBars(w, symbol, bars)
	})
}

// SeriesFile writes the per-date series of a backtest and returns its path.
func (e *Exporter) SeriesFile(res *backtest.Result) (string, error) {
	name := fmt.Sprintf("%s_%s_%s_series.csv", res.SymbolA, res.SymbolB, e.runID)
	return e.writeFile(name, func(w io.Writer) error {
		return WritePairSeries(w, res)
	})
}

// TradesFile writes the trade ledger of a backtest and returns its path.
func (e *Exporter) TradesFile(res *backtest.Result) (string, error) {
	name := fmt.Sprintf("%s_%s_%s_trades.csv", res.SymbolA, res.SymbolB, e.runID)
	return e.writeFile(name, func(w io.Writer) error {
		return WriteTrades(w, res.Trades)
	})
}

// Helper functions

func (e *Exporter) writeFile(name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}

	e.logger.Info().Str("path", path).Msg("Wrote export file")
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
