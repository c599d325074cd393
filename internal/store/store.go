package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mukundan1989/stockpairs/internal/model"
)

// Store persists daily bars keyed by symbol and date.
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// Options selects the database driver and target.
type Options struct {
	// Driver is "sqlite3" or "postgres". Defaults to the embedded sqlite3.
	Driver string
	// DSN is the driver connection string, for sqlite3 the database file
	// path.
	DSN string
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the parameters as a libpq connection string.
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// New opens the database, verifies the connection and creates the schema.
func New(opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = "sqlite3"
	}
	if opts.DSN == "" && opts.Driver == "sqlite3" {
		opts.DSN = "stockpairs.db"
	}

	db, err := sqlx.Connect(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Driver, err)
	}

	if opts.Driver == "sqlite3" {
		// A single connection keeps one in-memory database alive and avoids
		// write lock contention.
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:     db,
		logger: log.With().Str("component", "store").Logger(),
	}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug().Str("driver", opts.Driver).Msg("Store ready")
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the necessary tables if they don't exist
func (s *Store) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			date TEXT NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// ReplaceBars atomically swaps the stored history of a symbol for the given
// bars.
func (s *Store) ReplaceBars(ctx context.Context, symbol string, bars []model.Bar) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bars WHERE symbol = ?`), symbol); err != nil {
		return fmt.Errorf("clearing %s: %w", symbol, err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		day := b.Date.Format(model.DateLayout)
		if _, err := stmt.ExecContext(ctx, symbol, day, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("inserting bar %s %s: %w", symbol, day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", symbol, err)
	}

	s.logger.Debug().Str("symbol", symbol).Int("rows", len(bars)).Msg("Replaced stored bars")
	return nil
}

// Bars returns the stored history of a symbol, oldest first.
func (s *Store) Bars(ctx context.Context, symbol string) ([]model.Bar, error) {
	var rows []barRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT symbol, date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY date
	`), symbol)
	if err != nil {
		return nil, fmt.Errorf("selecting bars for %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		date, err := model.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("stored bar for %s: %w", symbol, err)
		}
		bars = append(bars, model.Bar{
			Date:   date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars, nil
}

// Series returns the closing-price series of a symbol, oldest first.
func (s *Store) Series(ctx context.Context, symbol string) (model.PriceSeries, error) {
	bars, err := s.Bars(ctx, symbol)
	if err != nil {
		return model.PriceSeries{}, err
	}
	return model.SeriesFromBars(symbol, bars)
}

// Symbols lists every symbol with stored bars.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := s.db.SelectContext(ctx, &symbols, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	return symbols, nil
}

// SymbolInfo is one row of the stored-symbol listing.
type SymbolInfo struct {
	Symbol    string `db:"symbol" json:"symbol"`
	Rows      int    `db:"row_count" json:"rows"`
	FirstDate string `db:"first_date" json:"first_date"`
	LastDate  string `db:"last_date" json:"last_date"`
}

// SymbolSummaries lists every stored symbol with its row count and date range.
func (s *Store) SymbolSummaries(ctx context.Context) ([]SymbolInfo, error) {
	var rows []SymbolInfo
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, COUNT(*) AS row_count, MIN(date) AS first_date, MAX(date) AS last_date
		FROM bars
		GROUP BY symbol
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("summarizing symbols: %w", err)
	}
	return rows, nil
}

// Count returns the total number of stored bars.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bars`); err != nil {
		return 0, fmt.Errorf("counting bars: %w", err)
	}
	return n, nil
}

// ColumnStats holds the min/max/avg aggregates of one stored column.
type ColumnStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// SymbolStats summarizes the stored history of one symbol.
type SymbolStats struct {
	Symbol    string      `json:"symbol"`
	Rows      int         `json:"rows"`
	FirstDate string      `json:"first_date"`
	LastDate  string      `json:"last_date"`
	Open      ColumnStats `json:"open"`
	High      ColumnStats `json:"high"`
	Low       ColumnStats `json:"low"`
	Close     ColumnStats `json:"close"`
	Volume    ColumnStats `json:"volume"`
}

// SummaryStats aggregates the stored history of a symbol. It returns nil
// when the symbol has no stored bars.
func (s *Store) SummaryStats(ctx context.Context, symbol string) (*SymbolStats, error) {
	var row statsRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT
			COUNT(*) AS row_count,
			COALESCE(MIN(date), '') AS first_date,
			COALESCE(MAX(date), '') AS last_date,
			COALESCE(MIN(open), 0) AS open_min,
			COALESCE(MAX(open), 0) AS open_max,
			COALESCE(AVG(open), 0) AS open_avg,
			COALESCE(MIN(high), 0) AS high_min,
			COALESCE(MAX(high), 0) AS high_max,
			COALESCE(AVG(high), 0) AS high_avg,
			COALESCE(MIN(low), 0) AS low_min,
			COALESCE(MAX(low), 0) AS low_max,
			COALESCE(AVG(low), 0) AS low_avg,
			COALESCE(MIN(close), 0) AS close_min,
			COALESCE(MAX(close), 0) AS close_max,
			COALESCE(AVG(close), 0) AS close_avg,
			COALESCE(MIN(volume), 0) AS volume_min,
			COALESCE(MAX(volume), 0) AS volume_max,
			COALESCE(AVG(volume), 0) AS volume_avg
		FROM bars
		WHERE symbol = ?
	`), symbol)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", symbol, err)
	}

	if row.RowCount == 0 {
		return nil, nil // No bars stored for the symbol
	}

	return &SymbolStats{
		Symbol:    symbol,
		Rows:      row.RowCount,
		FirstDate: row.FirstDate,
		LastDate:  row.LastDate,
		Open:      ColumnStats{Min: row.OpenMin, Max: row.OpenMax, Avg: row.OpenAvg},
		High:      ColumnStats{Min: row.HighMin, Max: row.HighMax, Avg: row.HighAvg},
		Low:       ColumnStats{Min: row.LowMin, Max: row.LowMax, Avg: row.LowAvg},
		Close:     ColumnStats{Min: row.CloseMin, Max: row.CloseMax, Avg: row.CloseAvg},
		Volume:    ColumnStats{Min: row.VolumeMin, Max: row.VolumeMax, Avg: row.VolumeAvg},
	}, nil
}

// Helper functions

type barRow struct {
	Symbol string  `db:"symbol"`
	Date   string  `db:"date"`
	Open   float64 `db:"open"`
	High   float64 `db:"high"`
	Low    float64 `db:"low"`
	Close  float64 `db:"close"`
	Volume int64   `db:"volume"`
}

type statsRow struct {
	RowCount  int     `db:"row_count"`
	FirstDate string  `db:"first_date"`
	LastDate  string  `db:"last_date"`
	OpenMin   float64 `db:"open_min"`
	OpenMax   float64 `db:"open_max"`
	OpenAvg   float64 `db:"open_avg"`
	HighMin   float64 `db:"high_min"`
	HighMax   float64 `db:"high_max"`
	HighAvg   float64 `db:"high_avg"`
	LowMin    float64 `db:"low_min"`
	LowMax    float64 `db:"low_max"`
	LowAvg    float64 `db:"low_avg"`
	CloseMin  float64 `db:"close_min"`
	CloseMax  float64 `db:"close_max"`
	CloseAvg  float64 `db:"close_avg"`
	VolumeMin float64 `db:"volume_min"`
	VolumeMax float64 `db:"volume_max"`
	VolumeAvg float64 `db:"volume_avg"`
}
