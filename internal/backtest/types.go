package backtest

import (
	"time"
)

// Position is the strategy state recorded for each date of the pair series.
type Position int

const (
	// Flat holds no exposure to the ratio.
	Flat Position = 0
	// LongRatio is entered when the z-score drops below the negative entry
	// threshold.
	LongRatio Position = 1
	// ShortRatio is entered when the z-score rises above the entry threshold.
	ShortRatio Position = -1
)

// Sign returns the direction multiplier of the position: +1 long, -1 short,
// 0 flat.
func (p Position) Sign() float64 {
	return float64(p)
}

// String implements fmt.Stringer
func (p Position) String() string {
	switch p {
	case LongRatio:
		return "long_ratio"
	case ShortRatio:
		return "short_ratio"
	default:
		return "flat"
	}
}

// MarshalJSON implements json.Marshaler
func (p Position) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// ClosePolicy controls what happens to a trade still open after the final
// date has been processed.
type ClosePolicy int

const (
	// DiscardOpen drops the open trade from the ledger. This is the default.
	DiscardOpen ClosePolicy = iota
	// CloseAtEnd force-closes the open trade at the last date that has a
	// defined z-score.
	CloseAtEnd
)

// Params holds the strategy parameters for a single pair backtest.
type Params struct {
	// Lookback is the trailing window length, in rows, for the rolling mean
	// and standard deviation. Must be at least 2.
	Lookback int `json:"lookback"`
	// EntryThreshold opens a position when |z| exceeds it. Must be positive.
	EntryThreshold float64 `json:"entry_threshold"`
	// ExitThreshold closes a position when z reverts inside it. Must be
	// positive.
	ExitThreshold float64 `json:"exit_threshold"`
	// Start and End bound the evaluated dates inclusively after the join.
	// A zero value leaves that side unbounded.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// ClosePolicy selects how a trade still open at the end is reported.
	ClosePolicy ClosePolicy `json:"close_policy"`
}

// validate rejects parameters before any data is touched.
func (p Params) validate() error {
	if p.Lookback < 2 {
		return &InvalidParameterError{Param: "lookback", Reason: "must be at least 2"}
	}
	if p.EntryThreshold <= 0 {
		return &InvalidParameterError{Param: "entry_threshold", Reason: "must be positive"}
	}
	if p.ExitThreshold <= 0 {
		return &InvalidParameterError{Param: "exit_threshold", Reason: "must be positive"}
	}
	return nil
}

// Trade is one round trip on the ratio. Exit fields are nil while the trade
// is still open.
type Trade struct {
	Type        Position   `json:"type"`
	EntryDate   time.Time  `json:"entry_date"`
	EntryZ      float64    `json:"entry_z"`
	ExitDate    *time.Time `json:"exit_date,omitempty"`
	ExitZ       *float64   `json:"exit_z,omitempty"`
	PnL         *float64   `json:"pnl,omitempty"`
	HoldingDays *int       `json:"holding_days,omitempty"`
}

// Completed reports whether the trade has been closed out.
func (t Trade) Completed() bool {
	return t.ExitDate != nil
}

// PairPoint is one date of the joined pair series with everything derived
// from it.
type PairPoint struct {
	Date          time.Time `json:"date"`
	CloseA        float64   `json:"close_a"`
	CloseB        float64   `json:"close_b"`
	Ratio         float64   `json:"ratio"`
	Z             *float64  `json:"z,omitempty"`
	Position      Position  `json:"position"`
	DailyPnL      float64   `json:"daily_pnl"`
	CumulativePnL float64   `json:"cumulative_pnl"`
}

// Result is the full output of a pair backtest: the per-date series, the
// ledger of completed trades and the aggregated summary.
type Result struct {
	SymbolA string      `json:"symbol_a"`
	SymbolB string      `json:"symbol_b"`
	Params  Params      `json:"params"`
	Points  []PairPoint `json:"points"`
	Trades  []Trade     `json:"trades"`
	Summary Summary     `json:"summary"`
}
