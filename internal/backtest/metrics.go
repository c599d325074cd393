package backtest

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mukundan1989/stockpairs/internal/model"
)

// tradingDaysPerYear annualizes the Sharpe ratio.
const tradingDaysPerYear = 252

// pnlToPct converts z-unit trade PnL into the percentage figure reported by
// the summary.
const pnlToPct = 10

// Metric is a summary statistic that may be not applicable, such as a win
// rate over an empty ledger. Invalid metrics render as "n/a" and marshal as
// JSON null.
type Metric struct {
	Value float64
	Valid bool
}

func metric(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// String implements fmt.Stringer
func (m Metric) String() string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", m.Value)
}

// MarshalJSON implements json.Marshaler
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// Summary aggregates the completed trades of a single pair backtest.
type Summary struct {
	NumTrades      int    `json:"num_trades"`
	TotalPnLPct    Metric `json:"total_pnl_pct"`
	WinRate        Metric `json:"win_rate"`
	SharpeRatio    Metric `json:"sharpe_ratio"`
	LongWinRate    Metric `json:"long_win_rate"`
	ShortWinRate   Metric `json:"short_win_rate"`
	AvgHoldingDays Metric `json:"avg_holding_days"`
}

// summarize computes summary metrics over completed trades. An empty ledger
// is a valid outcome where every metric is not applicable. The Sharpe ratio
// needs at least two trades and a non-zero PnL spread; the per-direction win
// rates need at least one trade of that direction.
func summarize(trades []Trade) Summary {
	s := Summary{NumTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	var (
		total     float64
		wins      int
		longs     int
		longWins  int
		shorts    int
		shortWins int
		holding   int
	)
	pnlPcts := make([]float64, len(trades))
	for i, t := range trades {
		pct := *t.PnL * pnlToPct
		pnlPcts[i] = pct
		total += pct
		win := *t.PnL > 0
		if win {
			wins++
		}
		switch t.Type {
		case LongRatio:
			longs++
			if win {
				longWins++
			}
		case ShortRatio:
			shorts++
			if win {
				shortWins++
			}
		}
		holding += *t.HoldingDays
	}

	n := float64(len(trades))
	s.TotalPnLPct = metric(total)
	s.WinRate = metric(float64(wins) / n)
	s.AvgHoldingDays = metric(float64(holding) / n)
	if longs > 0 {
		s.LongWinRate = metric(float64(longWins) / float64(longs))
	}
	if shorts > 0 {
		s.ShortWinRate = metric(float64(shortWins) / float64(shorts))
	}
	if len(trades) >= 2 {
		m := mean(pnlPcts)
		if sd := sampleStdDev(pnlPcts, m); sd > 0 {
			s.SharpeRatio = metric(m / sd * math.Sqrt(tradingDaysPerYear))
		}
	}
	return s
}

// FormatSummary renders a human-readable results block for a completed run.
func FormatSummary(r *Result) string {
	s := r.Summary
	first := r.Points[0].Date.Format(model.DateLayout)
	last := r.Points[len(r.Points)-1].Date.Format(model.DateLayout)

	out := "\n===== PAIR BACKTEST RESULTS =====\n"
	out += fmt.Sprintf("Pair:              %s/%s\n", r.SymbolA, r.SymbolB)
	out += fmt.Sprintf("Dates:             %s .. %s (%d rows)\n", first, last, len(r.Points))
	out += fmt.Sprintf("Completed trades:  %d\n", s.NumTrades)
	out += fmt.Sprintf("Total PnL:         %s\n", percentValue(s.TotalPnLPct))
	out += fmt.Sprintf("Win rate:          %s\n", percentFraction(s.WinRate))
	out += fmt.Sprintf("Long win rate:     %s\n", percentFraction(s.LongWinRate))
	out += fmt.Sprintf("Short win rate:    %s\n", percentFraction(s.ShortWinRate))
	out += fmt.Sprintf("Sharpe ratio:      %s\n", s.SharpeRatio)
	out += fmt.Sprintf("Avg holding days:  %s\n", daysValue(s.AvgHoldingDays))
	out += "=================================\n"
	return out
}

// Helper functions

// percentValue renders a metric whose value is already in percent units.
func percentValue(m Metric) string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", m.Value)
}

// percentFraction renders a metric holding a 0..1 fraction as a percentage.
func percentFraction(m Metric) string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", m.Value*100)
}

// daysValue renders an average day count with one decimal.
func daysValue(m Metric) string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", m.Value)
}
