package backtest

import (
	"time"

	"github.com/mukundan1989/stockpairs/internal/model"
)

// Run executes a pair backtest: it inner-joins the two price series on date,
// computes the rolling z-score of the close-price ratio a/b, walks the
// entry/exit state machine over it and aggregates the completed trades.
// The input series are not modified and the same inputs always produce the
// same result.
func Run(a, b model.PriceSeries, params Params) (*Result, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	// Step 1: align the series and apply the date bounds
	rows := alignPair(a, b)
	if len(rows) == 0 {
		return nil, &InsufficientDataError{Stage: StageJoin}
	}
	rows = filterRange(rows, params.Start, params.End)
	if len(rows) == 0 {
		return nil, &InsufficientDataError{Stage: StageFilter}
	}
	if len(rows) < params.Lookback {
		return nil, &InsufficientDataError{Stage: StageWindow, Rows: len(rows), Lookback: params.Lookback}
	}

	// Step 2: ratio series and rolling z-score
	points := make([]PairPoint, len(rows))
	ratios := make([]float64, len(rows))
	for i, r := range rows {
		points[i] = PairPoint{Date: r.date, CloseA: r.closeA, CloseB: r.closeB, Ratio: r.ratio}
		ratios[i] = r.ratio
	}
	for i, z := range rollingZScores(ratios, params.Lookback) {
		points[i].Z = z
	}

	// Step 3: entry/exit state machine. Dates without a defined z-score keep
	// the current position. The position recorded for a date already includes
	// any transition made on it.
	var (
		trades   []Trade
		open     *Trade
		position = Flat
	)
	for i := range points {
		if z := points[i].Z; z != nil {
			switch {
			case position == Flat && *z > params.EntryThreshold:
				position = ShortRatio
				open = &Trade{Type: ShortRatio, EntryDate: points[i].Date, EntryZ: *z}
			case position == Flat && *z < -params.EntryThreshold:
				position = LongRatio
				open = &Trade{Type: LongRatio, EntryDate: points[i].Date, EntryZ: *z}
			case position == LongRatio && *z >= -params.ExitThreshold,
				position == ShortRatio && *z <= params.ExitThreshold:
				closeTrade(open, points[i].Date, *z)
				trades = append(trades, *open)
				open = nil
				position = Flat
			}
		}
		points[i].Position = position
	}

	// A trade still open after the last date is dropped from the ledger
	// unless the policy asks for a forced close at the last defined z-score.
	if open != nil && params.ClosePolicy == CloseAtEnd {
		if i := lastDefined(points); i >= 0 {
			closeTrade(open, points[i].Date, *points[i].Z)
			trades = append(trades, *open)
		}
	}

	// Step 4: daily mark-to-market in z units. The position held on a date is
	// paid the z-score change into the next date; edges without a defined
	// z-score contribute zero.
	var cum float64
	for i := range points {
		var dp float64
		if i+1 < len(points) && points[i].Z != nil && points[i+1].Z != nil {
			dp = points[i].Position.Sign() * (*points[i+1].Z - *points[i].Z)
		}
		cum += dp
		points[i].DailyPnL = dp
		points[i].CumulativePnL = cum
	}

	// Step 5: aggregate the ledger
	summary := summarize(trades)

	return &Result{
		SymbolA: a.Symbol,
		SymbolB: b.Symbol,
		Params:  params,
		Points:  points,
		Trades:  trades,
		Summary: summary,
	}, nil
}

// Helper functions

type pairRow struct {
	date   time.Time
	closeA float64
	closeB float64
	ratio  float64
}

// alignPair inner-joins two date-sorted series, keeping only dates present in
// both, and computes the close-price ratio a/b for each kept date.
func alignPair(a, b model.PriceSeries) []pairRow {
	rows := make([]pairRow, 0, min(len(a.Points), len(b.Points)))
	i, j := 0, 0
	for i < len(a.Points) && j < len(b.Points) {
		pa, pb := a.Points[i], b.Points[j]
		switch {
		case pa.Date.Equal(pb.Date):
			rows = append(rows, pairRow{
				date:   pa.Date,
				closeA: pa.Close,
				closeB: pb.Close,
				ratio:  pa.Close / pb.Close,
			})
			i++
			j++
		case pa.Date.Before(pb.Date):
			i++
		default:
			j++
		}
	}
	return rows
}

// filterRange keeps rows inside the inclusive [start, end] bounds. A zero
// bound leaves that side open.
func filterRange(rows []pairRow, start, end time.Time) []pairRow {
	filtered := make([]pairRow, 0, len(rows))
	for _, r := range rows {
		if !start.IsZero() && r.date.Before(start) {
			continue
		}
		if !end.IsZero() && r.date.After(end) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// closeTrade fills the exit fields of an open trade. PnL is measured in
// z units, signed by the trade direction, and the holding period is the
// calendar-day distance between entry and exit.
func closeTrade(t *Trade, exitDate time.Time, exitZ float64) {
	pnl := (t.EntryZ - exitZ) * t.Type.Sign()
	days := int(exitDate.Sub(t.EntryDate).Hours() / 24)
	t.ExitDate = &exitDate
	t.ExitZ = &exitZ
	t.PnL = &pnl
	t.HoldingDays = &days
}

// lastDefined returns the index of the last point with a defined z-score, or
// -1 when no point has one.
func lastDefined(points []PairPoint) int {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Z != nil {
			return i
		}
	}
	return -1
}
