package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukundan1989/stockpairs/internal/model"
)

// zStep is the z-score a lookback-2 window always produces on a move: the
// current value sits exactly one half-step of the two-point sample standard
// deviation away from the window mean.
const zStep = math.Sqrt2 / 2

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRunStateMachine(t *testing.T) {
	// Ratio walks 100 101 102 101 100 101 102 103 against a constant
	// denominator, so every defined z is +-zStep and each direction change
	// is visible to the thresholds.
	a := genSeries(t, "AAA", testBase, []float64{100, 101, 102, 101, 100, 101, 102, 103})
	b := constSeries(t, "BBB", testBase, 1, 8)
	params := Params{Lookback: 2, EntryThreshold: 0.5, ExitThreshold: 0.5}

	res, err := Run(a, b, params)
	require.NoError(t, err)
	require.Len(t, res.Points, 8)

	// First row has no full window yet.
	assert.Nil(t, res.Points[0].Z)
	for i := 1; i < 8; i++ {
		require.NotNil(t, res.Points[i].Z, "row %d", i)
	}

	wantPositions := []Position{Flat, ShortRatio, ShortRatio, Flat, LongRatio, Flat, ShortRatio, ShortRatio}
	for i, want := range wantPositions {
		assert.Equal(t, want, res.Points[i].Position, "position on row %d", i)
	}

	// The trailing short never exits and is dropped from the ledger.
	require.Len(t, res.Trades, 2)

	short := res.Trades[0]
	assert.Equal(t, ShortRatio, short.Type)
	assert.Equal(t, day(1), short.EntryDate)
	require.True(t, short.Completed())
	assert.Equal(t, day(3), *short.ExitDate)
	assert.InDelta(t, zStep, short.EntryZ, 1e-12)
	assert.InDelta(t, -zStep, *short.ExitZ, 1e-12)
	assert.InDelta(t, -2*zStep, *short.PnL, 1e-12)
	assert.Equal(t, 2, *short.HoldingDays)

	long := res.Trades[1]
	assert.Equal(t, LongRatio, long.Type)
	assert.Equal(t, day(4), long.EntryDate)
	require.True(t, long.Completed())
	assert.Equal(t, day(5), *long.ExitDate)
	assert.InDelta(t, -2*zStep, *long.PnL, 1e-12)
	assert.Equal(t, 1, *long.HoldingDays)

	assert.Equal(t, 2, res.Summary.NumTrades)
	require.True(t, res.Summary.TotalPnLPct.Valid)
	assert.InDelta(t, -4*zStep*pnlToPct, res.Summary.TotalPnLPct.Value, 1e-9)
	require.True(t, res.Summary.WinRate.Valid)
	assert.Zero(t, res.Summary.WinRate.Value)
	// Both trades carry the same PnL, so the spread is zero.
	assert.False(t, res.Summary.SharpeRatio.Valid)
	require.True(t, res.Summary.AvgHoldingDays.Valid)
	assert.InDelta(t, 1.5, res.Summary.AvgHoldingDays.Value, 1e-12)
}

func TestRunDailyPnL(t *testing.T) {
	a := genSeries(t, "AAA", testBase, []float64{100, 101, 102, 101, 100, 101, 102, 103})
	b := constSeries(t, "BBB", testBase, 1, 8)

	res, err := Run(a, b, Params{Lookback: 2, EntryThreshold: 0.5, ExitThreshold: 0.5})
	require.NoError(t, err)

	// Each day is paid the next day's z change times the position held, with
	// undefined edges and the final date contributing zero.
	wantDaily := []float64{0, 0, 2 * zStep, 0, 2 * zStep, 0, 0, 0}
	var cum float64
	for i, want := range wantDaily {
		assert.InDelta(t, want, res.Points[i].DailyPnL, 1e-12, "daily pnl on row %d", i)
		cum += want
		assert.InDelta(t, cum, res.Points[i].CumulativePnL, 1e-12, "cumulative pnl on row %d", i)
	}
	assert.Zero(t, res.Points[len(res.Points)-1].DailyPnL)
}

func TestRunClosePolicy(t *testing.T) {
	a := genSeries(t, "AAA", testBase, []float64{100, 101, 102, 101, 100, 101, 102, 103})
	b := constSeries(t, "BBB", testBase, 1, 8)
	params := Params{Lookback: 2, EntryThreshold: 0.5, ExitThreshold: 0.5, ClosePolicy: CloseAtEnd}

	res, err := Run(a, b, params)
	require.NoError(t, err)

	// The trailing short is force-closed at the final defined z-score.
	require.Len(t, res.Trades, 3)
	forced := res.Trades[2]
	assert.Equal(t, ShortRatio, forced.Type)
	assert.Equal(t, day(6), forced.EntryDate)
	require.True(t, forced.Completed())
	assert.Equal(t, day(7), *forced.ExitDate)
	assert.InDelta(t, 0, *forced.PnL, 1e-12)
	assert.Equal(t, 1, *forced.HoldingDays)
	assert.Equal(t, 3, res.Summary.NumTrades)
}

func TestRunConstantRatio(t *testing.T) {
	// A constant ratio never produces a defined z-score, which is a valid
	// run with an empty ledger, not an error.
	a := constSeries(t, "AAA", testBase, 100, 10)
	b := constSeries(t, "BBB", testBase, 2, 10)

	res, err := Run(a, b, Params{Lookback: 3, EntryThreshold: 2, ExitThreshold: 1})
	require.NoError(t, err)
	require.Len(t, res.Points, 10)

	for i, p := range res.Points {
		assert.Nil(t, p.Z, "z on row %d", i)
		assert.Equal(t, Flat, p.Position, "position on row %d", i)
		assert.Zero(t, p.DailyPnL, "daily pnl on row %d", i)
		assert.Zero(t, p.CumulativePnL, "cumulative pnl on row %d", i)
		assert.InDelta(t, 50.0, p.Ratio, 1e-12)
	}

	assert.Empty(t, res.Trades)
	assert.Equal(t, 0, res.Summary.NumTrades)
	assert.False(t, res.Summary.TotalPnLPct.Valid)
	assert.False(t, res.Summary.WinRate.Valid)
	assert.False(t, res.Summary.SharpeRatio.Valid)
	assert.False(t, res.Summary.LongWinRate.Valid)
	assert.False(t, res.Summary.ShortWinRate.Valid)
	assert.False(t, res.Summary.AvgHoldingDays.Valid)
}

func TestRunTradeInvariants(t *testing.T) {
	// A zig-zag ratio with three-day legs keeps the state machine busy for
	// sixty days.
	closes := make([]float64, 60)
	level := 100.0
	for i := range closes {
		closes[i] = level
		if (i/3)%2 == 0 {
			level++
		} else {
			level--
		}
	}
	a := genSeries(t, "AAA", testBase, closes)
	b := constSeries(t, "BBB", testBase, 1, 60)

	res, err := Run(a, b, Params{Lookback: 2, EntryThreshold: 0.5, ExitThreshold: 0.5})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Trades), 2)

	for i, tr := range res.Trades {
		require.True(t, tr.Completed(), "trade %d", i)
		assert.True(t, tr.EntryDate.Before(*tr.ExitDate), "trade %d entry must precede exit", i)
		wantPnL := (tr.EntryZ - *tr.ExitZ) * tr.Type.Sign()
		assert.InDelta(t, wantPnL, *tr.PnL, 1e-12, "trade %d pnl", i)
		wantDays := int(tr.ExitDate.Sub(tr.EntryDate).Hours() / 24)
		assert.Equal(t, wantDays, *tr.HoldingDays, "trade %d holding days", i)
		if i > 0 {
			assert.True(t, tr.EntryDate.After(*res.Trades[i-1].ExitDate), "trade %d overlaps previous", i)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 7*math.Sin(float64(i)/3) + float64(i%5)
	}
	a := genSeries(t, "AAA", testBase, closes)
	b := genSeries(t, "BBB", testBase.AddDate(0, 0, -2), rampCloses(44, 50))

	params := Params{Lookback: 5, EntryThreshold: 1.0, ExitThreshold: 0.5}
	first, err := Run(a, b, params)
	require.NoError(t, err)
	second, err := Run(a, b, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunDateFilter(t *testing.T) {
	a := genSeries(t, "AAA", testBase, rampCloses(30, 100))
	b := constSeries(t, "BBB", testBase, 1, 30)
	params := Params{
		Lookback:       5,
		EntryThreshold: 1.0,
		ExitThreshold:  0.5,
		Start:          day(10),
		End:            day(19),
	}

	res, err := Run(a, b, params)
	require.NoError(t, err)
	require.Len(t, res.Points, 10)
	assert.Equal(t, day(10), res.Points[0].Date)
	assert.Equal(t, day(19), res.Points[len(res.Points)-1].Date)
}

func TestRunAlignsOnSharedDates(t *testing.T) {
	// Series A skips day 2, series B skips day 1. Only the four shared dates
	// survive the join.
	aPoints := []model.PricePoint{
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 110},
		{Date: day(3), Close: 120},
		{Date: day(4), Close: 130},
		{Date: day(5), Close: 140},
	}
	bPoints := []model.PricePoint{
		{Date: day(0), Close: 50},
		{Date: day(2), Close: 55},
		{Date: day(3), Close: 60},
		{Date: day(4), Close: 65},
		{Date: day(5), Close: 70},
	}
	a, err := model.NewPriceSeries("AAA", aPoints)
	require.NoError(t, err)
	b, err := model.NewPriceSeries("BBB", bPoints)
	require.NoError(t, err)

	res, err := Run(a, b, Params{Lookback: 2, EntryThreshold: 2, ExitThreshold: 1})
	require.NoError(t, err)
	require.Len(t, res.Points, 4)
	assert.Equal(t, []time.Time{day(0), day(3), day(4), day(5)}, pointDates(res.Points))
	assert.InDelta(t, 2.0, res.Points[0].Ratio, 1e-12)
	assert.InDelta(t, 2.0, res.Points[1].Ratio, 1e-12)
}

func TestRunParameterValidation(t *testing.T) {
	a := genSeries(t, "AAA", testBase, rampCloses(10, 100))
	b := constSeries(t, "BBB", testBase, 1, 10)

	tests := []struct {
		name   string
		params Params
		param  string
	}{
		{
			name:   "lookback below two",
			params: Params{Lookback: 1, EntryThreshold: 2, ExitThreshold: 1},
			param:  "lookback",
		},
		{
			name:   "zero entry threshold",
			params: Params{Lookback: 5, EntryThreshold: 0, ExitThreshold: 1},
			param:  "entry_threshold",
		},
		{
			name:   "negative exit threshold",
			params: Params{Lookback: 5, EntryThreshold: 2, ExitThreshold: -1},
			param:  "exit_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(a, b, tt.params)
			assert.Nil(t, res)
			var perr *InvalidParameterError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.param, perr.Param)
		})
	}
}

func TestRunInsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		a      model.PriceSeries
		b      model.PriceSeries
		params Params
		stage  Stage
		rows   int
	}{
		{
			name:   "no shared dates",
			a:      genSeries(t, "AAA", testBase, rampCloses(10, 100)),
			b:      genSeries(t, "BBB", testBase.AddDate(0, 1, 0), rampCloses(10, 50)),
			params: Params{Lookback: 5, EntryThreshold: 2, ExitThreshold: 1},
			stage:  StageJoin,
		},
		{
			name: "range excludes all rows",
			a:    genSeries(t, "AAA", testBase, rampCloses(10, 100)),
			b:    constSeries(t, "BBB", testBase, 1, 10),
			params: Params{
				Lookback:       5,
				EntryThreshold: 2,
				ExitThreshold:  1,
				Start:          testBase.AddDate(1, 0, 0),
			},
			stage: StageFilter,
		},
		{
			name:   "fewer rows than lookback",
			a:      genSeries(t, "AAA", testBase, rampCloses(10, 100)),
			b:      constSeries(t, "BBB", testBase, 1, 10),
			params: Params{Lookback: 30, EntryThreshold: 2, ExitThreshold: 1},
			stage:  StageWindow,
			rows:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(tt.a, tt.b, tt.params)
			assert.Nil(t, res)
			var derr *InsufficientDataError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.stage, derr.Stage)
			assert.Equal(t, tt.rows, derr.Rows)
		})
	}
}

func TestRunDoesNotModifyInputs(t *testing.T) {
	closes := rampCloses(20, 100)
	a := genSeries(t, "AAA", testBase, closes)
	b := constSeries(t, "BBB", testBase, 2, 20)
	aCopy := clonePoints(a.Points)
	bCopy := clonePoints(b.Points)

	_, err := Run(a, b, Params{Lookback: 5, EntryThreshold: 1, ExitThreshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, aCopy, a.Points)
	assert.Equal(t, bCopy, b.Points)
}

func TestInsufficientDataErrorMessage(t *testing.T) {
	err := &InsufficientDataError{Stage: StageJoin}
	assert.Equal(t, "insufficient data: join produced zero rows", err.Error())

	err = &InsufficientDataError{Stage: StageWindow, Rows: 10, Lookback: 30}
	assert.Equal(t, "insufficient data: 10 rows after lookback window, need at least 30", err.Error())

	perr := &InvalidParameterError{Param: "lookback", Reason: "must be at least 2"}
	assert.Equal(t, "invalid parameter lookback: must be at least 2", perr.Error())
	assert.False(t, errors.As(perr, new(*InsufficientDataError)))
}

// Helper functions

func day(i int) time.Time {
	return testBase.AddDate(0, 0, i)
}

// genSeries builds a daily series starting at start with the given closes.
func genSeries(t *testing.T, symbol string, start time.Time, closes []float64) model.PriceSeries {
	t.Helper()
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	s, err := model.NewPriceSeries(symbol, points)
	require.NoError(t, err)
	return s
}

// constSeries builds a daily series of n identical closes.
func constSeries(t *testing.T, symbol string, start time.Time, close float64, n int) model.PriceSeries {
	t.Helper()
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = close
	}
	return genSeries(t, symbol, start, closes)
}

// rampCloses returns n closes rising by one from base.
func rampCloses(n int, base float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + float64(i)
	}
	return closes
}

func pointDates(points []PairPoint) []time.Time {
	dates := make([]time.Time, len(points))
	for i, p := range points {
		dates[i] = p.Date
	}
	return dates
}

func clonePoints(points []model.PricePoint) []model.PricePoint {
	out := make([]model.PricePoint, len(points))
	copy(out, points)
	return out
}
