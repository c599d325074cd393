package backtest

import "fmt"

// Stage identifies the preprocessing step that left too few rows to run on.
type Stage string

const (
	// StageJoin is the inner join of the two price series on date.
	StageJoin Stage = "join"
	// StageFilter is the inclusive start/end date filter applied after the join.
	StageFilter Stage = "date-range filter"
	// StageWindow is the lookback-window requirement on the filtered rows.
	StageWindow Stage = "lookback window"
)

// InvalidParameterError reports a strategy parameter rejected before any
// computation starts.
type InvalidParameterError struct {
	Param  string
	Reason string
}

// Error implements the error interface
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// InsufficientDataError reports that aligning or filtering the pair produced
// too few usable rows. Rows is zero when the named stage emptied the data
// entirely; otherwise it carries how many rows survived against Lookback.
type InsufficientDataError struct {
	Stage    Stage
	Rows     int
	Lookback int
}

// Error implements the error interface
func (e *InsufficientDataError) Error() string {
	if e.Rows == 0 {
		return fmt.Sprintf("insufficient data: %s produced zero rows", e.Stage)
	}
	return fmt.Sprintf("insufficient data: %d rows after %s, need at least %d", e.Rows, e.Stage, e.Lookback)
}
