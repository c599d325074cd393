package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukundan1989/stockpairs/internal/model"
)

var fetchBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeProvider struct {
	bars  map[string][]model.Bar
	errs  map[string]error
	calls []string
}

func (f *fakeProvider) DailyBars(_ context.Context, symbol string, _, _ time.Time) ([]model.Bar, error) {
	f.calls = append(f.calls, symbol)
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.bars[symbol], nil
}

type fakeStore struct {
	saved  map[string][]model.Bar
	failOn string
}

func (f *fakeStore) ReplaceBars(_ context.Context, symbol string, bars []model.Bar) error {
	if symbol == f.failOn {
		return errors.New("disk full")
	}
	if f.saved == nil {
		f.saved = make(map[string][]model.Bar)
	}
	f.saved[symbol] = bars
	return nil
}

func TestRunReportsPerSymbolOutcomes(t *testing.T) {
	provider := &fakeProvider{
		bars: map[string][]model.Bar{
			"AAPL": fetchTestBars(3),
			"GOOG": {},
		},
		errs: map[string]error{
			"MSFT": errors.New("HTTP request failed"),
		},
	}
	store := &fakeStore{}
	svc := New(provider, store)

	outcomes, err := svc.Run(context.Background(), []string{"AAPL", "MSFT", "GOOG"}, fetchBase, fetchBase.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, provider.calls)

	assert.Equal(t, Outcome{
		Symbol:    "AAPL",
		Status:    StatusSuccess,
		Records:   3,
		FirstDate: "2024-01-01",
		LastDate:  "2024-01-03",
	}, outcomes[0])

	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Message, "HTTP request failed")

	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Equal(t, "no data", outcomes[2].Message)

	// Only the successful symbol reaches the store.
	require.Len(t, store.saved, 1)
	assert.Equal(t, provider.bars["AAPL"], store.saved["AAPL"])
}

func TestRunReportsStoreFailures(t *testing.T) {
	provider := &fakeProvider{bars: map[string][]model.Bar{"AAPL": fetchTestBars(2)}}
	store := &fakeStore{failOn: "AAPL"}
	svc := New(provider, store)

	outcomes, err := svc.Run(context.Background(), []string{"AAPL"}, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Message, "disk full")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	provider := &fakeProvider{bars: map[string][]model.Bar{"AAPL": fetchTestBars(2)}}
	svc := New(provider, &fakeStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := svc.Run(ctx, []string{"AAPL", "MSFT"}, time.Time{}, time.Time{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
	assert.Empty(t, provider.calls)
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Symbol: "AAPL", Status: StatusSuccess},
		{Symbol: "MSFT", Status: StatusFailed},
		{Symbol: "GOOG", Status: StatusSuccess},
	}
	succeeded, failed := Summarize(outcomes)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)

	succeeded, failed = Summarize(nil)
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
}

// fetchTestBars builds n consecutive daily bars.
func fetchTestBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Date:   fetchBase.AddDate(0, 0, i),
			Open:   100 + float64(i),
			High:   101 + float64(i),
			Low:    99 + float64(i),
			Close:  100.5 + float64(i),
			Volume: int64(1000 + i),
		}
	}
	return bars
}
