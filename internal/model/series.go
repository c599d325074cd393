package model

import (
	"fmt"
	"time"
)

// PricePoint is one (date, close) observation of a symbol.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is the ordered daily closing-price history of one symbol.
// Dates are strictly increasing with no duplicates; the series is owned by
// the caller and only ever read by consumers.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// NewPriceSeries builds a PriceSeries and validates its date ordering.
func NewPriceSeries(symbol string, points []PricePoint) (PriceSeries, error) {
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Date, points[i].Date
		if !cur.After(prev) {
			return PriceSeries{}, fmt.Errorf("series %s: date %s at index %d does not increase over %s",
				symbol, cur.Format(DateLayout), i, prev.Format(DateLayout))
		}
	}
	return PriceSeries{Symbol: symbol, Points: points}, nil
}

// SeriesFromBars extracts the closing prices of ordered daily bars.
func SeriesFromBars(symbol string, bars []Bar) (PriceSeries, error) {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, PricePoint{Date: Day(b.Date), Close: b.Close})
	}
	return NewPriceSeries(symbol, points)
}

// Len returns the number of observations in the series.
func (s PriceSeries) Len() int { return len(s.Points) }
