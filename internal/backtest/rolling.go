package backtest

import "math"

// rollingZScores computes the z-score of each value against the mean and
// sample standard deviation of the trailing lookback window ending at that
// value. The first lookback-1 entries are nil because the window is not yet
// full, and entries whose window has zero variance are nil as well.
func rollingZScores(values []float64, lookback int) []*float64 {
	zs := make([]*float64, len(values))
	for i := lookback - 1; i < len(values); i++ {
		window := values[i-lookback+1 : i+1]
		m := mean(window)
		sd := sampleStdDev(window, m)
		if sd == 0 {
			continue
		}
		z := (values[i] - m) / sd
		zs[i] = &z
	}
	return zs
}

// mean returns the arithmetic mean of values.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev returns the sample standard deviation (n-1 denominator) of
// values around m. It returns 0 for windows shorter than two values.
func sampleStdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
