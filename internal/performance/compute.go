// Package performance derives summary statistics from a realized
// daily-return series. All ratios are computed on the daily series
// directly; nothing is resampled.
package performance

import "math"

// TradingDaysPerYear is the annualization convention.
const TradingDaysPerYear = 252

// Stats holds the performance summary for one return series.
type Stats struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64 // annualized
	SharpeRatio      float64
	MaxDrawdown      float64 // in [-1, 0]; 0 iff capital never declines
	MeanDailyReturn  float64
	TradingDays      int
}

// Compute calculates all statistics for a chronological daily return
// series. rfAnnual is the annual risk-free rate; the daily rate is the
// simple rfAnnual/252 approximation.
func Compute(dailyReturns []float64, rfAnnual float64) Stats {
	n := len(dailyReturns)
	if n == 0 {
		return Stats{}
	}

	total := 1.0
	for _, r := range dailyReturns {
		total *= 1 + r
	}
	total -= 1

	annualized := math.Pow(1+total, TradingDaysPerYear/float64(n)) - 1

	mean := computeMean(dailyReturns)
	vol := computeStddev(dailyReturns, mean) * math.Sqrt(TradingDaysPerYear)

	rfDaily := rfAnnual / TradingDaysPerYear
	excess := make([]float64, n)
	for i, r := range dailyReturns {
		excess[i] = r - rfDaily
	}
	excessMean := computeMean(excess)
	excessStd := computeStddev(excess, excessMean)

	// Sharpe is defined as 0, not NaN, for a flat series.
	sharpe := 0.0
	if excessStd > 0 {
		sharpe = excessMean / excessStd * math.Sqrt(TradingDaysPerYear)
	}

	return Stats{
		TotalReturn:      total,
		AnnualizedReturn: annualized,
		Volatility:       vol,
		SharpeRatio:      sharpe,
		MaxDrawdown:      computeMaxDrawdown(dailyReturns),
		MeanDailyReturn:  mean,
		TradingDays:      n,
	}
}

// computeMaxDrawdown calculates the worst peak-to-trough decline of the
// compounded capital curve, as cum/running_max - 1. The result is in
// [-1, 0]; 0 means capital was non-decreasing throughout.
func computeMaxDrawdown(dailyReturns []float64) float64 {
	cumulative := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	for _, r := range dailyReturns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := cumulative/peak - 1
		if drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
