package domain

// Book identifies which return series of a cross-sectional run a summary
// describes.
type Book string

// Book constants.
const (
	BookLong      Book = "long"
	BookShort     Book = "short"
	BookLongShort Book = "long_short"
)

// BacktestSummary is the per-run, per-book performance record. One row per
// (run_id, book); append-only.
type BacktestSummary struct {
	RunID     string
	Book      Book
	Frequency RebalanceFrequency
	Scheme    WeightScheme

	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64 // annualized
	SharpeRatio      float64
	MaxDrawdown      float64 // in [-1, 0]
	MeanDailyReturn  float64
	TradingDays      int
	AvgTurnover      float64 // mean per-rebalance turnover across sides
}
