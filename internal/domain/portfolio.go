package domain

// Side is the book side a portfolio member sits on.
type Side string

// Side constants.
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// WeightScheme selects how bucket membership is converted into weights.
// It is a closed variant: construction goes through ParseWeightScheme so a
// bad scheme name is rejected once, not string-compared throughout the run.
type WeightScheme int

// Weight scheme variants.
const (
	WeightEqual WeightScheme = iota // 1/n within each (rebalance, side) group
	WeightValue                     // proportional to lagged market cap
)

// String returns the scheme name used in configs and reports.
func (w WeightScheme) String() string {
	switch w {
	case WeightEqual:
		return "equal"
	case WeightValue:
		return "value"
	default:
		return "unknown"
	}
}

// RebalanceFrequency selects how signal days are grouped into rebalance
// periods.
type RebalanceFrequency string

// Rebalance frequency constants.
const (
	RebalanceMonthly RebalanceFrequency = "monthly"
	RebalanceWeekly  RebalanceFrequency = "weekly"
)

// BucketMember is one entity's membership in a rebalance-date bucket.
// For a fixed (rebalance_date, side) the weights sum to 1.0 within
// floating-point tolerance, or the side is entirely absent.
type BucketMember struct {
	RebalanceDayMs int64
	EntityID       string
	Side           Side
	SignalScore    float64 // aggregated signal the ranking was based on
	MarketCapLag   float64 // lagged market cap used for value weighting
	Weight         float64
}

// AggregatedSignal is the per-period signal input to portfolio formation:
// the mean fused signal over the period plus the last observed lagged
// market cap inside it.
type AggregatedSignal struct {
	EntityID       string
	RebalanceDayMs int64
	SignalScore    float64
	MarketCapLag   float64
}
