package domain

// FusionConfig holds the decay-fusion parameters.
type FusionConfig struct {
	HalfLifeSeconds float64 // time-decay half-life in seconds
	Beta            float64 // gain applied before tanh saturation
	Epsilon         float64 // divide-by-zero guard in the agreement ratio
}

// Fusion defaults. Intraday fusion decays against seconds-to-close with a
// four-hour half-life; monthly fusion reuses the same formula with the
// gap expressed in days.
const (
	DefaultHalfLifeSeconds = 14400.0 // 4 hours
	DefaultHalfLifeDays    = 5.0     // monthly mode
	DefaultBeta            = 3.0
	DefaultEpsilon         = 1e-6
)

// FusionConfigIntraday is the standard daily-fusion parameterization.
var FusionConfigIntraday = FusionConfig{
	HalfLifeSeconds: DefaultHalfLifeSeconds,
	Beta:            DefaultBeta,
	Epsilon:         DefaultEpsilon,
}

// BacktestConfig holds one cross-sectional backtest configuration.
type BacktestConfig struct {
	Frequency       RebalanceFrequency
	Scheme          WeightScheme
	LongPercentile  float64 // e.g. 80 -> top 20% long
	ShortPercentile float64 // e.g. 20 -> bottom 20% short
	MinUniverse     int     // hard gate on cross-section size per rebalance
	MaxGapDays      int     // max calendar days between signal and return
	InitialCapital  float64
	RiskFreeAnnual  float64
}

// Backtest defaults, matching the study this engine reproduces.
const (
	DefaultLongPercentile  = 80.0
	DefaultShortPercentile = 20.0
	DefaultMinUniverse     = 20
	DefaultMaxGapDays      = 5
	DefaultInitialCapital  = 1.0
)

// DirectionConfig holds the daily threshold strategy parameters. Exposures
// are independently configurable per mode; the long-short book is allowed
// to be long-tilted.
type DirectionConfig struct {
	Threshold              float64 // long if signal > threshold, short if < -threshold
	LongShortLongExposure  float64 // total long exposure in long_short mode
	LongShortShortExposure float64 // total short exposure (absolute) in long_short mode
	LongOnlyExposure       float64 // total long exposure in long_only mode
	InitialCapital         float64
}

// DirectionConfigDefault is the baseline threshold parameterization.
var DirectionConfigDefault = DirectionConfig{
	Threshold:              0.7,
	LongShortLongExposure:  1.8,
	LongShortShortExposure: 1.0,
	LongOnlyExposure:       0.8,
	InitialCapital:         DefaultInitialCapital,
}
