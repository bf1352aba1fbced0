package domain

// Mode is the exposure regime a strategy is in on a given day.
type Mode string

// Mode constants.
const (
	ModeLongShort Mode = "long_short"
	ModeLongOnly  Mode = "long_only"
	ModeFlat      Mode = "flat"
	ModeBuyHold   Mode = "buy_and_hold_long"
)

// DailyCapitalRecord is one day of the capital chain for a run. Records
// form a strictly chronological chain: capital_start of day t equals
// capital_end of day t-1, and the first record starts at the configured
// initial capital. Append-only.
type DailyCapitalRecord struct {
	RunID         string
	DayMs         int64
	Mode          Mode
	UniverseSize  int
	NumLong       int
	NumShort      int
	LongExposure  float64 // signed sum of positive weights
	ShortExposure float64 // signed sum of negative weights (<= 0)
	NetExposure   float64
	GrossExposure float64
	DailyReturn   float64
	CapitalStart  float64
	PnL           float64
	CapitalEnd    float64
}

// PositionContribution is one held position's share of a day's return.
// Exists only for days where the position was held; the day's DailyReturn
// equals the sum of its contributions.
type PositionContribution struct {
	RunID          string
	DayMs          int64
	EntityID       string
	Side           Side
	Weight         float64
	RealizedReturn float64
	Contribution   float64 // Weight * RealizedReturn
}
