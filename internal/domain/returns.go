package domain

// DailyReturn is one realized-return row from the returns loader.
// MarketCapLag is the lagged market capitalization used for value
// weighting; it must be observable at signal-formation time.
type DailyReturn struct {
	EntityID     string
	DayMs        int64   // UTC midnight of the trading day (ms)
	Return       float64 // simple daily return
	MarketCapLag float64 // lagged market cap in USD; 0 when unknown
}

// PanelRow links one fused signal to the entity's next available
// trading-day return. Produced by the panel builder; signals with no
// subsequent return inside the gap limit are dropped, never synthesized.
type PanelRow struct {
	EntityID     string
	SignalDayMs  int64   // day the signal was formed
	SignalScore  float64 // fused signal value
	ReturnDayMs  int64   // next trading day with a return for this entity
	Return       float64 // realized return on ReturnDayMs
	DaysGap      int     // calendar days between signal and return
	MarketCapLag float64 // lagged market cap carried from the return row
}
