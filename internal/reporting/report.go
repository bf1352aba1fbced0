package reporting

import "time"

// Report is the rendered view of a study: data coverage, per-configuration
// performance, cost sensitivity, and daily-strategy results.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int

	// Data Summary
	DataSummary DataSummary

	// Performance (sorted by run_id, book)
	PerformanceRows []PerformanceRow

	// Cost Sensitivity (per long-short summary, per cost scenario)
	CostRows []CostRow

	// Direction Strategy (daily threshold runs, one row per run)
	DirectionRows []DirectionRow

	// Diagnostics collected across the pipeline
	Diagnostics DiagnosticsSection
}

// DataSummary describes the inputs the study ran on.
type DataSummary struct {
	FusedSignals   int
	ReturnRows     int
	Entities       int
	DateRangeStart int64 // Unix ms
	DateRangeEnd   int64 // Unix ms
}

// PerformanceRow is one (run, book) performance line.
type PerformanceRow struct {
	RunID            string
	Book             string
	Frequency        string
	Scheme           string
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	MaxDrawdown      float64
	TradingDays      int
	AvgTurnover      float64
}

// CostRow is one cost-scenario line for a long-short book.
type CostRow struct {
	RunID           string
	Frequency       string
	Scenario        string
	CostBps         float64
	AnnualCost      float64
	GrossAnnualized float64
	NetAnnualized   float64
	Survives        bool
}

// DirectionRow summarizes one daily threshold run against its baseline.
type DirectionRow struct {
	RunID          string
	Threshold      float64
	TradingDays    int
	LongShortDays  int
	LongOnlyDays   int
	FlatDays       int
	FinalCapital   float64
	TotalReturn    float64
	SharpeRatio    float64
	MaxDrawdown    float64
	BaselineReturn float64 // equal-weight buy-and-hold over the same days
}

// DiagnosticsSection lists non-fatal data issues observed while running.
type DiagnosticsSection struct {
	DroppedFusionKeys []string
	SkippedRebalances []string
	PanelIssues       []string
}
