// Package tca estimates the drag of transaction costs on a backtest's
// annualized return from its average per-rebalance turnover.
package tca

import "sentiment-alpha-lab/internal/domain"

// Scenario is a named per-trade cost assumption in basis points.
type Scenario struct {
	Name    string
	CostBps float64
}

// Standard cost scenarios.
var DefaultScenarios = []Scenario{
	{Name: "low", CostBps: 10},
	{Name: "base", CostBps: 20},
	{Name: "high", CostBps: 50},
}

// Estimate is the cost-adjusted view of one summary under one scenario.
type Estimate struct {
	Scenario           Scenario
	RebalancesPerYear  float64
	AnnualCost         float64 // fraction of capital per year
	GrossAnnualized    float64
	NetAnnualized      float64
	SurvivesAfterCosts bool // net annualized return still positive
}

// RebalancesPerYear maps a rebalance frequency to its annual count.
func RebalancesPerYear(freq domain.RebalanceFrequency) float64 {
	switch freq {
	case domain.RebalanceWeekly:
		return 52
	default:
		return 12
	}
}

// ApplyCosts estimates the annual cost drag for a summary. Cost per
// rebalance is turnover times the per-side rate; the annual figure scales
// by the rebalance count. Net return subtracts the drag from the gross
// annualized return.
func ApplyCosts(summary *domain.BacktestSummary, scenario Scenario) Estimate {
	perYear := RebalancesPerYear(summary.Frequency)
	annualCost := summary.AvgTurnover * (scenario.CostBps / 10000.0) * perYear
	net := summary.AnnualizedReturn - annualCost
	return Estimate{
		Scenario:           scenario,
		RebalancesPerYear:  perYear,
		AnnualCost:         annualCost,
		GrossAnnualized:    summary.AnnualizedReturn,
		NetAnnualized:      net,
		SurvivesAfterCosts: net > 0,
	}
}

// ApplyAll evaluates a summary against every scenario, in order.
func ApplyAll(summary *domain.BacktestSummary, scenarios []Scenario) []Estimate {
	out := make([]Estimate, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, ApplyCosts(summary, s))
	}
	return out
}
