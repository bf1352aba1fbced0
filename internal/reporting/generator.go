package reporting

import (
	"context"
	"sort"
	"time"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
	"sentiment-alpha-lab/internal/tca"
)

// Generator produces reports from stored data.
type Generator struct {
	fusedStore   storage.FusedSignalStore
	returnStore  storage.DailyReturnStore
	summaryStore storage.BacktestSummaryStore

	costScenarios []tca.Scenario
	directionRows []DirectionRow
	diagnostics   DiagnosticsSection
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	fusedStore storage.FusedSignalStore,
	returnStore storage.DailyReturnStore,
	summaryStore storage.BacktestSummaryStore,
) *Generator {
	return &Generator{
		fusedStore:    fusedStore,
		returnStore:   returnStore,
		summaryStore:  summaryStore,
		costScenarios: tca.DefaultScenarios,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithCostScenarios overrides the default cost scenarios.
func (g *Generator) WithCostScenarios(scenarios []tca.Scenario) *Generator {
	g.costScenarios = scenarios
	return g
}

// WithDirectionRows attaches daily-strategy results to the report.
func (g *Generator) WithDirectionRows(rows []DirectionRow) *Generator {
	g.directionRows = rows
	return g
}

// WithDiagnostics attaches pipeline diagnostics to the report.
func (g *Generator) WithDiagnostics(d DiagnosticsSection) *Generator {
	g.diagnostics = d
	return g
}

// Generate produces a complete report from the stores.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	summaries, err := g.summaryStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	dataSummary, err := g.generateDataSummary(ctx)
	if err != nil {
		return nil, err
	}

	runSet := make(map[string]struct{})
	for _, s := range summaries {
		runSet[s.RunID] = struct{}{}
	}

	return &Report{
		GeneratedAt:     g.now(),
		RunCount:        len(runSet),
		DataSummary:     *dataSummary,
		PerformanceRows: g.generatePerformanceRows(summaries),
		CostRows:        g.generateCostRows(summaries),
		DirectionRows:   g.directionRows,
		Diagnostics:     g.diagnostics,
	}, nil
}

// generateDataSummary computes input coverage from the signal and return
// stores.
func (g *Generator) generateDataSummary(ctx context.Context) (*DataSummary, error) {
	signals, err := g.fusedStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	returns, err := g.returnStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	entitySet := make(map[string]struct{})
	var start, end int64
	for _, s := range signals {
		entitySet[s.EntityID] = struct{}{}
		if start == 0 || s.SessionDayMs < start {
			start = s.SessionDayMs
		}
		if s.SessionDayMs > end {
			end = s.SessionDayMs
		}
	}
	for _, r := range returns {
		entitySet[r.EntityID] = struct{}{}
		if start == 0 || r.DayMs < start {
			start = r.DayMs
		}
		if r.DayMs > end {
			end = r.DayMs
		}
	}

	return &DataSummary{
		FusedSignals:   len(signals),
		ReturnRows:     len(returns),
		Entities:       len(entitySet),
		DateRangeStart: start,
		DateRangeEnd:   end,
	}, nil
}

// generatePerformanceRows converts summaries into report rows, sorted by
// run then book.
func (g *Generator) generatePerformanceRows(summaries []*domain.BacktestSummary) []PerformanceRow {
	rows := make([]PerformanceRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, PerformanceRow{
			RunID:            s.RunID,
			Book:             string(s.Book),
			Frequency:        string(s.Frequency),
			Scheme:           s.Scheme.String(),
			TotalReturn:      s.TotalReturn,
			AnnualizedReturn: s.AnnualizedReturn,
			Volatility:       s.Volatility,
			SharpeRatio:      s.SharpeRatio,
			MaxDrawdown:      s.MaxDrawdown,
			TradingDays:      s.TradingDays,
			AvgTurnover:      s.AvgTurnover,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RunID != rows[j].RunID {
			return rows[i].RunID < rows[j].RunID
		}
		return rows[i].Book < rows[j].Book
	})
	return rows
}

// generateCostRows applies each cost scenario to every long-short summary.
func (g *Generator) generateCostRows(summaries []*domain.BacktestSummary) []CostRow {
	var rows []CostRow
	for _, s := range summaries {
		if s.Book != domain.BookLongShort {
			continue
		}
		for _, est := range tca.ApplyAll(s, g.costScenarios) {
			rows = append(rows, CostRow{
				RunID:           s.RunID,
				Frequency:       string(s.Frequency),
				Scenario:        est.Scenario.Name,
				CostBps:         est.Scenario.CostBps,
				AnnualCost:      est.AnnualCost,
				GrossAnnualized: est.GrossAnnualized,
				NetAnnualized:   est.NetAnnualized,
				Survives:        est.SurvivesAfterCosts,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RunID != rows[j].RunID {
			return rows[i].RunID < rows[j].RunID
		}
		return rows[i].CostBps < rows[j].CostBps
	})
	return rows
}
