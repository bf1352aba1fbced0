package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Sentiment Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", r.RunCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Fused Signals | %d |\n", r.DataSummary.FusedSignals))
	sb.WriteString(fmt.Sprintf("| Return Rows | %d |\n", r.DataSummary.ReturnRows))
	sb.WriteString(fmt.Sprintf("| Entities | %d |\n", r.DataSummary.Entities))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatDayCell(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatDayCell(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Performance
	sb.WriteString("## Performance\n\n")
	if len(r.PerformanceRows) > 0 {
		sb.WriteString("| Run | Book | Freq | Scheme | Total | Annualized | Vol | Sharpe | MaxDD | Days | Turnover |\n")
		sb.WriteString("|-----|------|------|--------|-------|------------|-----|--------|-------|------|----------|\n")
		for _, p := range r.PerformanceRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f | %.4f | %.4f | %.4f | %.4f | %d | %.4f |\n",
				p.RunID, p.Book, p.Frequency, p.Scheme,
				p.TotalReturn, p.AnnualizedReturn, p.Volatility, p.SharpeRatio,
				p.MaxDrawdown, p.TradingDays, p.AvgTurnover))
		}
	} else {
		sb.WriteString("No performance rows available.\n")
	}
	sb.WriteString("\n")

	// Cost Sensitivity
	sb.WriteString("## Cost Sensitivity\n\n")
	if len(r.CostRows) > 0 {
		sb.WriteString("| Run | Freq | Scenario | Cost (bps) | Annual Cost | Gross | Net | Survives |\n")
		sb.WriteString("|-----|------|----------|------------|-------------|-------|-----|----------|\n")
		for _, c := range r.CostRows {
			survives := "no"
			if c.Survives {
				survives = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.0f | %.4f | %.4f | %.4f | %s |\n",
				c.RunID, c.Frequency, c.Scenario, c.CostBps,
				c.AnnualCost, c.GrossAnnualized, c.NetAnnualized, survives))
		}
	} else {
		sb.WriteString("No cost scenarios available.\n")
	}
	sb.WriteString("\n")

	// Direction Strategy
	sb.WriteString("## Daily Direction Strategy\n\n")
	if len(r.DirectionRows) > 0 {
		sb.WriteString("| Run | Threshold | Days | L/S | LongOnly | Flat | Final Capital | Total | Sharpe | MaxDD | Baseline |\n")
		sb.WriteString("|-----|-----------|------|-----|----------|------|---------------|-------|--------|-------|----------|\n")
		for _, d := range r.DirectionRows {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %d | %d | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				d.RunID, d.Threshold, d.TradingDays,
				d.LongShortDays, d.LongOnlyDays, d.FlatDays,
				d.FinalCapital, d.TotalReturn, d.SharpeRatio, d.MaxDrawdown,
				d.BaselineReturn))
		}
	} else {
		sb.WriteString("No direction runs available.\n")
	}
	sb.WriteString("\n")

	// Diagnostics
	sb.WriteString("## Diagnostics\n\n")
	renderDiagnosticList(&sb, "Dropped Fusion Keys", r.Diagnostics.DroppedFusionKeys)
	renderDiagnosticList(&sb, "Skipped Rebalances", r.Diagnostics.SkippedRebalances)
	renderDiagnosticList(&sb, "Panel Issues", r.Diagnostics.PanelIssues)
	if len(r.Diagnostics.DroppedFusionKeys)+len(r.Diagnostics.SkippedRebalances)+len(r.Diagnostics.PanelIssues) == 0 {
		sb.WriteString("No diagnostics recorded.\n\n")
	}

	return sb.String()
}

func renderDiagnosticList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
	sb.WriteString("\n")
}

func formatDayCell(dayMs int64) string {
	if dayMs == 0 {
		return "-"
	}
	return time.UnixMilli(dayMs).UTC().Format("2006-01-02")
}
