package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders performance rows as a CSV string.
func RenderCSV(rows []PerformanceRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,book,frequency,scheme,total_return,annualized_return,")
	sb.WriteString("volatility,sharpe_ratio,max_drawdown,trading_days,avg_turnover\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%.6f\n",
			r.RunID,
			r.Book,
			r.Frequency,
			r.Scheme,
			r.TotalReturn,
			r.AnnualizedReturn,
			r.Volatility,
			r.SharpeRatio,
			r.MaxDrawdown,
			r.TradingDays,
			r.AvgTurnover,
		))
	}

	return sb.String()
}
