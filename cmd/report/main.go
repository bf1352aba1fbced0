package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"sentiment-alpha-lab/internal/reporting"
	chstore "sentiment-alpha-lab/internal/storage/clickhouse"
	pgstore "sentiment-alpha-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (fused signals and returns)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (backtest summaries)")
	outputDir := flag.String("output-dir", "", "Directory for report.md and performance.csv (default: markdown to stdout)")
	format := flag.String("format", "both", "Output format: markdown, csv, both")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	switch *format {
	case "markdown", "csv", "both":
	default:
		logger.Fatalf("Invalid format: %s. Must be markdown, csv, or both", *format)
	}

	ctx := context.Background()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	generator := reporting.NewGenerator(
		chstore.NewFusedSignalStore(conn),
		chstore.NewDailyReturnStore(conn),
		pgstore.NewBacktestSummaryStore(pool),
	)

	report, err := generator.Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	logger.Printf("Report covers %d runs, %d performance rows", report.RunCount, len(report.PerformanceRows))

	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	if *format == "markdown" || *format == "both" {
		path := filepath.Join(*outputDir, "report.md")
		if err := os.WriteFile(path, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
			logger.Fatalf("write %s: %v", path, err)
		}
		logger.Printf("Wrote %s", path)
	}
	if *format == "csv" || *format == "both" {
		path := filepath.Join(*outputDir, "performance.csv")
		if err := os.WriteFile(path, []byte(reporting.RenderCSV(report.PerformanceRows)), 0o644); err != nil {
			logger.Fatalf("write %s: %v", path, err)
		}
		logger.Printf("Wrote %s", path)
	}
}
