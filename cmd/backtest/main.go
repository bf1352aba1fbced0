package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sentiment-alpha-lab/internal/backtest"
	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/ranking"
	"sentiment-alpha-lab/internal/storage"
	chstore "sentiment-alpha-lab/internal/storage/clickhouse"
	pgstore "sentiment-alpha-lab/internal/storage/postgres"
	"sentiment-alpha-lab/internal/tca"
)

func main() {
	// Parse flags
	frequency := flag.String("frequency", "monthly", "Rebalance frequency: monthly, weekly")
	scheme := flag.String("scheme", "equal", "Weight scheme: equal, value")
	longPct := flag.Float64("long-pct", domain.DefaultLongPercentile, "Long percentile threshold")
	shortPct := flag.Float64("short-pct", domain.DefaultShortPercentile, "Short percentile threshold")
	minUniverse := flag.Int("min-universe", domain.DefaultMinUniverse, "Minimum cross-section size per rebalance")
	maxGapDays := flag.Int("max-gap-days", domain.DefaultMaxGapDays, "Max calendar days between signal and return")
	initialCapital := flag.Float64("initial-capital", domain.DefaultInitialCapital, "Starting capital")
	riskFree := flag.Float64("risk-free", 0, "Annual risk-free rate for Sharpe")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required)")
	persistResult := flag.Bool("persist", false, "Persist summaries and capital records to PostgreSQL")

	// Output
	outputJSON := flag.Bool("json", false, "Output summaries as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (fused signals and returns)")
	}
	if *persistResult && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required with --persist")
	}

	freq, err := parseFrequency(*frequency)
	if err != nil {
		logger.Fatal(err)
	}
	weightScheme, err := ranking.ParseWeightScheme(*scheme)
	if err != nil {
		logger.Fatalf("Invalid scheme: %s. Must be equal or value", *scheme)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	fusedStore := chstore.NewFusedSignalStore(conn)
	returnStore := chstore.NewDailyReturnStore(conn)

	var summaryStore storage.BacktestSummaryStore
	var capitalStore storage.CapitalRecordStore
	if *persistResult {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		summaryStore = pgstore.NewBacktestSummaryStore(pool)
		capitalStore = pgstore.NewCapitalRecordStore(pool)
	}

	cfg := domain.BacktestConfig{
		Frequency:       freq,
		Scheme:          weightScheme,
		LongPercentile:  *longPct,
		ShortPercentile: *shortPct,
		MinUniverse:     *minUniverse,
		MaxGapDays:      *maxGapDays,
		InitialCapital:  *initialCapital,
		RiskFreeAnnual:  *riskFree,
	}

	runner := backtest.NewRunner(backtest.RunnerOptions{
		FusedStore:   fusedStore,
		ReturnStore:  returnStore,
		SummaryStore: summaryStore,
		CapitalStore: capitalStore,
	})

	logger.Printf("Running backtest: frequency=%s scheme=%s long>=%.0f short<=%.0f",
		freq, *scheme, *longPct, *shortPct)

	results, err := runner.Run(ctx, cfg)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	for _, skipped := range runner.SkippedRebalances {
		logger.Printf("  skipped rebalance %s", skipped)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(results.Summaries, "", "  ")
		fmt.Println(string(output))
	} else {
		printResults(results)
	}
}

func parseFrequency(name string) (domain.RebalanceFrequency, error) {
	switch strings.ToLower(name) {
	case "monthly":
		return domain.RebalanceMonthly, nil
	case "weekly":
		return domain.RebalanceWeekly, nil
	default:
		return "", fmt.Errorf("invalid frequency: %s (must be monthly or weekly)", name)
	}
}

// printResults outputs a human-readable run summary.
func printResults(r *backtest.Results) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:        %s\n", r.RunID)
	fmt.Printf("Rebalances:    %d\n", len(r.RebalanceDays))
	fmt.Printf("Trading Days:  %d\n", len(r.Side.Days))
	fmt.Printf("Avg Turnover:  %.4f\n", r.AvgTurnover)
	fmt.Println()

	for _, s := range r.Summaries {
		fmt.Printf("%s book:\n", s.Book)
		fmt.Printf("  Total Return:      %.2f%%\n", s.TotalReturn*100)
		fmt.Printf("  Annualized Return: %.2f%%\n", s.AnnualizedReturn*100)
		fmt.Printf("  Volatility:        %.2f%%\n", s.Volatility*100)
		fmt.Printf("  Sharpe Ratio:      %.2f\n", s.SharpeRatio)
		fmt.Printf("  Max Drawdown:      %.2f%%\n", s.MaxDrawdown*100)
		fmt.Println()

		if s.Book == domain.BookLongShort {
			fmt.Println("  Cost sensitivity:")
			for _, est := range tca.ApplyAll(s, tca.DefaultScenarios) {
				verdict := "does not survive"
				if est.SurvivesAfterCosts {
					verdict = "survives"
				}
				fmt.Printf("    %s (%.0f bps): net %.2f%% (%s)\n",
					est.Scenario.Name, est.Scenario.CostBps, est.NetAnnualized*100, verdict)
			}
			fmt.Println()
		}
	}
}
