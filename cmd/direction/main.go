package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentiment-alpha-lab/internal/direction"
	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/panel"
	"sentiment-alpha-lab/internal/performance"
	"sentiment-alpha-lab/internal/storage"
	chstore "sentiment-alpha-lab/internal/storage/clickhouse"
	pgstore "sentiment-alpha-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	threshold := flag.Float64("threshold", domain.DirectionConfigDefault.Threshold, "Signal threshold for long/short qualification")
	longExposure := flag.Float64("long-exposure", domain.DirectionConfigDefault.LongShortLongExposure, "Total long exposure in long_short mode")
	shortExposure := flag.Float64("short-exposure", domain.DirectionConfigDefault.LongShortShortExposure, "Total short exposure (absolute) in long_short mode")
	longOnlyExposure := flag.Float64("long-only-exposure", domain.DirectionConfigDefault.LongOnlyExposure, "Total long exposure in long_only mode")
	initialCapital := flag.Float64("initial-capital", domain.DefaultInitialCapital, "Starting capital")
	maxGapDays := flag.Int("max-gap-days", domain.DefaultMaxGapDays, "Max calendar days between signal and return")
	skipBaseline := flag.Bool("skip-baseline", false, "Skip the equal-weight buy-and-hold baseline")

	// Storage
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	persistResult := flag.Bool("persist", false, "Persist daily capital records to PostgreSQL")

	// Output
	outputJSON := flag.Bool("json", false, "Output daily records as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[direction] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (fused signals and returns)")
	}
	if *persistResult && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required with --persist")
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

	var capitalStore storage.CapitalRecordStore
	if *persistResult {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		capitalStore = pgstore.NewCapitalRecordStore(pool)
	}

	signals, err := chstore.NewFusedSignalStore(conn).GetAll(ctx)
	if err != nil {
		logger.Fatalf("load fused signals: %v", err)
	}
	returns, err := chstore.NewDailyReturnStore(conn).GetAll(ctx)
	if err != nil {
		logger.Fatalf("load returns: %v", err)
	}

	builder := panel.NewBuilder(*maxGapDays)
	rows := builder.Build(signals, returns)
	logger.Printf("Panel: %d rows from %d signals, %d returns", len(rows), len(signals), len(returns))

	cfg := domain.DirectionConfig{
		Threshold:              *threshold,
		LongShortLongExposure:  *longExposure,
		LongShortShortExposure: *shortExposure,
		LongOnlyExposure:       *longOnlyExposure,
		InitialCapital:         *initialCapital,
	}

	result, err := direction.NewRunner(cfg, capitalStore).Run(ctx, rows)
	if err != nil {
		logger.Fatalf("direction run failed: %v", err)
	}

	var baseline *direction.Result
	if !*skipBaseline {
		baseline, err = direction.RunHoldBaseline(ctx, rows, *initialCapital, capitalStore)
		if err != nil {
			logger.Fatalf("hold baseline failed: %v", err)
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result.Records, "", "  ")
		fmt.Println(string(output))
		return
	}
	printResult(cfg, result, baseline)
}

// printResult outputs a human-readable summary of the threshold run and,
// when present, the buy-and-hold baseline.
func printResult(cfg domain.DirectionConfig, result, baseline *direction.Result) {
	fmt.Println()
	fmt.Println("=== Daily Direction Strategy ===")
	fmt.Printf("Run ID:        %s\n", result.RunID)
	fmt.Printf("Threshold:     %.2f\n", cfg.Threshold)
	fmt.Printf("Trading Days:  %d\n", len(result.Records))

	var modeCounts = map[domain.Mode]int{}
	dailyReturns := make([]float64, 0, len(result.Records))
	for _, rec := range result.Records {
		modeCounts[rec.Mode]++
		dailyReturns = append(dailyReturns, rec.DailyReturn)
	}
	fmt.Printf("Regime days:   %d long_short / %d long_only / %d flat\n",
		modeCounts[domain.ModeLongShort], modeCounts[domain.ModeLongOnly], modeCounts[domain.ModeFlat])

	if len(result.Records) > 0 {
		last := result.Records[len(result.Records)-1]
		stats := performance.Compute(dailyReturns, 0)
		fmt.Printf("Final Capital: %.4f (%.2f%% total return)\n",
			last.CapitalEnd, (last.CapitalEnd/cfg.InitialCapital-1)*100)
		fmt.Printf("Sharpe Ratio:  %.2f\n", stats.SharpeRatio)
		fmt.Printf("Max Drawdown:  %.2f%%\n", stats.MaxDrawdown*100)
		fmt.Printf("Sample:        %s to %s\n",
			formatDay(result.Records[0].DayMs), formatDay(last.DayMs))
	}

	if baseline != nil && len(baseline.Records) > 0 {
		last := baseline.Records[len(baseline.Records)-1]
		fmt.Println()
		fmt.Println("Buy-and-hold baseline:")
		fmt.Printf("  Final Capital: %.4f (%.2f%% total return)\n",
			last.CapitalEnd, (last.CapitalEnd/cfg.InitialCapital-1)*100)
	}
	fmt.Println()
}

func formatDay(dayMs int64) string {
	return time.UnixMilli(dayMs).UTC().Format("2006-01-02")
}
