package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/ingest"
	"sentiment-alpha-lab/internal/orchestrator"
	"sentiment-alpha-lab/internal/ranking"
	"sentiment-alpha-lab/internal/reporting"
	"sentiment-alpha-lab/internal/storage"
	chstore "sentiment-alpha-lab/internal/storage/clickhouse"
	"sentiment-alpha-lab/internal/storage/memory"
	"sentiment-alpha-lab/internal/storage/migrations"
	pgstore "sentiment-alpha-lab/internal/storage/postgres"
)

// stores bundles the five pipeline stores behind one wiring decision.
type stores struct {
	observations storage.ObservationStore
	fused        storage.FusedSignalStore
	returns      storage.DailyReturnStore
	capital      storage.CapitalRecordStore
	summaries    storage.BacktestSummaryStore
}

func main() {
	// Input data
	observationsPath := flag.String("observations", "", "Path to raw observations CSV")
	returnsPath := flag.String("returns", "", "Path to daily returns CSV")

	// Storage
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	runMigrations := flag.Bool("migrate", false, "Run migrations before starting")

	// Fusion
	halfLife := flag.Float64("half-life-seconds", domain.DefaultHalfLifeSeconds, "Time-decay half-life in seconds")
	beta := flag.Float64("beta", domain.DefaultBeta, "Gain before tanh saturation")
	skipFusion := flag.Bool("skip-fusion", false, "Reuse stored fused signals instead of fusing")

	// Backtest grid
	frequencies := flag.String("frequencies", "monthly,weekly", "Comma-separated rebalance frequencies")
	schemes := flag.String("schemes", "equal,value", "Comma-separated weight schemes")
	minUniverse := flag.Int("min-universe", domain.DefaultMinUniverse, "Minimum cross-section size per rebalance")
	initialCapital := flag.Float64("initial-capital", domain.DefaultInitialCapital, "Starting capital")

	// Direction strategy
	threshold := flag.Float64("threshold", domain.DirectionConfigDefault.Threshold, "Daily strategy signal threshold")

	// Control
	skipSufficiency := flag.Bool("skip-sufficiency", false, "Skip the data sufficiency gate")
	outputDir := flag.String("output-dir", "", "Directory for report.md and performance.csv")
	verbose := flag.Bool("verbose", false, "Verbose phase logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[pipeline] ", log.LstdFlags)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("Either --use-memory or both --postgres-dsn and --clickhouse-dsn are required")
	}
	if *useMemory && (*observationsPath == "" || *returnsPath == "") {
		logger.Fatal("--use-memory requires --observations and --returns (nothing is persisted between runs)")
	}

	backtestConfigs, err := buildGrid(*frequencies, *schemes, *minUniverse, *initialCapital)
	if err != nil {
		logger.Fatal(err)
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

	st, cleanup, err := buildStores(ctx, *useMemory, *postgresDSN, *clickhouseDSN, *runMigrations)
	if err != nil {
		logger.Fatalf("storage setup: %v", err)
	}
	defer cleanup()

	// Load CSV inputs when provided
	loader := ingest.NewLoader(st.observations, st.returns)
	if *observationsPath != "" {
		result, err := loader.LoadObservations(ctx, *observationsPath)
		if err != nil {
			logger.Fatalf("load observations: %v", err)
		}
		logger.Printf("Loaded %d observations (%d skipped)", result.Rows, len(result.Skipped))
	}
	if *returnsPath != "" {
		result, err := loader.LoadReturns(ctx, *returnsPath)
		if err != nil {
			logger.Fatalf("load returns: %v", err)
		}
		logger.Printf("Loaded %d daily returns (%d skipped)", result.Rows, len(result.Skipped))
	}

	if !*skipSufficiency {
		check, err := ingest.NewSufficiencyChecker(st.observations, st.returns).Check(ctx)
		if err != nil {
			logger.Fatalf("sufficiency check: %v", err)
		}
		for _, line := range check.Summary() {
			logger.Print(line)
		}
		if !check.AllPass {
			logger.Fatal("Data sufficiency gate failed (override with --skip-sufficiency)")
		}
	}

	directionCfg := domain.DirectionConfigDefault
	directionCfg.Threshold = *threshold
	directionCfg.InitialCapital = *initialCapital

	orch := orchestrator.New(orchestrator.Options{
		ObservationStore: st.observations,
		FusedStore:       st.fused,
		ReturnStore:      st.returns,
		CapitalStore:     st.capital,
		SummaryStore:     st.summaries,
		FusionConfig: domain.FusionConfig{
			HalfLifeSeconds: *halfLife,
			Beta:            *beta,
			Epsilon:         domain.DefaultEpsilon,
		},
		BacktestConfigs:  backtestConfigs,
		DirectionConfigs: []domain.DirectionConfig{directionCfg},
		SkipFusion:       *skipFusion,
		Verbose:          *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		logger.Fatalf("pipeline failed: %v", err)
	}
	for _, e := range result.Errors {
		logger.Printf("  error: %s", e)
	}
	logger.Printf("Done: %d signals, %d panel rows, %d/%d backtests, %d direction runs",
		result.SignalsFused, result.PanelRows, result.BacktestsRun, len(backtestConfigs), result.DirectionRuns)

	if result.Report == nil {
		logger.Fatal("Empty panel, no report generated")
	}

	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(result.Report))
		return
	}
	if err := writeReport(*outputDir, result.Report); err != nil {
		logger.Fatalf("write report: %v", err)
	}
	logger.Printf("Wrote report to %s", *outputDir)
}

// buildGrid expands the frequency and scheme lists into the full cross
// product of backtest configurations.
func buildGrid(frequencies, schemes string, minUniverse int, initialCapital float64) ([]domain.BacktestConfig, error) {
	var freqs []domain.RebalanceFrequency
	for _, name := range strings.Split(frequencies, ",") {
		switch strings.TrimSpace(name) {
		case "monthly":
			freqs = append(freqs, domain.RebalanceMonthly)
		case "weekly":
			freqs = append(freqs, domain.RebalanceWeekly)
		default:
			return nil, fmt.Errorf("invalid frequency: %q (must be monthly or weekly)", name)
		}
	}

	var parsed []domain.WeightScheme
	for _, name := range strings.Split(schemes, ",") {
		scheme, err := ranking.ParseWeightScheme(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, scheme)
	}

	var out []domain.BacktestConfig
	for _, freq := range freqs {
		for _, scheme := range parsed {
			out = append(out, domain.BacktestConfig{
				Frequency:      freq,
				Scheme:         scheme,
				MinUniverse:    minUniverse,
				InitialCapital: initialCapital,
			})
		}
	}
	return out, nil
}

// buildStores wires either the in-memory stores or the ClickHouse and
// PostgreSQL pair, optionally running migrations first.
func buildStores(ctx context.Context, useMemory bool, postgresDSN, clickhouseDSN string, migrate bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			observations: memory.NewObservationStore(),
			fused:        memory.NewFusedSignalStore(),
			returns:      memory.NewDailyReturnStore(),
			capital:      memory.NewCapitalRecordStore(),
			summaries:    memory.NewBacktestSummaryStore(),
		}, func() {}, nil
	}

	var conn *chstore.Conn
	var err error
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, clickhouseDSN)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse: %w", err)
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			conn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return &stores{
		observations: chstore.NewObservationStore(conn),
		fused:        chstore.NewFusedSignalStore(conn),
		returns:      chstore.NewDailyReturnStore(conn),
		capital:      pgstore.NewCapitalRecordStore(pool),
		summaries:    pgstore.NewBacktestSummaryStore(pool),
	}, cleanup, nil
}

func writeReport(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	mdPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	csvPath := filepath.Join(dir, "performance.csv")
	return os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.PerformanceRows)), 0o644)
}
