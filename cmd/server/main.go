// Package main provides a unified service that reruns the research
// pipeline on a schedule and exposes the latest results over HTTP:
// - Pipeline (scheduled): fusion → panel → backtest grid → direction
// - Reporting: report.md and performance.csv refreshed after each run
// - HTTP: /health, /status, /report, /metrics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/observability"
	"sentiment-alpha-lab/internal/orchestrator"
	"sentiment-alpha-lab/internal/reporting"
	"sentiment-alpha-lab/internal/storage"
	chstore "sentiment-alpha-lab/internal/storage/clickhouse"
	"sentiment-alpha-lab/internal/storage/memory"
	pgstore "sentiment-alpha-lab/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	postgresDSN      string
	clickhouseDSN    string
	useMemory        bool
	outputDir        string
	pipelineInterval time.Duration

	// Stores
	stores *allStores

	logger *log.Logger

	// State
	mu              sync.Mutex
	lastPipelineRun time.Time
	pipelineRunning bool
	pipelineRuns    int
	started         time.Time
	lastReport      *reporting.Report
	lastErrors      []string
}

// allStores holds all storage implementations.
type allStores struct {
	observationStore storage.ObservationStore
	fusedStore       storage.FusedSignalStore
	returnStore      storage.DailyReturnStore
	capitalStore     storage.CapitalRecordStore
	summaryStore     storage.BacktestSummaryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	pipelineInterval := flag.Duration("pipeline-interval", 6*time.Hour, "Pipeline run interval")
	addr := flag.String("addr", ":9090", "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		postgresDSN:      *postgresDSN,
		clickhouseDSN:    *clickhouseDSN,
		useMemory:        *useMemory,
		outputDir:        *outputDir,
		pipelineInterval: *pipelineInterval,
		stores:           stores,
		logger:           logger,
		started:          time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*addr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			observationStore: memory.NewObservationStore(),
			fusedStore:       memory.NewFusedSignalStore(),
			returnStore:      memory.NewDailyReturnStore(),
			capitalStore:     memory.NewCapitalRecordStore(),
			summaryStore:     memory.NewBacktestSummaryStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// ClickHouse
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		// ClickHouse stores (signal and return panels)
		observationStore: chstore.NewObservationStore(chConn),
		fusedStore:       chstore.NewFusedSignalStore(chConn),
		returnStore:      chstore.NewDailyReturnStore(chConn),

		// PostgreSQL stores (run results)
		capitalStore: pgstore.NewCapitalRecordStore(pool),
		summaryStore: pgstore.NewBacktestSummaryStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the pipeline scheduler.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting pipeline scheduler (interval: %v)...", s.pipelineInterval)

	// Run immediately on start
	s.runPipeline(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

// runPipeline executes one full research run over the stored data.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now()
		s.pipelineRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running pipeline...")
	start := time.Now()

	orch := orchestrator.New(orchestrator.Options{
		ObservationStore: s.stores.observationStore,
		FusedStore:       s.stores.fusedStore,
		ReturnStore:      s.stores.returnStore,
		CapitalStore:     s.stores.capitalStore,
		SummaryStore:     s.stores.summaryStore,
		FusionConfig:     domain.FusionConfigIntraday,
		BacktestConfigs:  createBacktestConfigs(),
		DirectionConfigs: []domain.DirectionConfig{domain.DirectionConfigDefault},
		// Signals from prior runs stay valid; fuse only what is new.
		SkipFusion: s.pipelineRuns > 0,
		Verbose:    true,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		return
	}

	s.mu.Lock()
	s.lastReport = result.Report
	s.lastErrors = result.Errors
	s.mu.Unlock()

	s.logger.Printf("Pipeline completed in %v: %d signals, %d panel rows, %d backtests, %d direction runs",
		time.Since(start), result.SignalsFused, result.PanelRows, result.BacktestsRun, result.DirectionRuns)

	if result.Report != nil {
		s.writeReportFiles(result.Report)
	}
}

// writeReportFiles refreshes report.md and performance.csv on disk.
func (s *Server) writeReportFiles(report *reporting.Report) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Printf("Failed to create output directory: %v", err)
		return
	}

	mdPath := filepath.Join(s.outputDir, "report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		s.logger.Printf("Failed to write %s: %v", mdPath, err)
		return
	}
	csvPath := filepath.Join(s.outputDir, "performance.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.PerformanceRows)), 0644); err != nil {
		s.logger.Printf("Failed to write %s: %v", csvPath, err)
		return
	}
	s.logger.Printf("Reports written to %s/", s.outputDir)
}

// createBacktestConfigs returns the full frequency x scheme grid.
func createBacktestConfigs() []domain.BacktestConfig {
	frequencies := []domain.RebalanceFrequency{domain.RebalanceMonthly, domain.RebalanceWeekly}
	schemes := []domain.WeightScheme{domain.WeightEqual, domain.WeightValue}

	var configs []domain.BacktestConfig
	for _, freq := range frequencies {
		for _, scheme := range schemes {
			configs = append(configs, domain.BacktestConfig{
				Frequency: freq,
				Scheme:    scheme,
			})
		}
	}
	return configs
}

// startHTTPServer starts the HTTP server for health/metrics/status/report.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Latest report as JSON
	mux.HandleFunc("/report", s.handleReport)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	PipelineRuns    int       `json:"pipeline_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	Errors          []string  `json:"errors,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		LastPipelineRun: s.lastPipelineRun,
		PipelineRuns:    s.pipelineRuns,
		PipelineRunning: s.pipelineRunning,
		Errors:          s.lastErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleReport returns the most recent report as JSON, or 404 before the
// first pipeline run completes.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.lastReport
	s.mu.Unlock()

	if report == nil {
		http.Error(w, "no report generated yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
