package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/fusion"
	"sentiment-alpha-lab/internal/observability"
	chstore "sentiment-alpha-lab/internal/storage/clickhouse"
)

func main() {
	// Parse flags
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required)")
	halfLife := flag.Float64("half-life-seconds", domain.DefaultHalfLifeSeconds, "Time-decay half-life in seconds")
	beta := flag.Float64("beta", domain.DefaultBeta, "Gain applied before tanh saturation")
	epsilon := flag.Float64("epsilon", domain.DefaultEpsilon, "Divide-by-zero guard in the agreement ratio")
	outputJSON := flag.Bool("json", false, "Print fused signals as JSON")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[fuse] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	ctx := context.Background()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	obsStore := chstore.NewObservationStore(conn)
	fusedStore := chstore.NewFusedSignalStore(conn)

	fuser := fusion.NewFuser(domain.FusionConfig{
		HalfLifeSeconds: *halfLife,
		Beta:            *beta,
		Epsilon:         *epsilon,
	})
	runner := fusion.NewRunner(fuser, obsStore, fusedStore)

	logger.Printf("Fusing observations (half-life=%.0fs beta=%.1f)...", *halfLife, *beta)
	signals, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("fusion failed: %v", err)
	}
	observability.RecordSignalsFused(len(signals))

	dropped := runner.DropDiagnostics()
	logger.Printf("Fused %d entity-day signals (%d keys dropped)", len(signals), len(dropped))
	for _, key := range dropped {
		logger.Printf("  dropped %s", key)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(signals, "", "  ")
		fmt.Println(string(output))
	}
}
