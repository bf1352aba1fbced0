// Package idhash derives deterministic identifiers so reruns of the same
// configuration collide in the append-only stores instead of duplicating.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"sentiment-alpha-lab/internal/domain"
)

// ComputeBacktestRunID computes a deterministic run id for one
// cross-sectional backtest configuration.
// Formula: base58(SHA256("backtest|freq|scheme|longPct|shortPct|minUniverse")[:16]).
func ComputeBacktestRunID(cfg domain.BacktestConfig) string {
	data := fmt.Sprintf("backtest|%s|%s|%g|%g|%d",
		cfg.Frequency,
		cfg.Scheme,
		cfg.LongPercentile,
		cfg.ShortPercentile,
		cfg.MinUniverse,
	)
	return shortHash(data)
}

// ComputeDirectionRunID computes a deterministic run id for one daily
// threshold strategy configuration.
func ComputeDirectionRunID(cfg domain.DirectionConfig) string {
	data := fmt.Sprintf("direction|%g|%g|%g|%g",
		cfg.Threshold,
		cfg.LongShortLongExposure,
		cfg.LongShortShortExposure,
		cfg.LongOnlyExposure,
	)
	return shortHash(data)
}

// ComputeHoldRunID computes the run id for the buy-and-hold baseline.
func ComputeHoldRunID(initialCapital float64) string {
	return shortHash(fmt.Sprintf("hold|%g", initialCapital))
}

// shortHash returns the base58 encoding of the first 16 bytes of the
// SHA256 digest: short, URL-safe, and collision-resistant at this scale.
func shortHash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}
