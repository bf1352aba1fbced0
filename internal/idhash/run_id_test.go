package idhash

import (
	"strings"
	"testing"

	"sentiment-alpha-lab/internal/domain"
)

func TestComputeBacktestRunID_Deterministic(t *testing.T) {
	cfg := domain.BacktestConfig{
		Frequency:       domain.RebalanceMonthly,
		Scheme:          domain.WeightEqual,
		LongPercentile:  80,
		ShortPercentile: 20,
		MinUniverse:     20,
	}

	first := ComputeBacktestRunID(cfg)
	second := ComputeBacktestRunID(cfg)
	if first != second {
		t.Errorf("same config produced %q and %q", first, second)
	}
	if first == "" {
		t.Error("run id is empty")
	}
}

func TestComputeBacktestRunID_SensitiveToEveryField(t *testing.T) {
	base := domain.BacktestConfig{
		Frequency:       domain.RebalanceMonthly,
		Scheme:          domain.WeightEqual,
		LongPercentile:  80,
		ShortPercentile: 20,
		MinUniverse:     20,
	}
	baseID := ComputeBacktestRunID(base)

	variants := []domain.BacktestConfig{}
	v := base
	v.Frequency = domain.RebalanceWeekly
	variants = append(variants, v)
	v = base
	v.Scheme = domain.WeightValue
	variants = append(variants, v)
	v = base
	v.LongPercentile = 90
	variants = append(variants, v)
	v = base
	v.ShortPercentile = 10
	variants = append(variants, v)
	v = base
	v.MinUniverse = 30
	variants = append(variants, v)

	seen := map[string]bool{baseID: true}
	for i, variant := range variants {
		id := ComputeBacktestRunID(variant)
		if seen[id] {
			t.Errorf("variant %d collides: %q", i, id)
		}
		seen[id] = true
	}
}

func TestComputeDirectionRunID_Deterministic(t *testing.T) {
	cfg := domain.DirectionConfig{
		Threshold:              0.1,
		LongShortLongExposure:  1.0,
		LongShortShortExposure: -1.0,
		LongOnlyExposure:       1.0,
	}

	if ComputeDirectionRunID(cfg) != ComputeDirectionRunID(cfg) {
		t.Error("same config produced different ids")
	}

	other := cfg
	other.Threshold = 0.2
	if ComputeDirectionRunID(cfg) == ComputeDirectionRunID(other) {
		t.Error("different thresholds produced the same id")
	}
}

func TestComputeHoldRunID(t *testing.T) {
	if ComputeHoldRunID(100000) != ComputeHoldRunID(100000) {
		t.Error("same capital produced different ids")
	}
	if ComputeHoldRunID(100000) == ComputeHoldRunID(50000) {
		t.Error("different capital produced the same id")
	}
}

func TestShortHash_Base58Alphabet(t *testing.T) {
	id := shortHash("backtest|monthly|equal|80|20|20")
	for _, c := range id {
		if strings.ContainsRune("0OIl+/", c) {
			t.Errorf("id %q contains non-base58 character %q", id, c)
		}
	}
}
