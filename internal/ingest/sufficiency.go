package ingest

import (
	"context"
	"fmt"
	"time"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// Sufficiency thresholds. A study run on data below these produces
// percentile buckets too thin to mean anything.
const (
	MinEntities     = domain.DefaultMinUniverse
	MinReturnDays   = 40
	MinOverlapShare = 0.8 // share of signal entities that also have returns
	MinSpanDays     = 60  // calendar span of the return history
	MinObsPerEntity = 1.0 // average observations per signal entity
)

// SufficiencyCheck is one data criterion with its observed value.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult aggregates all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
}

// SufficiencyChecker validates stored inputs before a backtest grid runs.
type SufficiencyChecker struct {
	observationStore storage.ObservationStore
	returnStore      storage.DailyReturnStore
}

// NewSufficiencyChecker creates a checker over the input stores.
func NewSufficiencyChecker(observationStore storage.ObservationStore, returnStore storage.DailyReturnStore) *SufficiencyChecker {
	return &SufficiencyChecker{
		observationStore: observationStore,
		returnStore:      returnStore,
	}
}

// Check evaluates every criterion. It never fails on thin data; callers
// decide whether AllPass gates the run.
func (c *SufficiencyChecker) Check(ctx context.Context) (*SufficiencyResult, error) {
	obs, err := c.observationStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	returns, err := c.returnStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load returns: %w", err)
	}

	signalEntities := make(map[string]struct{})
	for _, o := range obs {
		signalEntities[o.EntityID] = struct{}{}
	}
	returnEntities := make(map[string]struct{})
	returnDays := make(map[int64]struct{})
	var minDay, maxDay int64
	for _, r := range returns {
		returnEntities[r.EntityID] = struct{}{}
		returnDays[r.DayMs] = struct{}{}
		if minDay == 0 || r.DayMs < minDay {
			minDay = r.DayMs
		}
		if r.DayMs > maxDay {
			maxDay = r.DayMs
		}
	}

	overlap := 0
	for e := range signalEntities {
		if _, ok := returnEntities[e]; ok {
			overlap++
		}
	}
	overlapShare := 0.0
	if len(signalEntities) > 0 {
		overlapShare = float64(overlap) / float64(len(signalEntities))
	}

	spanDays := 0
	if maxDay > minDay {
		spanDays = int(time.UnixMilli(maxDay).Sub(time.UnixMilli(minDay)) / (24 * time.Hour))
	}

	obsPerEntity := 0.0
	if len(signalEntities) > 0 {
		obsPerEntity = float64(len(obs)) / float64(len(signalEntities))
	}

	result := &SufficiencyResult{AllPass: true}
	result.add("signal entities", fmt.Sprintf(">= %d", MinEntities),
		fmt.Sprintf("%d", len(signalEntities)), len(signalEntities) >= MinEntities)
	result.add("return days", fmt.Sprintf(">= %d", MinReturnDays),
		fmt.Sprintf("%d", len(returnDays)), len(returnDays) >= MinReturnDays)
	result.add("signal-return entity overlap", fmt.Sprintf(">= %.0f%%", MinOverlapShare*100),
		fmt.Sprintf("%.0f%%", overlapShare*100), overlapShare >= MinOverlapShare)
	result.add("return history span", fmt.Sprintf(">= %d days", MinSpanDays),
		fmt.Sprintf("%d days", spanDays), spanDays >= MinSpanDays)
	result.add("observations per entity", fmt.Sprintf(">= %.1f", MinObsPerEntity),
		fmt.Sprintf("%.1f", obsPerEntity), obsPerEntity >= MinObsPerEntity)
	return result, nil
}

func (r *SufficiencyResult) add(name, threshold, actual string, pass bool) {
	r.Checks = append(r.Checks, SufficiencyCheck{
		Name:      name,
		Threshold: threshold,
		Actual:    actual,
		Pass:      pass,
	})
	if !pass {
		r.AllPass = false
	}
}

// Summary renders the checks as aligned text lines for CLI output.
func (r *SufficiencyResult) Summary() []string {
	out := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		status := "PASS"
		if !c.Pass {
			status = "FAIL"
		}
		out = append(out, fmt.Sprintf("[%s] %s: %s (need %s)", status, c.Name, c.Actual, c.Threshold))
	}
	return out
}

// Loader writes parsed CSV rows through the storage interfaces.
type Loader struct {
	observationStore storage.ObservationStore
	returnStore      storage.DailyReturnStore
}

// NewLoader creates a loader over the input stores.
func NewLoader(observationStore storage.ObservationStore, returnStore storage.DailyReturnStore) *Loader {
	return &Loader{
		observationStore: observationStore,
		returnStore:      returnStore,
	}
}

// LoadObservations parses the CSV at path and persists the valid rows.
func (l *Loader) LoadObservations(ctx context.Context, path string) (*LoadResult, error) {
	obs, result, err := LoadObservationsCSV(path)
	if err != nil {
		return nil, err
	}
	if err := l.observationStore.InsertBulk(ctx, obs); err != nil {
		return nil, fmt.Errorf("persist observations: %w", err)
	}
	return result, nil
}

// LoadReturns parses the CSV at path and persists the valid rows.
func (l *Loader) LoadReturns(ctx context.Context, path string) (*LoadResult, error) {
	rows, result, err := LoadReturnsCSV(path)
	if err != nil {
		return nil, err
	}
	if err := l.returnStore.InsertBulk(ctx, rows); err != nil {
		return nil, fmt.Errorf("persist returns: %w", err)
	}
	return result, nil
}
