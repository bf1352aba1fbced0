// Package panel links fused signals to forward realized returns: today's
// signal is matched to the entity's next available trading-day return.
package panel

import (
	"fmt"
	"sort"

	"sentiment-alpha-lab/internal/domain"
)

// millisPerDay converts the day gap between two UTC midnights.
const millisPerDay = 24 * 60 * 60 * 1000

// Builder joins signals to next-day returns under a staleness limit.
type Builder struct {
	maxGapDays int

	// NoForwardReturn counts signals per entity that had no subsequent
	// trading day; those rows are dropped, never synthesized.
	NoForwardReturn map[string]int

	// StaleSignals counts signals per entity whose nearest forward return
	// exceeded the calendar-day gap limit.
	StaleSignals map[string]int
}

// NewBuilder creates a panel builder. maxGapDays <= 0 falls back to the
// default staleness limit.
func NewBuilder(maxGapDays int) *Builder {
	if maxGapDays <= 0 {
		maxGapDays = domain.DefaultMaxGapDays
	}
	return &Builder{
		maxGapDays:      maxGapDays,
		NoForwardReturn: make(map[string]int),
		StaleSignals:    make(map[string]int),
	}
}

// Build matches each fused signal to the entity's next trading-day return.
// The per-entity trading calendar is derived from the return rows, so
// weekends, holidays, and entity-specific gaps are handled uniformly.
// Output is sorted by entity id then signal day.
func (b *Builder) Build(signals []*domain.FusedSignal, returns []*domain.DailyReturn) []*domain.PanelRow {
	calendars := buildCalendars(returns)

	var rows []*domain.PanelRow
	for _, sig := range signals {
		cal, ok := calendars[sig.EntityID]
		if !ok {
			b.NoForwardReturn[sig.EntityID]++
			continue
		}

		// First trading day strictly after the signal day.
		idx := sort.Search(len(cal), func(i int) bool {
			return cal[i].DayMs > sig.SessionDayMs
		})
		if idx == len(cal) {
			b.NoForwardReturn[sig.EntityID]++
			continue
		}

		ret := cal[idx]
		gap := int((ret.DayMs - sig.SessionDayMs) / millisPerDay)
		if gap > b.maxGapDays {
			b.StaleSignals[sig.EntityID]++
			continue
		}

		rows = append(rows, &domain.PanelRow{
			EntityID:     sig.EntityID,
			SignalDayMs:  sig.SessionDayMs,
			SignalScore:  sig.Value,
			ReturnDayMs:  ret.DayMs,
			Return:       ret.Return,
			DaysGap:      gap,
			MarketCapLag: ret.MarketCapLag,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EntityID != rows[j].EntityID {
			return rows[i].EntityID < rows[j].EntityID
		}
		return rows[i].SignalDayMs < rows[j].SignalDayMs
	})
	return rows
}

// Diagnostics returns drop counts formatted for the run log, sorted by
// entity id.
func (b *Builder) Diagnostics() []string {
	var out []string
	for _, entry := range []struct {
		counts map[string]int
		label  string
	}{
		{b.NoForwardReturn, "no forward return"},
		{b.StaleSignals, "stale beyond gap limit"},
	} {
		keys := make([]string, 0, len(entry.counts))
		for k := range entry.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, fmt.Sprintf("%s: %s x%d", k, entry.label, entry.counts[k]))
		}
	}
	return out
}

// buildCalendars groups return rows per entity sorted by day ASC.
func buildCalendars(returns []*domain.DailyReturn) map[string][]*domain.DailyReturn {
	calendars := make(map[string][]*domain.DailyReturn)
	for _, r := range returns {
		calendars[r.EntityID] = append(calendars[r.EntityID], r)
	}
	for _, cal := range calendars {
		sort.Slice(cal, func(i, j int) bool { return cal[i].DayMs < cal[j].DayMs })
	}
	return calendars
}
