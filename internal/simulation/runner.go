// Package simulation advances capital day by day through a return series
// and derives turnover between rebalances. The fold is inherently
// sequential: each day's capital_start is the previous day's capital_end.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sentiment-alpha-lab/internal/domain"
)

// Simulation errors.
var (
	// ErrCapitalChain is returned when consecutive records break the
	// capital chain. This is fatal: the series no longer represents the
	// configured strategy.
	ErrCapitalChain = errors.New("capital chain discontinuity")

	// ErrUnorderedDays is returned when the day series is not strictly
	// increasing.
	ErrUnorderedDays = errors.New("days are not strictly increasing")
)

// DayInput is one day's pre-computed portfolio state fed to the fold.
type DayInput struct {
	DayMs         int64
	Mode          domain.Mode
	UniverseSize  int
	NumLong       int
	NumShort      int
	LongExposure  float64 // sum of positive weights
	ShortExposure float64 // sum of negative weights, <= 0
	DailyReturn   float64
}

// Fold compounds capital through a chronological day series:
// pnl = capital_start * daily_return, capital_end = capital_start + pnl,
// and the next day starts at capital_end. Days must be strictly
// increasing.
func Fold(runID string, days []DayInput, initialCapital float64) ([]*domain.DailyCapitalRecord, error) {
	records := make([]*domain.DailyCapitalRecord, 0, len(days))
	capital := initialCapital

	var prevDayMs int64 = math.MinInt64
	for _, d := range days {
		if d.DayMs <= prevDayMs {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnorderedDays,
				formatDay(d.DayMs), formatDay(prevDayMs))
		}
		prevDayMs = d.DayMs

		capitalStart := capital
		pnl := capitalStart * d.DailyReturn
		capital = capitalStart + pnl

		records = append(records, &domain.DailyCapitalRecord{
			RunID:         runID,
			DayMs:         d.DayMs,
			Mode:          d.Mode,
			UniverseSize:  d.UniverseSize,
			NumLong:       d.NumLong,
			NumShort:      d.NumShort,
			LongExposure:  d.LongExposure,
			ShortExposure: d.ShortExposure,
			NetExposure:   d.LongExposure + d.ShortExposure,
			GrossExposure: d.LongExposure - d.ShortExposure,
			DailyReturn:   d.DailyReturn,
			CapitalStart:  capitalStart,
			PnL:           pnl,
			CapitalEnd:    capital,
		})
	}
	return records, nil
}

// ValidateChain verifies capital chain continuity across a stored record
// series: capital_start(t) == capital_end(t-1) exactly. A violation is an
// integrity error that must abort the consumer.
func ValidateChain(records []*domain.DailyCapitalRecord) error {
	for i := 1; i < len(records); i++ {
		if records[i].CapitalStart != records[i-1].CapitalEnd {
			return fmt.Errorf("%w: day %s starts at %.12f, previous ended at %.12f",
				ErrCapitalChain, formatDay(records[i].DayMs),
				records[i].CapitalStart, records[i-1].CapitalEnd)
		}
	}
	return nil
}

func formatDay(dayMs int64) string {
	return time.UnixMilli(dayMs).UTC().Format("2006-01-02")
}
