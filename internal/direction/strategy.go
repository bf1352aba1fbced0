// Package direction implements the daily threshold strategy: every day is
// a rebalance day, and the day's cross-section alone picks the exposure
// regime.
package direction

import (
	"sentiment-alpha-lab/internal/domain"
)

// DayObservation is one entity's state on a single trading day: the fused
// signal the position decision is based on and the realized return the
// position earns.
type DayObservation struct {
	EntityID string
	Signal   float64
	Return   float64
}

// DayResult is the outcome of evaluating one day's cross-section.
type DayResult struct {
	Mode          domain.Mode
	UniverseSize  int
	NumLong       int
	NumShort      int
	LongExposure  float64
	ShortExposure float64 // <= 0
	DailyReturn   float64
	Positions     []Position
}

// Position is one entity's holding for a single day.
type Position struct {
	EntityID     string
	Side         domain.Side
	Weight       float64 // signed; negative for shorts
	Return       float64
	Contribution float64
}

// EvaluateDay chooses the day's regime from qualifying counts and splits
// the configured exposure equally across qualifying entities. It is a pure
// function of the day's cross-section; no history influences the mode:
//
//	n_long > 0 and n_short > 0 -> long_short (independent long/short exposure)
//	n_long > 0 and n_short = 0 -> long_only (reduced long exposure)
//	otherwise                  -> flat (no positions, zero return)
func EvaluateDay(obs []DayObservation, cfg domain.DirectionConfig) DayResult {
	var longs, shorts []DayObservation
	for _, o := range obs {
		switch {
		case o.Signal > cfg.Threshold:
			longs = append(longs, o)
		case o.Signal < -cfg.Threshold:
			shorts = append(shorts, o)
		}
	}

	result := DayResult{
		UniverseSize: len(obs),
		NumLong:      len(longs),
		NumShort:     len(shorts),
	}

	var longWeight, shortWeight float64
	switch {
	case len(longs) > 0 && len(shorts) > 0:
		result.Mode = domain.ModeLongShort
		longWeight = cfg.LongShortLongExposure / float64(len(longs))
		shortWeight = -cfg.LongShortShortExposure / float64(len(shorts))
	case len(longs) > 0:
		result.Mode = domain.ModeLongOnly
		longWeight = cfg.LongOnlyExposure / float64(len(longs))
	default:
		result.Mode = domain.ModeFlat
		return result
	}

	for _, o := range longs {
		contribution := longWeight * o.Return
		result.LongExposure += longWeight
		result.DailyReturn += contribution
		result.Positions = append(result.Positions, Position{
			EntityID:     o.EntityID,
			Side:         domain.SideLong,
			Weight:       longWeight,
			Return:       o.Return,
			Contribution: contribution,
		})
	}
	if shortWeight != 0 {
		for _, o := range shorts {
			contribution := shortWeight * o.Return
			result.ShortExposure += shortWeight
			result.DailyReturn += contribution
			result.Positions = append(result.Positions, Position{
				EntityID:     o.EntityID,
				Side:         domain.SideShort,
				Weight:       shortWeight,
				Return:       o.Return,
				Contribution: contribution,
			})
		}
	}
	return result
}
