package fusion

import (
	"errors"
	"fmt"
	"math"

	"sentiment-alpha-lab/internal/domain"
)

// Fusion errors.
var (
	// ErrNoObservations is returned when Fuse is called with an empty list.
	ErrNoObservations = errors.New("no observations for key")

	// ErrDegenerateInput is returned when every observation for the key is
	// non-finite. The key must be dropped from the fused series, never
	// zero-filled.
	ErrDegenerateInput = errors.New("all observations for key are non-finite")

	// ErrZeroWeightSum is returned when the decay weights sum to zero. The
	// weighted mean is undefined in that case and the key is a fusion
	// failure, not a zero.
	ErrZeroWeightSum = errors.New("decay weights sum to zero")

	// ErrKeyMismatch is returned when the observations do not all share the
	// same (entity, session day) key.
	ErrKeyMismatch = errors.New("observations span multiple (entity, day) keys")
)

// Fuser collapses same-day observations into one fused signal.
type Fuser struct {
	cfg domain.FusionConfig
}

// NewFuser creates a Fuser. Zero-valued config fields fall back to the
// package defaults.
func NewFuser(cfg domain.FusionConfig) *Fuser {
	if cfg.HalfLifeSeconds <= 0 {
		cfg.HalfLifeSeconds = domain.DefaultHalfLifeSeconds
	}
	if cfg.Beta == 0 {
		cfg.Beta = domain.DefaultBeta
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = domain.DefaultEpsilon
	}
	return &Fuser{cfg: cfg}
}

// Fuse collapses all observations for one (entity, session day) key into a
// single FusedSignal.
//
// Each observation is weighted by 2^(-seconds_to_close / half_life), so
// observations closer to the session close dominate. The agreement ratio
// q = |Σ w·v| / (Σ w·|v| + ε) is 1 when all contributors point the same
// way and approaches 0 under weighted cancellation. Multi-observation days
// are saturated: fused = tanh(β·mean)·q. A single-observation day passes
// its raw value through unchanged.
//
// Non-finite observations are excluded before weighting; if none survive,
// ErrDegenerateInput is returned and the caller must drop the key.
func (f *Fuser) Fuse(obs []domain.RawSignalObservation) (domain.FusedSignal, error) {
	if len(obs) == 0 {
		return domain.FusedSignal{}, ErrNoObservations
	}

	entityID := obs[0].EntityID
	dayMs := obs[0].SessionDayMs
	for _, o := range obs[1:] {
		if o.EntityID != entityID || o.SessionDayMs != dayMs {
			return domain.FusedSignal{}, fmt.Errorf("%w: %s/%d vs %s/%d",
				ErrKeyMismatch, entityID, dayMs, o.EntityID, o.SessionDayMs)
		}
	}

	valid := obs[:0:0]
	for _, o := range obs {
		if !isFinite(o.Value) || !isFinite(o.SecondsToClose) || o.SecondsToClose < 0 {
			continue
		}
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return domain.FusedSignal{}, fmt.Errorf("%w: %s/%d", ErrDegenerateInput, entityID, dayMs)
	}

	var num, den, absSum float64
	for _, o := range valid {
		w := math.Exp2(-o.SecondsToClose / f.cfg.HalfLifeSeconds)
		num += w * o.Value
		den += w
		absSum += w * math.Abs(o.Value)
	}
	if den == 0 {
		return domain.FusedSignal{}, fmt.Errorf("%w: %s/%d", ErrZeroWeightSum, entityID, dayMs)
	}

	mean := num / den
	q := math.Abs(num) / (absSum + f.cfg.Epsilon)

	// A single opinion passes through undistorted; only days with multiple
	// observations are saturated and disagreement-penalized.
	value := valid[0].Value
	if len(valid) > 1 {
		value = math.Tanh(f.cfg.Beta*mean) * q
	}

	return domain.FusedSignal{
		EntityID:     entityID,
		SessionDayMs: dayMs,
		Value:        value,
		WeightedMean: mean,
		DispersionQ:  q,
		Observations: len(valid),
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
