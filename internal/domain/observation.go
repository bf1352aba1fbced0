package domain

// RawSignalObservation is one textual sentiment reading for an entity,
// already scored by the upstream parsing layer. Many observations may share
// the same (entity_id, session_day) key.
type RawSignalObservation struct {
	EntityID       string  // ticker or other tradable-entity identifier
	ObservedAtMs   int64   // Unix timestamp of the observation (ms)
	SessionDayMs   int64   // UTC midnight of the trading session day (ms)
	SecondsToClose float64 // seconds remaining until that session's close, >= 0
	Value          float64 // raw score, typically in [-1, 1]
}

// FusedSignal is the single per-entity-per-day value produced by decay
// fusion. One row per (entity_id, session_day) that had at least one valid
// observation. Created once, never mutated.
type FusedSignal struct {
	EntityID     string
	SessionDayMs int64
	Value        float64 // fused score in (-1, 1) for multi-observation days
	WeightedMean float64 // decay-weighted mean before saturation
	DispersionQ  float64 // agreement ratio in [0, 1]; 1 = full agreement
	Observations int     // observations that contributed to the fusion
}
