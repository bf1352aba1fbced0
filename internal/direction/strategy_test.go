package direction

import (
	"math"
	"testing"

	"sentiment-alpha-lab/internal/domain"
)

var testCfg = domain.DirectionConfig{
	Threshold:              0.5,
	LongShortLongExposure:  1.8,
	LongShortShortExposure: 1.0,
	LongOnlyExposure:       0.8,
	InitialCapital:         100000,
}

func TestEvaluateDay_LongShortRegime(t *testing.T) {
	obs := []DayObservation{
		{EntityID: "AAPL", Signal: 0.9, Return: 0.02},
		{EntityID: "MSFT", Signal: 0.6, Return: 0.01},
		{EntityID: "XOM", Signal: -0.8, Return: -0.03},
		{EntityID: "KO", Signal: 0.1, Return: 0.005}, // below threshold, skipped
	}

	result := EvaluateDay(obs, testCfg)

	if result.Mode != domain.ModeLongShort {
		t.Fatalf("Mode = %v, want long_short", result.Mode)
	}
	if result.NumLong != 2 || result.NumShort != 1 {
		t.Errorf("NumLong/NumShort = %d/%d, want 2/1", result.NumLong, result.NumShort)
	}
	if result.UniverseSize != 4 {
		t.Errorf("UniverseSize = %d, want 4", result.UniverseSize)
	}
	if math.Abs(result.LongExposure-1.8) > 1e-12 {
		t.Errorf("LongExposure = %v, want 1.8", result.LongExposure)
	}
	if math.Abs(result.ShortExposure-(-1.0)) > 1e-12 {
		t.Errorf("ShortExposure = %v, want -1.0", result.ShortExposure)
	}

	// Each long holds 0.9, the short holds -1.0.
	want := 0.9*0.02 + 0.9*0.01 + -1.0*-0.03
	if math.Abs(result.DailyReturn-want) > 1e-12 {
		t.Errorf("DailyReturn = %v, want %v", result.DailyReturn, want)
	}
	if len(result.Positions) != 3 {
		t.Errorf("got %d positions, want 3", len(result.Positions))
	}
}

func TestEvaluateDay_LongOnlyRegime(t *testing.T) {
	obs := []DayObservation{
		{EntityID: "AAPL", Signal: 0.9, Return: 0.02},
		{EntityID: "MSFT", Signal: 0.7, Return: -0.01},
		{EntityID: "KO", Signal: -0.2, Return: 0.01}, // not short: |signal| below threshold
	}

	result := EvaluateDay(obs, testCfg)

	if result.Mode != domain.ModeLongOnly {
		t.Fatalf("Mode = %v, want long_only", result.Mode)
	}
	if math.Abs(result.LongExposure-0.8) > 1e-12 {
		t.Errorf("LongExposure = %v, want 0.8", result.LongExposure)
	}
	if result.ShortExposure != 0 {
		t.Errorf("ShortExposure = %v, want 0", result.ShortExposure)
	}
	want := 0.4*0.02 + 0.4*-0.01
	if math.Abs(result.DailyReturn-want) > 1e-12 {
		t.Errorf("DailyReturn = %v, want %v", result.DailyReturn, want)
	}
}

func TestEvaluateDay_FlatRegime(t *testing.T) {
	cases := map[string][]DayObservation{
		"empty":        nil,
		"all neutral":  {{EntityID: "AAPL", Signal: 0.2, Return: 0.01}},
		"only shorts":  {{EntityID: "XOM", Signal: -0.9, Return: -0.02}},
		"at threshold": {{EntityID: "AAPL", Signal: 0.5, Return: 0.01}},
	}

	for name, obs := range cases {
		result := EvaluateDay(obs, testCfg)
		if result.Mode != domain.ModeFlat {
			t.Errorf("%s: Mode = %v, want flat", name, result.Mode)
		}
		if result.DailyReturn != 0 {
			t.Errorf("%s: DailyReturn = %v, want 0", name, result.DailyReturn)
		}
		if len(result.Positions) != 0 {
			t.Errorf("%s: got %d positions, want 0", name, len(result.Positions))
		}
	}
}

func TestEvaluateDay_ShortPositionsCarryNegativeWeight(t *testing.T) {
	obs := []DayObservation{
		{EntityID: "AAPL", Signal: 0.9, Return: 0.01},
		{EntityID: "XOM", Signal: -0.9, Return: 0.04},
		{EntityID: "CVX", Signal: -0.6, Return: -0.02},
	}

	result := EvaluateDay(obs, testCfg)

	for _, p := range result.Positions {
		switch p.Side {
		case domain.SideLong:
			if p.Weight <= 0 {
				t.Errorf("long %s has weight %v", p.EntityID, p.Weight)
			}
		case domain.SideShort:
			if math.Abs(p.Weight-(-0.5)) > 1e-12 {
				t.Errorf("short %s weight = %v, want -0.5", p.EntityID, p.Weight)
			}
		}
	}

	// Shorts lose on positive returns and gain on negative ones.
	want := 1.8*0.01 + -0.5*0.04 + -0.5*-0.02
	if math.Abs(result.DailyReturn-want) > 1e-12 {
		t.Errorf("DailyReturn = %v, want %v", result.DailyReturn, want)
	}
}
