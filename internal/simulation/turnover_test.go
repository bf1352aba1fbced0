package simulation

import (
	"math"
	"testing"

	"sentiment-alpha-lab/internal/domain"
)

func TestAvgTurnover_UnchangedPortfolioIsZero(t *testing.T) {
	members := []*domain.BucketMember{
		makeMember(simDay1Ms, "AAPL", domain.SideLong, 0.5),
		makeMember(simDay1Ms, "MSFT", domain.SideLong, 0.5),
		makeMember(simDay1Ms, "XOM", domain.SideShort, 1.0),
	}
	buckets := map[int64][]*domain.BucketMember{
		simDay1Ms: members,
		simDay2Ms: {
			makeMember(simDay2Ms, "AAPL", domain.SideLong, 0.5),
			makeMember(simDay2Ms, "MSFT", domain.SideLong, 0.5),
			makeMember(simDay2Ms, "XOM", domain.SideShort, 1.0),
		},
	}

	got := AvgTurnover(buckets, []int64{simDay1Ms, simDay2Ms})
	if got != 0 {
		t.Errorf("AvgTurnover = %v, want 0", got)
	}
}

func TestAvgTurnover_FullReplacementIsOne(t *testing.T) {
	buckets := map[int64][]*domain.BucketMember{
		simDay1Ms: {
			makeMember(simDay1Ms, "AAPL", domain.SideLong, 1.0),
			makeMember(simDay1Ms, "XOM", domain.SideShort, 1.0),
		},
		simDay2Ms: {
			makeMember(simDay2Ms, "MSFT", domain.SideLong, 1.0),
			makeMember(simDay2Ms, "CVX", domain.SideShort, 1.0),
		},
	}

	got := AvgTurnover(buckets, []int64{simDay1Ms, simDay2Ms})
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("AvgTurnover = %v, want 1.0 for full replacement", got)
	}
}

func TestAvgTurnover_PartialRebalance(t *testing.T) {
	// Long side: AAPL 0.5->0.25, MSFT 0.5->0.25, GOOG 0->0.5.
	// Half-sum of deltas = (0.25 + 0.25 + 0.5)/2 = 0.5.
	// Short side unchanged: 0. Average over both sides = 0.25.
	buckets := map[int64][]*domain.BucketMember{
		simDay1Ms: {
			makeMember(simDay1Ms, "AAPL", domain.SideLong, 0.5),
			makeMember(simDay1Ms, "MSFT", domain.SideLong, 0.5),
			makeMember(simDay1Ms, "XOM", domain.SideShort, 1.0),
		},
		simDay2Ms: {
			makeMember(simDay2Ms, "AAPL", domain.SideLong, 0.25),
			makeMember(simDay2Ms, "MSFT", domain.SideLong, 0.25),
			makeMember(simDay2Ms, "GOOG", domain.SideLong, 0.5),
			makeMember(simDay2Ms, "XOM", domain.SideShort, 1.0),
		},
	}

	got := AvgTurnover(buckets, []int64{simDay1Ms, simDay2Ms})
	if math.Abs(got-0.25) > 1e-12 {
		t.Errorf("AvgTurnover = %v, want 0.25", got)
	}
}

func TestAvgTurnover_AveragesAcrossTransitions(t *testing.T) {
	// Transition 1 replaces the long book (turnover 1, short empty both
	// periods counts 0). Transition 2 is unchanged. Four side-transitions
	// total: (1 + 0 + 0 + 0) / 4 = 0.25.
	buckets := map[int64][]*domain.BucketMember{
		simDay1Ms: {makeMember(simDay1Ms, "AAPL", domain.SideLong, 1.0)},
		simDay2Ms: {makeMember(simDay2Ms, "MSFT", domain.SideLong, 1.0)},
		simDay3Ms: {makeMember(simDay3Ms, "MSFT", domain.SideLong, 1.0)},
	}

	got := AvgTurnover(buckets, []int64{simDay1Ms, simDay2Ms, simDay3Ms})
	if math.Abs(got-0.25) > 1e-12 {
		t.Errorf("AvgTurnover = %v, want 0.25", got)
	}
}

func TestAvgTurnover_SingleRebalanceIsZero(t *testing.T) {
	buckets := map[int64][]*domain.BucketMember{
		simDay1Ms: {makeMember(simDay1Ms, "AAPL", domain.SideLong, 1.0)},
	}

	if got := AvgTurnover(buckets, []int64{simDay1Ms}); got != 0 {
		t.Errorf("AvgTurnover = %v, want 0 with fewer than two rebalances", got)
	}
}
