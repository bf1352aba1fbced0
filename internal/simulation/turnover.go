package simulation

import (
	"math"

	"sentiment-alpha-lab/internal/domain"
)

// AvgTurnover computes the mean per-rebalance turnover across all
// transitions and both sides. Turnover between two consecutive rebalances
// for one side is half the sum of absolute weight changes; an entity
// absent from one period counts as weight 0 there. A fully replaced side
// therefore has turnover 1.0.
func AvgTurnover(buckets map[int64][]*domain.BucketMember, rebalanceDays []int64) float64 {
	if len(rebalanceDays) < 2 {
		return 0
	}

	var sum float64
	var n int
	for i := 1; i < len(rebalanceDays); i++ {
		prev := sideWeights(buckets[rebalanceDays[i-1]])
		curr := sideWeights(buckets[rebalanceDays[i]])
		for _, side := range []domain.Side{domain.SideLong, domain.SideShort} {
			sum += sideTurnover(prev[side], curr[side])
			n++
		}
	}
	return sum / float64(n)
}

// sideWeights indexes a bucket's weights by side then entity.
func sideWeights(members []*domain.BucketMember) map[domain.Side]map[string]float64 {
	out := map[domain.Side]map[string]float64{
		domain.SideLong:  {},
		domain.SideShort: {},
	}
	for _, m := range members {
		out[m.Side][m.EntityID] = m.Weight
	}
	return out
}

// sideTurnover is half the sum of absolute weight deltas over the union of
// both periods' entities.
func sideTurnover(prev, curr map[string]float64) float64 {
	var changes float64
	for entity, w := range curr {
		changes += math.Abs(w - prev[entity])
	}
	for entity, w := range prev {
		if _, stillHeld := curr[entity]; !stillHeld {
			changes += math.Abs(w)
		}
	}
	return changes / 2
}
