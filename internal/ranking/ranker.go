package ranking

import (
	"errors"
	"sort"

	"sentiment-alpha-lab/internal/domain"
)

// ErrInsufficientUniverse is returned when a rebalance date has fewer
// entities than the configured minimum. The rebalance is skipped entirely;
// a degenerate cross-section never forms positions.
var ErrInsufficientUniverse = errors.New("universe below minimum for rebalance")

// RankAndBucket computes percentile ranks for one rebalance date's
// cross-section and partitions it into long/short membership. Weights are
// not assigned here; that is AssignWeights' job.
//
// Percentile ranks follow the average-rank tie convention: entities with
// identical signal scores receive identical ranks, so a tied group lands
// on the same side of each cutoff together. Output is sorted by side then
// entity id for deterministic downstream processing.
func RankAndBucket(signals []*domain.AggregatedSignal, longPct, shortPct float64, minUniverse int) ([]*domain.BucketMember, error) {
	n := len(signals)
	if n < minUniverse {
		return nil, ErrInsufficientUniverse
	}

	ranks := percentileRanks(signals)

	var members []*domain.BucketMember
	for i, sig := range signals {
		var side domain.Side
		switch {
		case ranks[i] >= longPct:
			side = domain.SideLong
		case ranks[i] <= shortPct:
			side = domain.SideShort
		default:
			continue
		}
		members = append(members, &domain.BucketMember{
			RebalanceDayMs: sig.RebalanceDayMs,
			EntityID:       sig.EntityID,
			Side:           side,
			SignalScore:    sig.SignalScore,
			MarketCapLag:   sig.MarketCapLag,
		})
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].Side != members[j].Side {
			return members[i].Side < members[j].Side
		}
		return members[i].EntityID < members[j].EntityID
	})
	return members, nil
}

// percentileRanks returns each signal's percentile rank in [0, 100] using
// average ranks for ties: rank_pct = avg_rank / n * 100.
func percentileRanks(signals []*domain.AggregatedSignal) []float64 {
	n := len(signals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return signals[order[a]].SignalScore < signals[order[b]].SignalScore
	})

	ranks := make([]float64, n)
	for lo := 0; lo < n; {
		hi := lo
		for hi+1 < n && signals[order[hi+1]].SignalScore == signals[order[lo]].SignalScore {
			hi++
		}
		// Positions lo..hi (0-based) share ranks lo+1..hi+1.
		avgRank := float64(lo+hi+2) / 2.0
		pct := avgRank / float64(n) * 100.0
		for i := lo; i <= hi; i++ {
			ranks[order[i]] = pct
		}
		lo = hi + 1
	}
	return ranks
}
