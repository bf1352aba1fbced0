package schedule

import (
	"sort"
)

// EffectivePeriod returns the latest rebalance date at or before dayMs.
// rebalanceDays must be sorted ASC. The second return is false when the
// day precedes the first rebalance; no position is held on such days.
func EffectivePeriod(dayMs int64, rebalanceDays []int64) (int64, bool) {
	if len(rebalanceDays) == 0 {
		return 0, false
	}

	// First index with rebalanceDays[i] > dayMs.
	idx := sort.Search(len(rebalanceDays), func(i int) bool {
		return rebalanceDays[i] > dayMs
	})
	if idx == 0 {
		return 0, false
	}
	return rebalanceDays[idx-1], true
}
