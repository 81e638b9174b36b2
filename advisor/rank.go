package advisor

import (
	"math"
	"sort"
)

// Rank selects the k most probable labels in descending probability order.
// Equal probabilities keep the classifier's index order. When fewer than k
// labels exist all of them are returned. Mismatched slices are truncated to the
// shorter one and NaN probabilities sort after every number.
func Rank(labels []string, probabilities []float64, k int) []RankedCrop {
	n := min(len(labels), len(probabilities))
	if n == 0 || k <= 0 {
		return []RankedCrop{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rankKey(probabilities[idx[a]]) > rankKey(probabilities[idx[b]])
	})
	if k > n {
		k = n
	}
	out := make([]RankedCrop, k)
	for i := 0; i < k; i++ {
		j := idx[i]
		out[i] = RankedCrop{
			Label:       labels[j],
			Probability: probabilities[j],
			Rank:        i + 1,
			Index:       j,
		}
	}
	return out
}

func rankKey(p float64) float64 {
	if math.IsNaN(p) {
		return math.Inf(-1)
	}
	return p
}
