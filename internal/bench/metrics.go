package bench

import (
	"math"
	"sort"
)

// mrrAtK returns 1/rank of the first positively-graded id in ranked's
// first k entries, or 0 if none is found.
func mrrAtK(ranked []string, grades map[string]int, k int) float64 {
	limit := k
	if limit > len(ranked) {
		limit = len(ranked)
	}
	for i := 0; i < limit; i++ {
		if grades[ranked[i]] > 0 {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}

// ndcgAtK computes DCG@k / IDCG@k over ranked against the per-corpus-id
// relevance grades for one query.
func ndcgAtK(ranked []string, grades map[string]int, k int) float64 {
	ideal := idealDCG(grades, k)
	if ideal == 0 {
		return 0.0
	}
	return dcgAtK(ranked, grades, k) / ideal
}

func dcgAtK(ranked []string, grades map[string]int, k int) float64 {
	limit := k
	if limit > len(ranked) {
		limit = len(ranked)
	}
	sum := 0.0
	for i := 0; i < limit; i++ {
		grade := grades[ranked[i]]
		sum += (math.Pow(2, float64(grade)) - 1) / math.Log2(float64(i+2))
	}
	return sum
}

func idealDCG(grades map[string]int, k int) float64 {
	sorted := make([]int, 0, len(grades))
	for _, g := range grades {
		sorted = append(sorted, g)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	limit := k
	if limit > len(sorted) {
		limit = len(sorted)
	}
	sum := 0.0
	for i := 0; i < limit; i++ {
		sum += (math.Pow(2, float64(sorted[i])) - 1) / math.Log2(float64(i+2))
	}
	return sum
}

// recallAtK returns |positives ∩ ranked[:k]| / |positives|. Callers must
// skip queries with zero positives before averaging, per spec.
func recallAtK(ranked []string, grades map[string]int, k int) float64 {
	positives := 0
	for _, g := range grades {
		if g > 0 {
			positives++
		}
	}
	if positives == 0 {
		return 0.0
	}

	limit := k
	if limit > len(ranked) {
		limit = len(ranked)
	}
	hits := 0
	for i := 0; i < limit; i++ {
		if grades[ranked[i]] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(positives)
}

func hasPositive(grades map[string]int) bool {
	for _, g := range grades {
		if g > 0 {
			return true
		}
	}
	return false
}
