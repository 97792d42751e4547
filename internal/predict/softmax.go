package predict

import (
	"math"
	"sort"
)

// Softmax converts a logit vector into probabilities. The max logit is
// subtracted before exponentiating so extreme magnitudes cannot overflow;
// -Inf entries come out as exact zeros.
func Softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxv := math.Inf(-1)
	for _, v := range logits {
		if fv := float64(v); fv > maxv {
			maxv = fv
		}
	}
	if math.IsInf(maxv, -1) {
		return out
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v) - maxv)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// TopK returns the indices of the k highest probabilities in descending
// order. Selection is stable; zero-probability entries are never returned, so
// a sparse distribution yields fewer than k indices.
func TopK(probs []float64, k int) []int {
	if k <= 0 {
		return nil
	}
	idx := make([]int, 0, len(probs))
	for i, p := range probs {
		if p > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}
