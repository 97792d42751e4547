package predict

import (
	"math"
	"testing"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3, 4})
	var sum float64
	for _, p := range probs {
		if p <= 0 || p > 1 {
			t.Fatalf("probability out of range: %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("sum=%v", sum)
	}
	if !(probs[3] > probs[2] && probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Fatalf("ordering not preserved: %v", probs)
	}
}

func TestSoftmaxStableAtExtremeMagnitudes(t *testing.T) {
	probs := Softmax([]float32{10000, 9999, -10000})
	for _, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("unstable output: %v", probs)
		}
	}
	if probs[0] <= probs[1] || probs[2] != 0 {
		t.Fatalf("unexpected distribution: %v", probs)
	}
}

func TestSoftmaxNegInfEntriesAreZero(t *testing.T) {
	negInf := float32(math.Inf(-1))
	probs := Softmax([]float32{negInf, 0.5, negInf, 1.5})
	if probs[0] != 0 || probs[2] != 0 {
		t.Fatalf("expected zeros for -Inf entries: %v", probs)
	}
	if math.Abs(probs[1]+probs[3]-1) > 1e-9 {
		t.Fatalf("remaining mass not normalized: %v", probs)
	}
}

func TestSoftmaxAllNegInf(t *testing.T) {
	negInf := float32(math.Inf(-1))
	probs := Softmax([]float32{negInf, negInf})
	if probs[0] != 0 || probs[1] != 0 {
		t.Fatalf("expected all zeros: %v", probs)
	}
}

func TestTopKOrderingAndBounds(t *testing.T) {
	probs := []float64{0.1, 0.4, 0, 0.3, 0.2}
	got := TopK(probs, 3)
	want := []int{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	// k larger than the support: zero-probability indices never appear.
	got = TopK(probs, 10)
	if len(got) != 4 {
		t.Fatalf("got %v", got)
	}
	for _, id := range got {
		if probs[id] == 0 {
			t.Fatalf("zero-probability index returned: %v", got)
		}
	}
	if TopK(probs, 0) != nil {
		t.Fatalf("expected nil for k=0")
	}
}
