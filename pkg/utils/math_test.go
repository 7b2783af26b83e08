package utils

import (
	"math"
	"testing"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{1, 2, 3})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probabilities sum to %f, want 1", sum)
	}
	if !(probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Errorf("softmax should preserve order: %v", probs)
	}
}

func TestSoftmax_LargeLogits(t *testing.T) {
	probs := Softmax([]float64{1000, 1000})
	for _, p := range probs {
		if math.IsNaN(p) || math.Abs(p-0.5) > 1e-12 {
			t.Fatalf("large equal logits: got %v, want [0.5 0.5]", probs)
		}
	}
}

func TestSoftmax_Empty(t *testing.T) {
	if got := Softmax(nil); len(got) != 0 {
		t.Errorf("Softmax(nil) = %v", got)
	}
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name    string
		in      []float64
		wantIdx int
		wantVal float64
	}{
		{"single", []float64{0.3}, 0, 0.3},
		{"last wins", []float64{0.1, 0.2, 0.7}, 2, 0.7},
		{"tie first wins", []float64{0.4, 0.4, 0.2}, 0, 0.4},
		{"empty", nil, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, val := Argmax(tt.in)
			if idx != tt.wantIdx || val != tt.wantVal {
				t.Errorf("Argmax(%v) = (%d, %f), want (%d, %f)", tt.in, idx, val, tt.wantIdx, tt.wantVal)
			}
		})
	}
}
