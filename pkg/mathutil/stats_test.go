package mathutil

import (
	"errors"
	"math"
	"testing"
)

func TestWeightedMean(t *testing.T) {
	got, err := WeightedMean([]float64{10, 20, 30}, []float64{1, 1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-22.5) > 1e-9 {
		t.Errorf("WeightedMean = %v, expected 22.5", got)
	}

	if _, err := WeightedMean([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := WeightedMean([]float64{1}, []float64{0}); !errors.Is(err, ErrZeroWeight) {
		t.Errorf("expected ErrZeroWeight, got %v", err)
	}
}

func TestSumIsCompensated(t *testing.T) {
	if got := Sum([]float64{1, 1e100, 1, -1e100}); got != 2 {
		t.Errorf("Sum = %v, expected 2", got)
	}
	tenths := make([]float64, 10)
	for i := range tenths {
		tenths[i] = 0.1
	}
	if got := Sum(tenths); got != 1 {
		t.Errorf("Sum of ten 0.1 = %v, expected 1", got)
	}
}

func TestNormalize(t *testing.T) {
	in := []float64{0.3, 0.3}
	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(Sum(out)-1) > 1e-12 || math.Abs(out[0]-0.5) > 1e-12 {
		t.Errorf("Normalize = %v", out)
	}
	if in[0] != 0.3 {
		t.Errorf("Normalize modified its input")
	}
}

func TestDescriptiveStatistics(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	if got := Mean(values); got != 2.5 {
		t.Errorf("Mean = %v, expected 2.5", got)
	}
	if got := Median(values); got != 2.5 {
		t.Errorf("Median = %v, expected 2.5", got)
	}
	if got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); got != 2 {
		t.Errorf("population StdDev = %v, expected 2", got)
	}
	if got := StdDev([]float64{7, 7, 7}); got != 0 {
		t.Errorf("StdDev of constant series = %v, expected 0", got)
	}
	if values[0] != 4 {
		t.Errorf("Median sorted its input in place")
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p        float64
		expected float64
	}{
		{0, 10},
		{5, 12},
		{25, 20},
		{50, 30},
		{95, 48},
		{100, 50},
	}
	for _, tt := range tests {
		if got := Percentile(sorted, tt.p); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, expected %v", tt.p, got, tt.expected)
		}
	}

	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile of empty slice = %v", got)
	}
	if got := Percentile([]float64{7}, 95); got != 7 {
		t.Errorf("Percentile of single value = %v", got)
	}
}
