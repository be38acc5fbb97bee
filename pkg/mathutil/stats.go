package mathutil

import (
	"errors"
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

var (
	// ErrLengthMismatch is returned when values and weights differ in length.
	ErrLengthMismatch = errors.New("values and weights differ in length")

	// ErrZeroWeight is returned when weights sum to zero.
	ErrZeroWeight = errors.New("weights sum to zero")
)

// Sum returns the total of values using Neumaier compensated summation.
func Sum(values []float64) float64 {
	total, c := 0.0, 0.0
	for _, v := range values {
		t := total + v
		if math.Abs(total) >= math.Abs(v) {
			c += (total - t) + v
		} else {
			c += (v - t) + total
		}
		total = t
	}
	return total + c
}

// Normalize scales weights so they sum to one. The input is not modified.
func Normalize(weights []float64) ([]float64, error) {
	total := Sum(weights)
	if total <= 0 {
		return nil, ErrZeroWeight
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / total
	}
	return out, nil
}

// WeightedMean returns Σ v·w / Σ w.
func WeightedMean(values, weights []float64) (float64, error) {
	if len(values) != len(weights) {
		return 0, eris.Wrapf(ErrLengthMismatch, "%d values, %d weights", len(values), len(weights))
	}
	total := Sum(weights)
	if total <= 0 {
		return 0, ErrZeroWeight
	}
	acc := 0.0
	for i, v := range values {
		acc += v * weights[i]
	}
	return acc / total, nil
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	acc := 0.0
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(values)))
}

// Sorted returns a sorted copy of values.
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Median returns the median of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	return Percentile(Sorted(values), 50)
}

// Percentile returns the p-th percentile (0-100) of sorted values using linear
// interpolation between closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n == 1:
		return sorted[0]
	}
	p = Clamp(p, 0, 100)
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
