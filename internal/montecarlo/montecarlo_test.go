package montecarlo

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/facility-valuation/pkg/testutil"
)

func noiUniform(min, max float64) Distribution {
	return Distribution{Parameter: "facility.noi", Type: Uniform, Min: min, Max: max}
}

func TestRunDegenerateDistribution(t *testing.T) {
	sim := NewSimulator(nil, nil)

	result, err := sim.Run(context.Background(), testutil.CapRateScenario(),
		[]Distribution{noiUniform(1_800_000, 1_800_000)},
		Options{Iterations: 200, Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, 200, result.Iterations)
	assert.False(t, result.Cancelled)
	assert.InDelta(t, 18_000_000, result.Mean, 1e-3)
	assert.InDelta(t, 18_000_000, result.Median, 1e-3)
	assert.InDelta(t, 18_000_000, result.Percentiles.P5, 1e-3)
	assert.InDelta(t, 18_000_000, result.Percentiles.P95, 1e-3)
	assert.InDelta(t, 0, result.StdDev, 1e-6)
	require.Len(t, result.Distribution, 1)
	assert.Equal(t, 200, result.Distribution[0].Count)
	assert.InDelta(t, 100, result.Distribution[0].Percentage, 1e-9)
}

func TestRunHistogramConservesMass(t *testing.T) {
	sim := NewSimulator(nil, nil)

	result, err := sim.Run(context.Background(), testutil.CapRateScenario(),
		[]Distribution{
			noiUniform(1_500_000, 2_000_000),
			{Parameter: "settings.assetTypes.snf.capRate.base", Type: Triangular, Min: 0.09, Mode: 0.10, Max: 0.12},
		},
		Options{Iterations: 500, Buckets: 20, Seed: 42, Workers: 4})
	require.NoError(t, err)

	total := 0
	pct := 0.0
	for _, b := range result.Distribution {
		total += b.Count
		pct += b.Percentage
		assert.LessOrEqual(t, b.Min, b.Max)
	}
	assert.Len(t, result.Distribution, 20)
	assert.Equal(t, result.Iterations, total)
	assert.InDelta(t, 100, pct, 1e-9)

	assert.GreaterOrEqual(t, result.Min, 1_500_000/0.12-1e-3)
	assert.LessOrEqual(t, result.Max, 2_000_000/0.09+1e-3)
	p := result.Percentiles
	assert.True(t, result.Min <= p.P5 && p.P5 <= p.P25 && p.P25 <= p.P50 && p.P50 <= p.P75 && p.P75 <= p.P95 && p.P95 <= result.Max)
	assert.Equal(t, result.Median, p.P50)
}

func TestRunIsReproducible(t *testing.T) {
	sim := NewSimulator(nil, nil)
	dists := []Distribution{{Parameter: "facility.noi", Type: Normal, Mean: 1_800_000, StdDev: 150_000}}

	one, err := sim.Run(context.Background(), testutil.CapRateScenario(), dists, Options{Iterations: 300, Seed: 99, Workers: 1})
	require.NoError(t, err)
	many, err := sim.Run(context.Background(), testutil.CapRateScenario(), dists, Options{Iterations: 300, Seed: 99, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, one.Mean, many.Mean)
	assert.Equal(t, one.StdDev, many.StdDev)
	assert.Equal(t, one.Percentiles, many.Percentiles)
	assert.Equal(t, one.Distribution, many.Distribution)
	assert.Equal(t, uint64(99), many.Seed)

	other, err := sim.Run(context.Background(), testutil.CapRateScenario(), dists, Options{Iterations: 300, Seed: 100})
	require.NoError(t, err)
	assert.NotEqual(t, one.Mean, other.Mean)
}

func TestRunCancellation(t *testing.T) {
	sim := NewSimulator(nil, nil)
	dists := []Distribution{noiUniform(1_500_000, 2_000_000)}

	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		result, err := sim.Run(ctx, testutil.CapRateScenario(), dists, Options{Iterations: 1000, Seed: 1})
		require.NoError(t, err)
		assert.True(t, result.Cancelled)
		assert.Zero(t, result.Iterations)
		assert.Empty(t, result.Distribution)
	})

	t.Run("cancelled at first progress report", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var reported []int

		result, err := sim.Run(ctx, testutil.CapRateScenario(), dists, Options{
			Iterations:       1000,
			Seed:             1,
			Workers:          1,
			ProgressInterval: 100,
			Progress: func(p int) {
				reported = append(reported, p)
				cancel()
			},
		})
		require.NoError(t, err)
		assert.True(t, result.Cancelled)
		assert.Equal(t, 100, result.Iterations)
		assert.Equal(t, 1000, result.Requested)
		assert.Equal(t, []int{10}, reported)

		total := 0
		for _, b := range result.Distribution {
			total += b.Count
		}
		assert.Equal(t, 100, total)
	})
}

func TestRunProgress(t *testing.T) {
	sim := NewSimulator(nil, nil)
	var reported []int

	_, err := sim.Run(context.Background(), testutil.CapRateScenario(),
		[]Distribution{noiUniform(1_500_000, 2_000_000)},
		Options{Iterations: 1000, Seed: 3, Workers: 1, ProgressInterval: 250, Progress: func(p int) { reported = append(reported, p) }})
	require.NoError(t, err)
	assert.Equal(t, []int{25, 50, 75, 100}, reported)
}

func TestOptionsOverlay(t *testing.T) {
	base := Options{Iterations: 1000, Buckets: 25, Seed: 1, Workers: 2, ProgressInterval: 250}

	assert.Equal(t, base, base.Overlay(nil))

	got := base.Overlay(&Options{Workers: 4, ProgressInterval: 10})
	assert.Equal(t, 4, got.Workers)
	assert.Equal(t, 10, got.ProgressInterval)
	assert.Equal(t, 1000, got.Iterations)
	assert.Equal(t, uint64(1), got.Seed)

	got = base.Overlay(&Options{Iterations: -5, Buckets: -1, Seed: 9})
	assert.Equal(t, -5, got.Iterations, "out-of-range counts are left for validation")
	assert.Equal(t, 25, got.Buckets)
	assert.Equal(t, uint64(9), got.Seed)
}

func TestRunRejectsInvalidDistributions(t *testing.T) {
	sim := NewSimulator(nil, nil)
	tests := []struct {
		name string
		dist Distribution
	}{
		{"unknown type", Distribution{Parameter: "facility.noi", Type: "lognormal"}},
		{"uniform inverted", noiUniform(2, 1)},
		{"normal negative stdDev", Distribution{Parameter: "facility.noi", Type: Normal, StdDev: -1}},
		{"triangular mode outside", Distribution{Parameter: "facility.noi", Type: Triangular, Min: 1, Mode: 5, Max: 3}},
		{"missing path", Distribution{Type: Uniform}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), testutil.CapRateScenario(), []Distribution{tt.dist}, Options{Iterations: 10})
			assert.ErrorIs(t, err, ErrInvalidDistribution)
		})
	}

	_, err := sim.Run(context.Background(), testutil.CapRateScenario(),
		[]Distribution{{Parameter: "facility.nope", Type: Uniform, Min: 1, Max: 2}}, Options{Iterations: 10})
	assert.Error(t, err)
}

func TestTriangularSampling(t *testing.T) {
	assert.Equal(t, 1.0, triangular(0, 1, 2, 4))
	assert.InDelta(t, 4.0, triangular(1, 1, 2, 4), 1e-12)
	assert.InDelta(t, 2.0, triangular(1.0/3.0, 1, 2, 4), 1e-12)
	assert.Equal(t, 5.0, triangular(0.7, 5, 5, 5))

	rng := rand.New(rand.NewPCG(1, 2))
	d := Distribution{Parameter: "x", Type: Triangular, Min: 0, Mode: 3, Max: 6}
	sum := 0.0
	for i := 0; i < 20000; i++ {
		v := d.Sample(rng)
		require.True(t, v >= 0 && v <= 6)
		sum += v
	}
	assert.InDelta(t, 3.0, sum/20000, 0.05)
}

func TestAggregateConstantSample(t *testing.T) {
	for _, v := range []float64{1.8e6 / 0.13, 0.1, 18_000_000} {
		values := make([]float64, 100)
		for i := range values {
			values[i] = v
		}

		result := Aggregate(values, 10)
		assert.Equal(t, v, result.Mean)
		assert.Equal(t, v, result.Median)
		assert.Zero(t, result.StdDev)
		require.Len(t, result.Distribution, 1)
		assert.Equal(t, 100, result.Distribution[0].Count)
	}
}

func TestRunDegenerateUnrepresentableValue(t *testing.T) {
	sim := NewSimulator(nil, nil)
	sc := testutil.CapRateScenario()
	sc.Settings.AssetTypes.SNF.CapRate.Base = 0.13

	result, err := sim.Run(context.Background(), sc,
		[]Distribution{noiUniform(1_800_000, 1_800_000)},
		Options{Iterations: 100, Seed: 5})
	require.NoError(t, err)

	deterministic, err := sim.engine.ValueScenario(sc)
	require.NoError(t, err)
	assert.Equal(t, deterministic.ReconciledValue, result.Mean)
	assert.Zero(t, result.StdDev)
}

func TestAggregateEmpty(t *testing.T) {
	result := Aggregate(nil, 10)
	assert.Zero(t, result.Iterations)
	assert.False(t, math.IsNaN(result.Mean))
	assert.Empty(t, result.Distribution)
}
