package montecarlo_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/facility-valuation/internal/montecarlo"
	"github.com/iwvelando/facility-valuation/pkg/constants"
	"github.com/iwvelando/facility-valuation/pkg/testutil"
)

func fullDistributions() []montecarlo.Distribution {
	return []montecarlo.Distribution{
		{Parameter: "facility.noi", Type: montecarlo.Normal, Mean: 1_800_000, StdDev: 150_000},
		{Parameter: "facility.occupancyRate", Type: montecarlo.Triangular, Min: 0.78, Mode: 0.86, Max: 0.93},
		{Parameter: "settings.assetTypes.snf.capRate.base", Type: montecarlo.Uniform, Min: 0.11, Max: 0.14},
	}
}

// TestPerformance runs the largest accepted simulation over a fully
// described facility.
func TestPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-size simulation in short mode")
	}

	sim := montecarlo.NewSimulator(zap.NewNop(), nil)
	start := time.Now()
	result, err := sim.Run(context.Background(), testutil.FullScenario(), fullDistributions(), montecarlo.Options{
		Iterations: constants.MaxIterations,
		Seed:       2024,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	t.Logf("Performance metrics:")
	t.Logf("  Iterations: %d", result.Iterations)
	t.Logf("  Total time: %v", elapsed)

	if elapsed > 60*time.Second {
		t.Errorf("simulation time %v exceeds 60 second threshold", elapsed)
	}
	if result.Iterations != constants.MaxIterations {
		t.Errorf("expected %d iterations, got %d", constants.MaxIterations, result.Iterations)
	}
	if !(result.Percentiles.P5 <= result.Percentiles.P50 && result.Percentiles.P50 <= result.Percentiles.P95) {
		t.Errorf("percentiles out of order: %+v", result.Percentiles)
	}
}

func BenchmarkRun(b *testing.B) {
	sim := montecarlo.NewSimulator(zap.NewNop(), nil)
	sc := testutil.FullScenario()
	dists := fullDistributions()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sim.Run(context.Background(), sc, dists, montecarlo.Options{Iterations: constants.MinIterations, Seed: 1}); err != nil {
			b.Fatalf("Run() error = %v", err)
		}
	}
}
